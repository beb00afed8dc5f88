// Package metrics defines and registers all custom Prometheus metrics for the
// issue tracker. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto; HTTP request metrics come from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tracker"

// ── Issue metrics ─────────────────────────────────────────────────────────────

// IssueEventsTotal counts accepted issue mutations by the event they emitted.
// Label:
//   - type: "issue_created", "issue_updated", "issue_status_changed" or "issue_deleted"
var IssueEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "issue_events_total",
		Help:      "Total number of accepted issue mutations, by emitted event type.",
	},
	[]string{"type"},
)

// IssueUpdateConflictsTotal counts compare-and-set retries on issue updates.
var IssueUpdateConflictsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "issue_update_conflicts_total",
		Help:      "Total number of stale issue writes that forced a reload.",
	},
)

// ── Access metrics ────────────────────────────────────────────────────────────

// PolicyDenialsTotal counts policy engine denials surfaced to callers.
// Label:
//   - action: the policy action, e.g. "issues:update"
var PolicyDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "policy_denials_total",
		Help:      "Total number of authorization denials, by action.",
	},
	[]string{"action"},
)

// LoginAttemptsTotal counts password authentications.
// Label:
//   - result: "success", "invalid_credentials" or "inactive"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ── Live feed metrics ─────────────────────────────────────────────────────────

// LiveObservers tracks the number of currently subscribed observers.
var LiveObservers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_observers",
		Help:      "Current number of subscribed live observers.",
	},
)

// LiveDroppedObserversTotal counts observers unregistered because they could
// not keep up with the broadcast.
var LiveDroppedObserversTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "live_dropped_observers_total",
		Help:      "Total number of observers dropped after a failed delivery.",
	},
)

// LiveRelayErrorsTotal counts failures relaying events between instances.
// Label:
//   - op: "publish" or "decode"
var LiveRelayErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "live_relay_errors_total",
		Help:      "Total number of cross-instance relay failures.",
	},
	[]string{"op"},
)

// ── Aggregation metrics ───────────────────────────────────────────────────────

// SnapshotTicksTotal counts aggregation ticks by outcome.
// Label:
//   - result: "written", "skipped", "locked" or "failed"
var SnapshotTicksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_ticks_total",
		Help:      "Total number of aggregation ticks, by outcome.",
	},
	[]string{"result"},
)

// SnapshotTickDuration measures one aggregation tick end-to-end.
var SnapshotTickDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "snapshot_tick_duration_seconds",
		Help:      "Duration of one aggregation tick.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
)
