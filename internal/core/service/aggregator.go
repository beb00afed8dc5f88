package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/insights/issue-tracker/internal/core/domain"
	"github.com/insights/issue-tracker/internal/core/ports"
	"github.com/insights/issue-tracker/internal/pkg/metrics"
)

const (
	DefaultAggregationInterval = 30 * time.Minute
	tickTimeout                = time.Minute
)

// TickResult describes what one aggregation tick did.
type TickResult string

const (
	TickWritten TickResult = "written"
	TickSkipped TickResult = "skipped"
	TickLocked  TickResult = "locked"
	TickFailed  TickResult = "failed"
)

// Aggregator periodically persists one DailySnapshot per UTC date.
type Aggregator struct {
	issues    ports.IssueRepository
	snapshots ports.SnapshotRepository
	lock      ports.SnapshotLock
	interval  time.Duration
	now       func() time.Time
	log       zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewAggregator creates the scheduler. If interval <= 0,
// DefaultAggregationInterval is used.
func NewAggregator(issues ports.IssueRepository, snapshots ports.SnapshotRepository, interval time.Duration, log zerolog.Logger) *Aggregator {
	if interval <= 0 {
		interval = DefaultAggregationInterval
	}
	return &Aggregator{
		issues:    issues,
		snapshots: snapshots,
		interval:  interval,
		now:       time.Now,
		log:       log.With().Str("component", "aggregator").Logger(),
	}
}

// WithLock coordinates ticks across instances through lock.
func (a *Aggregator) WithLock(lock ports.SnapshotLock) *Aggregator {
	a.lock = lock
	return a
}

// Start runs one tick immediately and then one per interval until ctx is
// cancelled or Stop is called.
func (a *Aggregator) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})

	go func() {
		defer close(a.done)

		a.log.Info().Str("interval", a.interval.String()).Msg("aggregation scheduler started")

		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		a.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				a.log.Info().Msg("aggregation scheduler stopped")
				return
			case <-ticker.C:
				a.tick(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for the running tick to finish.
func (a *Aggregator) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.done != nil {
		<-a.done
	}
}

// tick runs to completion even when the loop is being stopped; only the
// per-tick timeout bounds it.
func (a *Aggregator) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tickTimeout)
	defer cancel()

	if _, err := a.RunOnce(ctx); err != nil {
		a.log.Error().Err(err).Msg("aggregation tick failed")
	}
}

// RunOnce performs a single aggregation for the current UTC date.
func (a *Aggregator) RunOnce(ctx context.Context) (TickResult, error) {
	start := time.Now()
	result, err := a.runOnce(ctx)
	metrics.SnapshotTicksTotal.WithLabelValues(string(result)).Inc()
	metrics.SnapshotTickDuration.Observe(time.Since(start).Seconds())
	return result, err
}

func (a *Aggregator) runOnce(ctx context.Context) (TickResult, error) {
	date := domain.SnapshotDate(a.now())
	day := date.Format(time.DateOnly)

	if a.lock != nil {
		ok, err := a.lock.Acquire(ctx, date)
		if err != nil {
			// storage uniqueness still protects the row, so degrade to unlocked
			a.log.Warn().Err(err).Str("date", day).Msg("snapshot lock unavailable")
		} else if !ok {
			a.log.Info().Str("date", day).Msg("another instance is aggregating, skipping")
			return TickLocked, nil
		}
	}

	existing, err := a.snapshots.FindByDate(ctx, date)
	switch {
	case err == nil && existing != nil:
		a.log.Info().Str("date", day).Msg("snapshot already exists, skipping")
		return TickSkipped, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return TickFailed, fmt.Errorf("find snapshot: %w", err)
	}

	counts, err := a.issues.CountByStatus(ctx)
	if err != nil {
		return TickFailed, fmt.Errorf("count issues by status: %w", err)
	}

	snapshot := &domain.DailySnapshot{
		Date:      date,
		Counts:    counts.Fill(),
		CreatedAt: a.now().UTC(),
	}
	created, err := a.snapshots.CreateIfAbsent(ctx, snapshot)
	if err != nil {
		return TickFailed, fmt.Errorf("create snapshot: %w", err)
	}
	if !created {
		a.log.Info().Str("date", day).Msg("snapshot written concurrently, skipping")
		return TickSkipped, nil
	}

	ev := a.log.Info().Str("date", day)
	for _, s := range domain.Statuses {
		ev = ev.Int64(string(s), snapshot.Counts[s])
	}
	ev.Msg("daily snapshot written")
	return TickWritten, nil
}
