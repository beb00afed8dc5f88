package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insights/issue-tracker/internal/core/domain"
	"github.com/insights/issue-tracker/internal/core/ports"
	"github.com/insights/issue-tracker/internal/pkg/metrics"
)

const DefaultLiveBuffer = 64

type observer struct {
	id string
	ch chan []byte
}

func (o *observer) ID() string              { return o.id }
func (o *observer) Messages() <-chan []byte { return o.ch }

// Broadcaster is the event fan-out hub. Each observer owns a bounded queue;
// an observer whose queue is full is considered gone and is unregistered
// instead of stalling the publisher.
type Broadcaster struct {
	mu        sync.Mutex
	observers map[string]*observer
	buffer    int
	relay     ports.EventRelay
	log       zerolog.Logger
}

// NewBroadcaster creates a Broadcaster whose observers buffer up to buffer
// undelivered events. If buffer <= 0, DefaultLiveBuffer is used.
func NewBroadcaster(buffer int, log zerolog.Logger) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultLiveBuffer
	}
	return &Broadcaster{
		observers: make(map[string]*observer),
		buffer:    buffer,
		log:       log,
	}
}

// WithRelay makes Publish forward every event to other instances as well.
func (b *Broadcaster) WithRelay(relay ports.EventRelay) *Broadcaster {
	b.relay = relay
	return b
}

func (b *Broadcaster) Subscribe() ports.Observer {
	o := &observer{id: uuid.NewString(), ch: make(chan []byte, b.buffer)}

	b.mu.Lock()
	b.observers[o.id] = o
	n := len(b.observers)
	b.mu.Unlock()

	metrics.LiveObservers.Inc()
	b.log.Debug().Str("observer_id", o.id).Int("observers", n).Msg("observer subscribed")
	return o
}

// Unsubscribe removes o and closes its queue. Calling it more than once, or
// for an observer already dropped by a broadcast, is a no-op.
func (b *Broadcaster) Unsubscribe(o ports.Observer) {
	if o == nil {
		return
	}
	b.mu.Lock()
	removed := b.removeLocked(o.ID())
	b.mu.Unlock()

	if removed {
		b.log.Debug().Str("observer_id", o.ID()).Msg("observer unsubscribed")
	}
}

// Publish serializes event once and delivers it to every local observer,
// then hands it to the relay when one is configured. It never fails the
// caller.
func (b *Broadcaster) Publish(ctx context.Context, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.log.Error().Err(err).Str("type", string(event.Type)).Msg("failed to encode event")
		return
	}

	b.Deliver(payload)

	if b.relay != nil {
		if err := b.relay.Publish(ctx, payload); err != nil {
			metrics.LiveRelayErrorsTotal.WithLabelValues("publish").Inc()
			b.log.Warn().Err(err).Str("type", string(event.Type)).Msg("failed to relay event")
		}
	}
}

// Deliver pushes an already serialized event to every local observer. The
// lock is held for the whole pass so a single observer sees events in the
// order Deliver was called.
func (b *Broadcaster) Deliver(payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, o := range b.observers {
		select {
		case o.ch <- payload:
		default:
			b.removeLocked(id)
			metrics.LiveDroppedObserversTotal.Inc()
			b.log.Warn().Str("observer_id", id).Msg("observer too slow, dropped")
		}
	}
}

// Len returns the number of registered observers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

// Close unregisters every observer.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.observers {
		b.removeLocked(id)
	}
}

func (b *Broadcaster) removeLocked(id string) bool {
	o, ok := b.observers[id]
	if !ok {
		return false
	}
	delete(b.observers, id)
	close(o.ch)
	metrics.LiveObservers.Dec()
	return true
}
