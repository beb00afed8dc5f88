// Package queue decouples cross-instance event relaying from the request
// path.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/insights/issue-tracker/internal/core/ports"
)

const (
	channelBuffer  = 256
	publishTimeout = 5 * time.Second
)

// ErrQueueFull is returned by Publish when the backlog is at capacity.
var ErrQueueFull = errors.New("relay queue full")

// Dispatcher buffers serialized events and forwards them to the wrapped relay
// from a single worker, so the relay sees events in Publish order.
type Dispatcher struct {
	ch    chan []byte
	relay ports.EventRelay
	log   zerolog.Logger

	once sync.Once
	done chan struct{}
}

// NewDispatcher creates a Dispatcher with room for buffer pending events.
// If buffer <= 0, channelBuffer is used.
func NewDispatcher(relay ports.EventRelay, buffer int, log zerolog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = channelBuffer
	}
	return &Dispatcher{
		ch:    make(chan []byte, buffer),
		relay: relay,
		log:   log,
		done:  make(chan struct{}),
	}
}

// Start launches the worker goroutine. It drains and stops when ctx is
// cancelled; Wait blocks until it has.
func (d *Dispatcher) Start(ctx context.Context) {
	d.once.Do(func() {
		go d.run(ctx)
	})
}

// Wait blocks until the worker started by Start has exited.
func (d *Dispatcher) Wait() {
	<-d.done
}

// Publish enqueues payload without blocking. It satisfies ports.EventRelay.
func (d *Dispatcher) Publish(_ context.Context, payload []byte) error {
	select {
	case d.ch <- payload:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case payload := <-d.ch:
			d.forward(context.WithoutCancel(ctx), payload)
		}
	}
}

// drain forwards whatever is already queued at shutdown.
func (d *Dispatcher) drain() {
	for {
		select {
		case payload := <-d.ch:
			d.forward(context.Background(), payload)
		default:
			return
		}
	}
}

func (d *Dispatcher) forward(ctx context.Context, payload []byte) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := d.relay.Publish(ctx, payload); err != nil {
		d.log.Error().Err(err).Int("bytes", len(payload)).Msg("event relay failed")
	}
}
