package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingRelay struct {
	mu       sync.Mutex
	payloads []string
	gate     chan struct{}
	err      error
}

func (r *recordingRelay) Publish(_ context.Context, payload []byte) error {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, string(payload))
	return r.err
}

func (r *recordingRelay) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.payloads...)
}

func TestDispatcher_ForwardsInOrder(t *testing.T) {
	relay := &recordingRelay{}
	d := NewDispatcher(relay, 8, zerolog.Nop())

	for _, p := range []string{"a", "b", "c"} {
		if err := d.Publish(context.Background(), []byte(p)); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for len(relay.got()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	d.Wait()

	got := relay.got()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestDispatcher_FullQueue(t *testing.T) {
	d := NewDispatcher(&recordingRelay{}, 1, zerolog.Nop())

	if err := d.Publish(context.Background(), []byte("a")); err != nil {
		t.Fatalf("first Publish: %v", err)
	}
	if err := d.Publish(context.Background(), []byte("b")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestDispatcher_DrainsOnStop(t *testing.T) {
	relay := &recordingRelay{gate: make(chan struct{})}
	d := NewDispatcher(relay, 4, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	_ = d.Publish(ctx, []byte("a"))
	_ = d.Publish(ctx, []byte("b"))
	cancel()
	close(relay.gate)
	d.Wait()

	if got := relay.got(); len(got) != 2 {
		t.Fatalf("expected both payloads forwarded, got %v", got)
	}
}

func TestDispatcher_RelayErrorDoesNotStopWorker(t *testing.T) {
	relay := &recordingRelay{err: errors.New("redis down")}
	d := NewDispatcher(relay, 4, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	_ = d.Publish(ctx, []byte("a"))
	_ = d.Publish(ctx, []byte("b"))

	deadline := time.Now().Add(2 * time.Second)
	for len(relay.got()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	d.Wait()

	if got := relay.got(); len(got) != 2 {
		t.Fatalf("expected worker to keep going after errors, got %v", got)
	}
}
