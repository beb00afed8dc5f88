package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/insights/issue-tracker/internal/core/domain"
	"github.com/insights/issue-tracker/internal/core/ports"
)

type stubRelay struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (r *stubRelay) Publish(_ context.Context, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	return r.err
}

func receive(t *testing.T, o ports.Observer) domain.Event {
	t.Helper()
	select {
	case msg, ok := <-o.Messages():
		if !ok {
			t.Fatal("observer channel closed")
		}
		var e domain.Event
		if err := json.Unmarshal(msg, &e); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return domain.Event{}
}

func TestBroadcaster_DeliversToAllObservers(t *testing.T) {
	b := NewBroadcaster(4, zerolog.Nop())
	a, c := b.Subscribe(), b.Subscribe()
	if b.Len() != 2 {
		t.Fatalf("expected 2 observers, got %d", b.Len())
	}

	b.Publish(context.Background(), domain.NewIssueDeleted("i1", time.Now()))

	for _, o := range []ports.Observer{a, c} {
		if e := receive(t, o); e.Type != domain.EventIssueDeleted || e.IssueID != "i1" {
			t.Fatalf("unexpected event: %+v", e)
		}
	}
}

func TestBroadcaster_PreservesOrderPerObserver(t *testing.T) {
	b := NewBroadcaster(16, zerolog.Nop())
	o := b.Subscribe()

	ids := []string{"1", "2", "3", "4", "5"}
	for _, id := range ids {
		b.Publish(context.Background(), domain.NewIssueDeleted(id, time.Now()))
	}
	for _, want := range ids {
		if got := receive(t, o).IssueID; got != want {
			t.Fatalf("out of order: got %s, want %s", got, want)
		}
	}
}

func TestBroadcaster_SlowObserverDropped(t *testing.T) {
	b := NewBroadcaster(1, zerolog.Nop())
	slow := b.Subscribe()
	fast := b.Subscribe()

	b.Publish(context.Background(), domain.NewIssueDeleted("1", time.Now()))
	receive(t, fast)
	b.Publish(context.Background(), domain.NewIssueDeleted("2", time.Now()))

	if b.Len() != 1 {
		t.Fatalf("slow observer should have been dropped, %d left", b.Len())
	}
	if e := receive(t, fast); e.IssueID != "2" {
		t.Fatalf("healthy observer missed event: %+v", e)
	}

	// the queued event is still readable, then the channel is closed
	<-slow.Messages()
	if _, ok := <-slow.Messages(); ok {
		t.Fatal("dropped observer channel must be closed")
	}
}

func TestBroadcaster_UnsubscribeIdempotent(t *testing.T) {
	b := NewBroadcaster(1, zerolog.Nop())
	o := b.Subscribe()

	b.Unsubscribe(o)
	b.Unsubscribe(o)
	b.Unsubscribe(nil)

	if b.Len() != 0 {
		t.Fatalf("expected no observers, got %d", b.Len())
	}
	if _, ok := <-o.Messages(); ok {
		t.Fatal("expected closed channel")
	}

	// publishing with nobody subscribed is fine
	b.Publish(context.Background(), domain.NewIssueDeleted("x", time.Now()))
}

func TestBroadcaster_ConcurrentSubscribeDuringPublish(t *testing.T) {
	b := NewBroadcaster(256, zerolog.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Unsubscribe(b.Subscribe())
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Publish(ctx, domain.NewIssueDeleted("x", time.Now()))
			}
		}()
	}
	wg.Wait()

	if b.Len() != 0 {
		t.Fatalf("expected every observer released, %d left", b.Len())
	}
}

func TestBroadcaster_Relay(t *testing.T) {
	relay := &stubRelay{err: errors.New("redis down")}
	b := NewBroadcaster(4, zerolog.Nop()).WithRelay(relay)
	o := b.Subscribe()

	b.Publish(context.Background(), domain.NewIssueCreated(&domain.Issue{ID: "i1"}, time.Now()))

	// a relay failure must not prevent local delivery
	if e := receive(t, o); e.Type != domain.EventIssueCreated || e.Issue == nil || e.Issue.ID != "i1" {
		t.Fatalf("unexpected event: %+v", e)
	}
	if len(relay.payloads) != 1 {
		t.Fatalf("expected one relayed payload, got %d", len(relay.payloads))
	}

	b.Deliver(relay.payloads[0])
	if e := receive(t, o); e.Type != domain.EventIssueCreated {
		t.Fatalf("relayed payload not delivered: %+v", e)
	}
}
