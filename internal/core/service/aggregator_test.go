package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/insights/issue-tracker/internal/core/domain"
)

type stubLock struct {
	mu    sync.Mutex
	held  map[time.Time]bool
	err   error
	calls int
}

func (l *stubLock) Acquire(_ context.Context, date time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return false, l.err
	}
	if l.held == nil {
		l.held = make(map[time.Time]bool)
	}
	if l.held[date] {
		return false, nil
	}
	l.held[date] = true
	return true, nil
}

func newAggregatorFixture() (*Aggregator, *stubIssueRepo, *stubSnapshotRepo) {
	issues := newStubIssueRepo()
	snaps := newStubSnapshotRepo()
	agg := NewAggregator(issues, snaps, time.Hour, zerolog.Nop())
	agg.now = func() time.Time { return time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC) }
	return agg, issues, snaps
}

func TestAggregator_RunOnce_WritesZeroFilledSnapshot(t *testing.T) {
	agg, issues, snaps := newAggregatorFixture()
	seedIssue(issues, "a", "u", domain.StatusOpen)
	seedIssue(issues, "b", "u", domain.StatusOpen)
	seedIssue(issues, "c", "u", domain.StatusDone)

	result, err := agg.RunOnce(context.Background())
	if err != nil || result != TickWritten {
		t.Fatalf("RunOnce = %s, %v", result, err)
	}

	snap, err := snaps.FindByDate(context.Background(), time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("snapshot not persisted: %v", err)
	}
	want := domain.StatusCounts{
		domain.StatusOpen:       2,
		domain.StatusTriaged:    0,
		domain.StatusInProgress: 0,
		domain.StatusDone:       1,
	}
	for status, n := range want {
		got, ok := snap.Counts[status]
		if !ok || got != n {
			t.Errorf("%s: got %d (present=%v), want %d", status, got, ok, n)
		}
	}
}

func TestAggregator_RunOnce_Idempotent(t *testing.T) {
	agg, issues, snaps := newAggregatorFixture()
	ctx := context.Background()

	if r, _ := agg.RunOnce(ctx); r != TickWritten {
		t.Fatalf("first tick = %s", r)
	}
	seedIssue(issues, "late", "u", domain.StatusOpen)
	if r, err := agg.RunOnce(ctx); r != TickSkipped || err != nil {
		t.Fatalf("second tick = %s, %v", r, err)
	}
	if snaps.count() != 1 || snaps.creates != 1 {
		t.Fatalf("expected one snapshot, got %d (creates=%d)", snaps.count(), snaps.creates)
	}

	agg.now = func() time.Time { return time.Date(2024, 3, 11, 0, 1, 0, 0, time.UTC) }
	if r, _ := agg.RunOnce(ctx); r != TickWritten {
		t.Fatalf("next day tick = %s", r)
	}
	if snaps.count() != 2 {
		t.Fatalf("expected two snapshots, got %d", snaps.count())
	}
}

func TestAggregator_RunOnce_StorageFailure(t *testing.T) {
	agg, issues, snaps := newAggregatorFixture()
	issues.countErr = errors.New("db unavailable")

	if r, err := agg.RunOnce(context.Background()); r != TickFailed || err == nil {
		t.Fatalf("expected failure, got %s, %v", r, err)
	}
	if snaps.count() != 0 {
		t.Fatal("no snapshot must be persisted on failure")
	}

	issues.countErr = nil
	if r, err := agg.RunOnce(context.Background()); r != TickWritten || err != nil {
		t.Fatalf("retry = %s, %v", r, err)
	}
}

func TestAggregator_RunOnce_ConcurrentWriterWins(t *testing.T) {
	agg, _, snaps := newAggregatorFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan TickResult, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, _ := agg.RunOnce(ctx)
			results <- r
		}()
	}
	wg.Wait()
	close(results)

	written := 0
	for r := range results {
		if r == TickWritten {
			written++
		}
	}
	if written != 1 || snaps.count() != 1 {
		t.Fatalf("expected exactly one write, got %d (rows=%d)", written, snaps.count())
	}
}

func TestAggregator_RunOnce_Lock(t *testing.T) {
	agg, _, snaps := newAggregatorFixture()
	lock := &stubLock{}
	agg.WithLock(lock)
	ctx := context.Background()

	if r, _ := agg.RunOnce(ctx); r != TickWritten {
		t.Fatalf("first tick = %s", r)
	}
	if r, _ := agg.RunOnce(ctx); r != TickLocked {
		t.Fatalf("second tick should lose the lock, got %s", r)
	}

	// an unreachable lock degrades to the storage uniqueness guarantee
	lock.err = errors.New("redis down")
	snaps.snapshots = make(map[time.Time]*domain.DailySnapshot)
	if r, err := agg.RunOnce(ctx); r != TickWritten || err != nil {
		t.Fatalf("tick without lock = %s, %v", r, err)
	}
}

func TestAggregator_StartStop(t *testing.T) {
	agg, _, snaps := newAggregatorFixture()

	agg.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for snaps.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	agg.Stop()

	if snaps.count() != 1 {
		t.Fatalf("expected the immediate tick to write a snapshot, got %d", snaps.count())
	}
}
