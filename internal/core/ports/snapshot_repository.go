package ports

import (
	"context"
	"time"

	"github.com/insights/issue-tracker/internal/core/domain"
)

// SnapshotRepository persists daily status snapshots. Date uniqueness is
// enforced by storage.
type SnapshotRepository interface {
	FindByDate(ctx context.Context, date time.Time) (*domain.DailySnapshot, error)
	// CreateIfAbsent writes the snapshot atomically unless a row for its date
	// already exists. It reports whether a new row was written.
	CreateIfAbsent(ctx context.Context, snapshot *domain.DailySnapshot) (bool, error)
	// List returns snapshots with from <= date <= to, oldest first. Zero
	// bounds are open.
	List(ctx context.Context, from, to time.Time) ([]*domain.DailySnapshot, error)
}

// SnapshotLock coordinates several process instances so that only one of
// them aggregates a given date.
type SnapshotLock interface {
	Acquire(ctx context.Context, date time.Time) (bool, error)
}
