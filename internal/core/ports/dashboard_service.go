package ports

import (
	"context"
	"time"

	"github.com/insights/issue-tracker/internal/core/domain"
	"github.com/insights/issue-tracker/internal/core/policy"
)

// DashboardService exposes aggregated issue counts.
type DashboardService interface {
	StatusCounts(ctx context.Context, actor policy.Actor) (domain.StatusCounts, error)
	Snapshots(ctx context.Context, actor policy.Actor, from, to time.Time) ([]*domain.DailySnapshot, error)
}
