package service

import (
	"context"
	"fmt"
	"time"

	"github.com/insights/issue-tracker/internal/core/domain"
	"github.com/insights/issue-tracker/internal/core/policy"
	"github.com/insights/issue-tracker/internal/core/ports"
)

type DashboardService struct {
	issues    ports.IssueRepository
	snapshots ports.SnapshotRepository
}

func NewDashboardService(issues ports.IssueRepository, snapshots ports.SnapshotRepository) *DashboardService {
	return &DashboardService{issues: issues, snapshots: snapshots}
}

// StatusCounts returns live totals for every status, zero counts included.
func (s *DashboardService) StatusCounts(ctx context.Context, actor policy.Actor) (domain.StatusCounts, error) {
	if err := policy.Decide(actor, policy.ViewDashboard, policy.Resource{}).Err(); err != nil {
		return nil, err
	}
	counts, err := s.issues.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count issues by status: %w", err)
	}
	return counts.Fill(), nil
}

// Snapshots returns the persisted daily snapshots between from and to,
// both inclusive and truncated to UTC dates.
func (s *DashboardService) Snapshots(ctx context.Context, actor policy.Actor, from, to time.Time) ([]*domain.DailySnapshot, error) {
	if err := policy.Decide(actor, policy.ViewDashboard, policy.Resource{}).Err(); err != nil {
		return nil, err
	}
	if !from.IsZero() {
		from = domain.SnapshotDate(from)
	}
	if !to.IsZero() {
		to = domain.SnapshotDate(to)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("%w: 'to' is before 'from'", domain.ErrValidation)
	}

	list, err := s.snapshots.List(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	for _, snap := range list {
		snap.Counts.Fill()
	}
	return list, nil
}
