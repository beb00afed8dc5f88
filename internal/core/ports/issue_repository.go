package ports

import (
	"context"

	"github.com/insights/issue-tracker/internal/core/domain"
)

// IssueRepository defines persistence operations for issues.
type IssueRepository interface {
	// Create inserts a new issue, assigning its ID when empty and setting
	// Version to 1.
	Create(ctx context.Context, issue *domain.Issue) error
	FindByID(ctx context.Context, id string) (*domain.Issue, error)
	List(ctx context.Context, filter domain.IssueFilter) ([]*domain.Issue, error)

	// Update writes issue only if the stored version still equals
	// issue.Version, then bumps issue.Version. Returns domain.ErrStaleWrite
	// when a concurrent writer got there first and domain.ErrIssueNotFound
	// when the row is gone.
	Update(ctx context.Context, issue *domain.Issue) error
	Delete(ctx context.Context, id string) error

	// CountByStatus returns status totals over all issues, zero-filled.
	CountByStatus(ctx context.Context) (domain.StatusCounts, error)
}
