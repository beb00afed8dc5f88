package ports

import (
	"context"

	"github.com/insights/issue-tracker/internal/core/domain"
	"github.com/insights/issue-tracker/internal/core/policy"
)

// CreateIssueInput carries the caller-supplied fields of a new issue. The
// owner is always the actor.
type CreateIssueInput struct {
	Title       string
	Description string
	Severity    domain.Severity // empty = MEDIUM
}

// IssueService is the issue lifecycle manager.
type IssueService interface {
	Create(ctx context.Context, actor policy.Actor, in CreateIssueInput) (*domain.Issue, error)
	Get(ctx context.Context, actor policy.Actor, id string) (*domain.Issue, error)
	List(ctx context.Context, actor policy.Actor, page domain.Page) ([]*domain.Issue, error)
	Update(ctx context.Context, actor policy.Actor, id string, patch domain.IssuePatch) (*domain.Issue, error)
	Delete(ctx context.Context, actor policy.Actor, id string) error
}
