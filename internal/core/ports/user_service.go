package ports

import (
	"context"

	"github.com/insights/issue-tracker/internal/core/domain"
	"github.com/insights/issue-tracker/internal/core/policy"
)

// RegisterInput is the public self-registration payload.
type RegisterInput struct {
	Email    string
	Password string
}

// UserService defines identity use cases. Every call except Register is
// gated by the policy engine.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Get(ctx context.Context, actor policy.Actor, id string) (*domain.User, error)
	List(ctx context.Context, actor policy.Actor, page domain.Page) ([]*domain.User, error)
	Update(ctx context.Context, actor policy.Actor, id string, patch domain.UserPatch) (*domain.User, error)
	Delete(ctx context.Context, actor policy.Actor, id string) error
}
