package ports

import (
	"context"

	"github.com/insights/issue-tracker/internal/core/domain"
)

// UserRepository defines persistence operations for identities.
type UserRepository interface {
	// Create inserts a new identity, assigning its ID when empty.
	// Returns domain.ErrUserExists when the email is already registered.
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, page domain.Page) ([]*domain.User, error)
	// Update overwrites every mutable field of the stored identity.
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
}
