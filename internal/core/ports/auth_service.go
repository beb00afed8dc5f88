package ports

import (
	"context"
	"time"

	"github.com/insights/issue-tracker/internal/core/domain"
)

// AccessToken is a signed, time-bounded credential.
type AccessToken struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
}

// AuthService authenticates identities and resolves bearer tokens.
type AuthService interface {
	Authenticate(ctx context.Context, email, password string) (*AccessToken, *domain.User, error)
	// Identify verifies the token and loads the active identity it names.
	Identify(ctx context.Context, token string) (*domain.User, error)
}
