package middleware

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/insights/issue-tracker/internal/core/domain"
	"github.com/insights/issue-tracker/internal/core/policy"
	"github.com/insights/issue-tracker/internal/core/ports"
)

// Context keys populated by Auth.
const (
	UserKey  = "user"
	ActorKey = "actor"
)

// queryTokenParam carries the token on connections that cannot set headers,
// such as browser WebSocket upgrades.
const queryTokenParam = "access_token"

type authOptions struct {
	allowQuery bool
}

// AuthOption tweaks token extraction.
type AuthOption func(*authOptions)

// AllowQueryToken also accepts the token from the access_token query
// parameter when no Authorization header is present.
func AllowQueryToken() AuthOption {
	return func(o *authOptions) { o.allowQuery = true }
}

// Auth resolves the bearer token to an active identity and injects both the
// user and its policy actor into context.
func Auth(auth ports.AuthService, opts ...AuthOption) echo.MiddlewareFunc {
	var o authOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c, o.allowQuery)
			if err != nil {
				return err
			}

			user, err := auth.Identify(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(UserKey, user)
			c.Set(ActorKey, policy.Actor{ID: user.ID, Role: user.Role})
			return next(c)
		}
	}
}

func bearerToken(c echo.Context, allowQuery bool) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		if allowQuery {
			if t := c.QueryParam(queryTokenParam); t != "" {
				return t, nil
			}
		}
		return "", fmt.Errorf("%w: missing authorization header", domain.ErrInvalidToken)
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("%w: invalid authorization header", domain.ErrInvalidToken)
	}
	return strings.TrimSpace(parts[1]), nil
}
