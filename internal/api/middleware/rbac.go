package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/insights/issue-tracker/internal/core/domain"
	"github.com/insights/issue-tracker/internal/core/policy"
)

// Require rejects the request early unless the policy engine allows action
// for the authenticated actor. Only role-level actions that need no loaded
// resource belong here; resource checks stay in the services.
func Require(action policy.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := c.Get(ActorKey).(policy.Actor)
			if !ok {
				return fmt.Errorf("%w: missing authentication", domain.ErrInvalidToken)
			}
			if err := policy.Decide(actor, action, policy.Resource{}).Err(); err != nil {
				return err
			}
			return next(c)
		}
	}
}
