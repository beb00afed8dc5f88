package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/insights/issue-tracker/internal/api/middleware"
	"github.com/insights/issue-tracker/internal/core/domain"
	"github.com/insights/issue-tracker/internal/core/policy"
)

// ctxActor extracts the identity injected by the Auth middleware. Its absence
// means the route was mounted without Auth, which is reported as 401.
func ctxActor(c echo.Context) (policy.Actor, error) {
	actor, ok := c.Get(middleware.ActorKey).(policy.Actor)
	if !ok || actor.ID == "" {
		return policy.Actor{}, fmt.Errorf("%w: missing authentication", domain.ErrInvalidToken)
	}
	return actor, nil
}

func ctxUser(c echo.Context) (*domain.User, error) {
	user, ok := c.Get(middleware.UserKey).(*domain.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("%w: missing authentication", domain.ErrInvalidToken)
	}
	return user, nil
}

// bindValid binds the request into req and runs the struct validator.
func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

// pageParams reads skip and limit from the query string.
func pageParams(c echo.Context) (domain.Page, error) {
	var p domain.Page
	err := echo.QueryParamsBinder(c).
		Int("skip", &p.Skip).
		Int("limit", &p.Limit).
		BindError()
	if err != nil {
		return p, fmt.Errorf("%w: skip and limit must be integers", domain.ErrValidation)
	}
	if p.Skip < 0 || p.Limit < 0 {
		return p, fmt.Errorf("%w: skip and limit must not be negative", domain.ErrValidation)
	}
	return p, nil
}
