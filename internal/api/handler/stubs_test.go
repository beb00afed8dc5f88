package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/insights/issue-tracker/internal/api/middleware"
	"github.com/insights/issue-tracker/internal/core/domain"
	"github.com/insights/issue-tracker/internal/core/policy"
	"github.com/insights/issue-tracker/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Service stubs
// ---------------------------------------------------------------------------

type stubAuthService struct {
	authenticateFn func(ctx context.Context, email, password string) (*ports.AccessToken, *domain.User, error)
}

func (s *stubAuthService) Authenticate(ctx context.Context, email, password string) (*ports.AccessToken, *domain.User, error) {
	return s.authenticateFn(ctx, email, password)
}

func (s *stubAuthService) Identify(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrInvalidToken
}

type stubUserService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	updateFn   func(ctx context.Context, actor policy.Actor, id string, patch domain.UserPatch) (*domain.User, error)
	listFn     func(ctx context.Context, actor policy.Actor, page domain.Page) ([]*domain.User, error)
}

func (s *stubUserService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubUserService) Get(_ context.Context, actor policy.Actor, id string) (*domain.User, error) {
	if id != actor.ID {
		return nil, domain.Forbidden(policy.ReasonNotSelf)
	}
	return &domain.User{ID: id, Role: actor.Role}, nil
}

func (s *stubUserService) List(ctx context.Context, actor policy.Actor, page domain.Page) ([]*domain.User, error) {
	return s.listFn(ctx, actor, page)
}

func (s *stubUserService) Update(ctx context.Context, actor policy.Actor, id string, patch domain.UserPatch) (*domain.User, error) {
	return s.updateFn(ctx, actor, id, patch)
}

func (s *stubUserService) Delete(context.Context, policy.Actor, string) error { return nil }

type stubIssueService struct {
	createFn func(ctx context.Context, actor policy.Actor, in ports.CreateIssueInput) (*domain.Issue, error)
	updateFn func(ctx context.Context, actor policy.Actor, id string, patch domain.IssuePatch) (*domain.Issue, error)
	listFn   func(ctx context.Context, actor policy.Actor, page domain.Page) ([]*domain.Issue, error)
	deleted  []string
}

func (s *stubIssueService) Create(ctx context.Context, actor policy.Actor, in ports.CreateIssueInput) (*domain.Issue, error) {
	return s.createFn(ctx, actor, in)
}

func (s *stubIssueService) Get(_ context.Context, _ policy.Actor, id string) (*domain.Issue, error) {
	return nil, domain.ErrIssueNotFound
}

func (s *stubIssueService) List(ctx context.Context, actor policy.Actor, page domain.Page) ([]*domain.Issue, error) {
	return s.listFn(ctx, actor, page)
}

func (s *stubIssueService) Update(ctx context.Context, actor policy.Actor, id string, patch domain.IssuePatch) (*domain.Issue, error) {
	return s.updateFn(ctx, actor, id, patch)
}

func (s *stubIssueService) Delete(_ context.Context, _ policy.Actor, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubDashboardService struct {
	from, to time.Time
}

func (s *stubDashboardService) StatusCounts(context.Context, policy.Actor) (domain.StatusCounts, error) {
	counts := domain.NewStatusCounts()
	counts[domain.StatusOpen] = 4
	return counts, nil
}

func (s *stubDashboardService) Snapshots(_ context.Context, _ policy.Actor, from, to time.Time) ([]*domain.DailySnapshot, error) {
	s.from, s.to = from, to
	return []*domain.DailySnapshot{{
		Date:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Counts: domain.NewStatusCounts(),
	}}, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func authenticate(c echo.Context, id string, role domain.Role) {
	c.Set(middleware.UserKey, &domain.User{ID: id, Email: id + "@x.com", Role: role, IsActive: true})
	c.Set(middleware.ActorKey, policy.Actor{ID: id, Role: role})
}
