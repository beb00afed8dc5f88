package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/insights/issue-tracker/internal/core/domain"
	"github.com/insights/issue-tracker/internal/core/policy"
	"github.com/insights/issue-tracker/internal/core/ports"
	"github.com/insights/issue-tracker/internal/pkg/metrics"
)

// maxUpdateAttempts bounds the compare-and-set retry loop in Update.
const maxUpdateAttempts = 3

// IssueService is the issue lifecycle manager. Every mutation is authorized
// by the policy engine, persisted, and only then announced to live observers.
type IssueService struct {
	repo      ports.IssueRepository
	publisher ports.EventPublisher
	now       func() time.Time
	logger    zerolog.Logger
}

func NewIssueService(repo ports.IssueRepository, publisher ports.EventPublisher, logger zerolog.Logger) *IssueService {
	return &IssueService{repo: repo, publisher: publisher, now: time.Now, logger: logger}
}

func (s *IssueService) Create(ctx context.Context, actor policy.Actor, in ports.CreateIssueInput) (*domain.Issue, error) {
	if err := policy.Decide(actor, policy.CreateIssue, policy.Resource{}).Err(); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	severity := in.Severity
	if severity == "" {
		severity = domain.SeverityMedium
	}
	if !severity.Valid() {
		return nil, fmt.Errorf("%w: unknown severity %q", domain.ErrValidation, severity)
	}

	now := s.now().UTC()
	issue := &domain.Issue{
		Title:       title,
		Description: in.Description,
		Severity:    severity,
		Status:      domain.StatusOpen,
		OwnerID:     actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, issue); err != nil {
		s.logger.Error().Err(err).Msg("failed to create issue")
		return nil, err
	}

	s.logger.Info().Str("issue_id", issue.ID).Str("owner_id", actor.ID).Str("severity", string(severity)).Msg("issue created")
	s.emit(ctx, domain.NewIssueCreated(issue, now))
	return issue, nil
}

// Get returns the issue when the actor may read it. An issue the actor has
// no visibility on is reported as not found.
func (s *IssueService) Get(ctx context.Context, actor policy.Actor, id string) (*domain.Issue, error) {
	issue, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := policy.Decide(actor, policy.ReadIssue, policy.Resource{Issue: issue}); !d.Allowed() {
		metrics.PolicyDenialsTotal.WithLabelValues(string(policy.ReadIssue)).Inc()
		s.logger.Debug().Str("actor_id", actor.ID).Str("issue_id", id).Str("reason", d.Reason).Msg("issue read denied")
		return nil, domain.ErrIssueNotFound
	}
	return issue, nil
}

func (s *IssueService) List(ctx context.Context, actor policy.Actor, page domain.Page) ([]*domain.Issue, error) {
	d := policy.Decide(actor, policy.ListIssues, policy.Resource{})
	if err := d.Err(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, domain.IssueFilter{OwnerID: d.OwnerScope, Page: page.Normalize()})
}

// Update authorizes and applies patch. When a concurrent writer wins the
// compare-and-set the issue is reloaded and the decision is taken again
// against the fresh state.
func (s *IssueService) Update(ctx context.Context, actor policy.Actor, id string, patch domain.IssuePatch) (*domain.Issue, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		issue, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !policy.Decide(actor, policy.ReadIssue, policy.Resource{Issue: issue}).Allowed() {
			metrics.PolicyDenialsTotal.WithLabelValues(string(policy.UpdateIssue)).Inc()
			return nil, domain.ErrIssueNotFound
		}

		decision := policy.Decide(actor, policy.UpdateIssue, policy.Resource{Issue: issue, IssuePatch: &patch})
		if err := decision.Err(); err != nil {
			metrics.PolicyDenialsTotal.WithLabelValues(string(policy.UpdateIssue)).Inc()
			s.logger.Warn().Str("actor_id", actor.ID).Str("issue_id", id).Str("reason", decision.Reason).Msg("issue update denied")
			return nil, err
		}

		oldStatus := issue.Status
		patch.Apply(issue, decision.FieldSet())
		now := s.now().UTC()
		issue.UpdatedAt = now

		err = s.repo.Update(ctx, issue)
		if errors.Is(err, domain.ErrStaleWrite) {
			metrics.IssueUpdateConflictsTotal.Inc()
			if attempt < maxUpdateAttempts {
				s.logger.Debug().Str("issue_id", id).Int("attempt", attempt).Msg("stale issue write, retrying")
				continue
			}
			return nil, fmt.Errorf("%w: issue %s was modified concurrently", domain.ErrConflict, id)
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info().Str("issue_id", id).Str("actor_id", actor.ID).Str("effect", decision.Effect.String()).Msg("issue updated")
		s.emit(ctx, domain.NewIssueUpdated(issue, now))
		if issue.Status != oldStatus {
			s.logger.Info().Str("issue_id", id).Str("from", string(oldStatus)).Str("to", string(issue.Status)).Msg("issue status changed")
			s.emit(ctx, domain.NewIssueStatusChanged(issue, oldStatus, now))
		}
		return issue, nil
	}
}

// Delete is decided on role alone before the issue is loaded, so a
// non-admin is Forbidden whether or not the issue exists.
func (s *IssueService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	if d := policy.Decide(actor, policy.DeleteIssue, policy.Resource{}); !d.Allowed() {
		metrics.PolicyDenialsTotal.WithLabelValues(string(policy.DeleteIssue)).Inc()
		s.logger.Warn().Str("actor_id", actor.ID).Str("issue_id", id).Str("reason", d.Reason).Msg("issue delete denied")
		return d.Err()
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("issue_id", id).Str("actor_id", actor.ID).Msg("issue deleted")
	s.emit(ctx, domain.NewIssueDeleted(id, s.now()))
	return nil
}

func (s *IssueService) emit(ctx context.Context, event domain.Event) {
	metrics.IssueEventsTotal.WithLabelValues(string(event.Type)).Inc()
	s.publisher.Publish(ctx, event)
}

func validatePatch(p domain.IssuePatch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", domain.ErrValidation)
	}
	if p.Severity != nil && !p.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", domain.ErrValidation, *p.Severity)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrValidation, *p.Status)
	}
	return nil
}
