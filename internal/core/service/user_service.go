package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/rs/zerolog"

	"github.com/insights/issue-tracker/internal/core/domain"
	"github.com/insights/issue-tracker/internal/core/policy"
	"github.com/insights/issue-tracker/internal/core/ports"
)

// UserService implements identity management on top of UserRepository.
type UserService struct {
	repo   ports.UserRepository
	now    func() time.Time
	logger zerolog.Logger
}

func NewUserService(repo ports.UserRepository, logger zerolog.Logger) *UserService {
	return &UserService{repo: repo, now: time.Now, logger: logger}
}

// Register creates a new active REPORTER identity. Self-registration can
// never grant a privileged role.
func (s *UserService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.create(ctx, in.Email, in.Password, domain.RoleReporter)
}

// EnsureAdmin creates an ADMIN identity with the given credentials unless
// the email is already registered. It is used to bootstrap an empty store.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (*domain.User, error) {
	existing, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err == nil {
		if existing.Role != domain.RoleAdmin {
			s.logger.Warn().Str("user_id", existing.ID).Msg("bootstrap admin email belongs to a non-admin identity")
		}
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("ensure admin: %w", err)
	}
	return s.create(ctx, email, password, domain.RoleAdmin)
}

func (s *UserService) create(ctx context.Context, email, password string, role domain.Role) (*domain.User, error) {
	email, err := validEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrValidation)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			s.logger.Error().Err(err).Msg("failed to create user")
		}
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("user registered")
	return user, nil
}

func (s *UserService) Get(ctx context.Context, actor policy.Actor, id string) (*domain.User, error) {
	if err := policy.Decide(actor, policy.ReadUser, policy.Resource{TargetUserID: id}).Err(); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, actor policy.Actor, page domain.Page) ([]*domain.User, error) {
	if err := policy.Decide(actor, policy.ListUsers, policy.Resource{}).Err(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, page.Normalize())
}

// Update applies patch to the identity id. Non-admins may only touch their
// own email and password; resending their current role or active flag is
// accepted and ignored.
func (s *UserService) Update(ctx context.Context, actor policy.Actor, id string, patch domain.UserPatch) (*domain.User, error) {
	// Decided on the id alone first so a foreign id is Forbidden whether or
	// not it exists.
	if d := policy.Decide(actor, policy.UpdateUser, policy.Resource{TargetUserID: id}); !d.Allowed() {
		s.logger.Warn().Str("actor_id", actor.ID).Str("user_id", id).Str("reason", d.Reason).Msg("user update denied")
		return nil, d.Err()
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	decision := policy.Decide(actor, policy.UpdateUser, policy.Resource{
		TargetUserID: id,
		TargetUser:   user,
		UserPatch:    &patch,
	})
	if err := decision.Err(); err != nil {
		s.logger.Warn().Str("actor_id", actor.ID).Str("user_id", id).Str("reason", decision.Reason).Msg("user update denied")
		return nil, err
	}

	allowed := decision.FieldSet()
	permit := func(field string) bool { return allowed == nil || allowed[field] }

	if patch.Email != nil && permit(domain.FieldEmail) {
		email, err := validEmail(*patch.Email)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}
	if patch.Password != nil && permit(domain.FieldPassword) {
		if *patch.Password == "" {
			return nil, fmt.Errorf("%w: password must not be empty", domain.ErrValidation)
		}
		hash, err := HashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if patch.IsActive != nil && permit(domain.FieldIsActive) {
		user.IsActive = *patch.IsActive
	}
	if patch.Role != nil && permit(domain.FieldRole) {
		if !patch.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, *patch.Role)
		}
		user.Role = *patch.Role
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("actor_id", actor.ID).Str("user_id", id).Msg("user updated")
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	if err := policy.Decide(actor, policy.DeleteUser, policy.Resource{TargetUserID: id}).Err(); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("actor_id", actor.ID).Str("user_id", id).Msg("user deleted")
	return nil
}

func validEmail(raw string) (string, error) {
	email := normalizeEmail(raw)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email %q", domain.ErrValidation, raw)
	}
	return email, nil
}
