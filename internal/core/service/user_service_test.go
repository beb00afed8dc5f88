package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/insights/issue-tracker/internal/core/domain"
	"github.com/insights/issue-tracker/internal/core/policy"
	"github.com/insights/issue-tracker/internal/core/ports"
)

func TestUserService_Register(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo, zerolog.Nop())

	user, err := svc.Register(context.Background(), ports.RegisterInput{Email: "Alice@Example.com", Password: "pass123"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.Role != domain.RoleReporter || !user.IsActive {
		t.Fatalf("expected active reporter, got %+v", user)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if user.ID == "" || user.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamps, got %+v", user)
	}
}

func TestUserService_Register_Validation(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), zerolog.Nop())
	ctx := context.Background()

	for _, in := range []ports.RegisterInput{
		{Email: "", Password: "x"},
		{Email: "not-an-email", Password: "x"},
		{Email: "a@x.com", Password: ""},
	} {
		if _, err := svc.Register(ctx, in); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%+v: expected ErrValidation, got %v", in, err)
		}
	}
}

func TestUserService_Register_Duplicate(t *testing.T) {
	svc := NewUserService(newStubUserRepo(), zerolog.Nop())
	ctx := context.Background()

	if _, err := svc.Register(ctx, ports.RegisterInput{Email: "bob@example.com", Password: "p"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(ctx, ports.RegisterInput{Email: "BOB@example.com", Password: "p2"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUserService_EnsureAdmin_Idempotent(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo, zerolog.Nop())
	ctx := context.Background()

	first, err := svc.EnsureAdmin(ctx, "root@example.com", "boot")
	if err != nil || first.Role != domain.RoleAdmin {
		t.Fatalf("ensure admin: user=%+v err=%v", first, err)
	}
	second, err := svc.EnsureAdmin(ctx, "root@example.com", "other")
	if err != nil || second.ID != first.ID {
		t.Fatalf("second ensure admin must return the existing identity: %+v %v", second, err)
	}
}

func TestUserService_Get(t *testing.T) {
	repo := newStubUserRepo()
	repo.put(&domain.User{ID: "u1", Email: "u1@x.com", Role: domain.RoleReporter, IsActive: true})
	repo.put(&domain.User{ID: "u2", Email: "u2@x.com", Role: domain.RoleReporter, IsActive: true})
	svc := NewUserService(repo, zerolog.Nop())
	ctx := context.Background()

	self := policy.Actor{ID: "u1", Role: domain.RoleReporter}
	if u, err := svc.Get(ctx, self, "u1"); err != nil || u.ID != "u1" {
		t.Fatalf("self read: %+v %v", u, err)
	}
	if _, err := svc.Get(ctx, self, "u2"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	admin := policy.Actor{ID: "a", Role: domain.RoleAdmin}
	if _, err := svc.Get(ctx, admin, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserService_List_AdminOnly(t *testing.T) {
	repo := newStubUserRepo()
	for _, id := range []string{"a", "b", "c"} {
		repo.put(&domain.User{ID: id, Email: id + "@x.com", Role: domain.RoleReporter})
	}
	svc := NewUserService(repo, zerolog.Nop())
	ctx := context.Background()

	if _, err := svc.List(ctx, policy.Actor{ID: "a", Role: domain.RoleMaintainer}, domain.Page{}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	users, err := svc.List(ctx, policy.Actor{ID: "x", Role: domain.RoleAdmin}, domain.Page{Skip: 1, Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 1 || users[0].ID != "b" {
		t.Fatalf("unexpected page: %+v", users)
	}
}

func TestUserService_Update_Self(t *testing.T) {
	repo := newStubUserRepo()
	repo.put(&domain.User{ID: "u1", Email: "u1@x.com", Role: domain.RoleReporter, IsActive: true})
	svc := NewUserService(repo, zerolog.Nop())
	ctx := context.Background()
	self := policy.Actor{ID: "u1", Role: domain.RoleReporter}

	updated, err := svc.Update(ctx, self, "u1", domain.UserPatch{
		Email:    ptr("new@x.com"),
		Password: ptr("fresh"),
		Role:     ptr(domain.RoleReporter),
		IsActive: ptr(true),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Email != "new@x.com" || updated.Role != domain.RoleReporter {
		t.Fatalf("unexpected result: %+v", updated)
	}
	if bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("fresh")) != nil {
		t.Fatal("password was not rehashed")
	}

	_, err = svc.Update(ctx, self, "u1", domain.UserPatch{Role: ptr(domain.RoleAdmin)})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden when promoting self, got %v", err)
	}
	stored, _ := repo.FindByID(ctx, "u1")
	if stored.Role != domain.RoleReporter {
		t.Fatalf("role changed despite denial: %s", stored.Role)
	}
}

func TestUserService_Update_ForeignIdentity(t *testing.T) {
	repo := newStubUserRepo()
	repo.put(&domain.User{ID: "u1", Email: "u1@x.com", Role: domain.RoleReporter, IsActive: true})
	repo.put(&domain.User{ID: "u2", Email: "u2@x.com", Role: domain.RoleReporter, IsActive: true})
	svc := NewUserService(repo, zerolog.Nop())
	ctx := context.Background()
	self := policy.Actor{ID: "u1", Role: domain.RoleReporter}

	for _, id := range []string{"u2", "does-not-exist"} {
		_, err := svc.Update(ctx, self, id, domain.UserPatch{Email: ptr("taken@x.com")})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("%s: expected ErrForbidden, got %v", id, err)
		}
	}
	stored, _ := repo.FindByID(ctx, "u2")
	if stored.Email != "u2@x.com" {
		t.Fatalf("foreign identity changed despite denial: %+v", stored)
	}
}

func TestUserService_Update_Admin(t *testing.T) {
	repo := newStubUserRepo()
	repo.put(&domain.User{ID: "u1", Email: "u1@x.com", Role: domain.RoleReporter, IsActive: true})
	svc := NewUserService(repo, zerolog.Nop())
	ctx := context.Background()
	admin := policy.Actor{ID: "a", Role: domain.RoleAdmin}

	updated, err := svc.Update(ctx, admin, "u1", domain.UserPatch{Role: ptr(domain.RoleMaintainer), IsActive: ptr(false)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Role != domain.RoleMaintainer || updated.IsActive {
		t.Fatalf("unexpected result: %+v", updated)
	}

	if _, err := svc.Update(ctx, admin, "u1", domain.UserPatch{Role: ptr(domain.Role("ROOT"))}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown role, got %v", err)
	}
	if _, err := svc.Update(ctx, admin, "missing", domain.UserPatch{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserService_Delete(t *testing.T) {
	repo := newStubUserRepo()
	repo.put(&domain.User{ID: "u1", Email: "u1@x.com", Role: domain.RoleReporter})
	svc := NewUserService(repo, zerolog.Nop())
	ctx := context.Background()

	if err := svc.Delete(ctx, policy.Actor{ID: "u1", Role: domain.RoleReporter}, "u1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	admin := policy.Actor{ID: "a", Role: domain.RoleAdmin}
	if err := svc.Delete(ctx, admin, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, admin, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
