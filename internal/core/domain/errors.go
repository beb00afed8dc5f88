package domain

import (
	"errors"
	"fmt"
)

// Authentication failures.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("inactive account")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)

var (
	ErrForbidden  = errors.New("access forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

var (
	ErrIssueNotFound    = fmt.Errorf("issue %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrSnapshotNotFound = fmt.Errorf("snapshot %w", ErrNotFound)
	ErrUserExists       = fmt.Errorf("%w: email already registered", ErrConflict)

	// ErrStaleWrite is returned by storage when a compare-and-set update
	// lost the race against a concurrent writer.
	ErrStaleWrite = errors.New("stale write")
)

// ForbiddenError is an authorization denial carrying the policy reason.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	if e.Reason == "" {
		return ErrForbidden.Error()
	}
	return e.Reason
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// Forbidden builds a ForbiddenError with the given reason.
func Forbidden(reason string) error {
	return &ForbiddenError{Reason: reason}
}
