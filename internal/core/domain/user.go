package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the privilege class of an identity.
type Role string

const (
	RoleReporter   Role = "REPORTER"
	RoleMaintainer Role = "MAINTAINER"
	RoleAdmin      Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleReporter, RoleMaintainer, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts a case-insensitive role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
	}
	return r, nil
}

// User models an authenticated identity in the system.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPatch carries a partial identity update. Nil fields are left untouched.
// Password is the plain-text secret; it is hashed before it reaches storage.
type UserPatch struct {
	Email    *string
	Password *string
	IsActive *bool
	Role     *Role
}
