package domain

import (
	"fmt"
	"strings"
	"time"
)

// IssueStatus represents the lifecycle state of an issue.
type IssueStatus string

const (
	StatusOpen       IssueStatus = "OPEN"
	StatusTriaged    IssueStatus = "TRIAGED"
	StatusInProgress IssueStatus = "IN_PROGRESS"
	StatusDone       IssueStatus = "DONE"
)

// Statuses lists every status in lifecycle order.
var Statuses = []IssueStatus{StatusOpen, StatusTriaged, StatusInProgress, StatusDone}

// Valid reports whether s is a known status.
func (s IssueStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus converts a case-insensitive status name into an IssueStatus.
func ParseStatus(s string) (IssueStatus, error) {
	st := IssueStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
	}
	return st, nil
}

// Severity grades the impact of an issue.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ParseSeverity converts a case-insensitive severity name into a Severity.
func ParseSeverity(s string) (Severity, error) {
	sv := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if !sv.Valid() {
		return "", fmt.Errorf("%w: unknown severity %q", ErrValidation, s)
	}
	return sv, nil
}

// Issue is the core aggregate root.
//
// Version is bumped by storage on every accepted write and is used as the
// compare-and-set token for concurrent updates.
type Issue struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Severity    Severity    `json:"severity"`
	Status      IssueStatus `json:"status"`
	OwnerID     string      `json:"owner_id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Version     int64       `json:"-"`
}

// IssuePatch carries a partial issue update. Nil fields are left untouched.
type IssuePatch struct {
	Title       *string
	Description *string
	Severity    *Severity
	Status      *IssueStatus
}

// Empty reports whether the patch carries no field at all.
func (p IssuePatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Severity == nil && p.Status == nil
}

// Apply copies the fields named in allowed from p onto issue. A nil allowed
// set means every supplied field is applied.
func (p IssuePatch) Apply(issue *Issue, allowed map[string]bool) {
	permit := func(field string) bool {
		return allowed == nil || allowed[field]
	}
	if p.Title != nil && permit(FieldTitle) {
		issue.Title = *p.Title
	}
	if p.Description != nil && permit(FieldDescription) {
		issue.Description = *p.Description
	}
	if p.Severity != nil && permit(FieldSeverity) {
		issue.Severity = *p.Severity
	}
	if p.Status != nil && permit(FieldStatus) {
		issue.Status = *p.Status
	}
}

// Field names shared by patches and the policy field filter.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldSeverity    = "severity"
	FieldStatus      = "status"
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldIsActive    = "is_active"
	FieldRole        = "role"
)

// IssueFilter scopes a listing query.
type IssueFilter struct {
	OwnerID string // empty = every owner
	Page    Page
}

// Page is an offset/limit window over an ordered listing.
type Page struct {
	Skip  int
	Limit int
}

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 100
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}
