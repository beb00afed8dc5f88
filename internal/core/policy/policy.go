// Package policy is the single decision table gating every read and mutation
// by role and ownership. It never touches storage: callers pass in the
// already-loaded resource state.
package policy

import (
	"github.com/insights/issue-tracker/internal/core/domain"
)

// Action names an operation subject to authorization.
type Action string

const (
	ListIssues    Action = "issues:list"
	ReadIssue     Action = "issues:read"
	CreateIssue   Action = "issues:create"
	UpdateIssue   Action = "issues:update"
	DeleteIssue   Action = "issues:delete"
	ListUsers     Action = "users:list"
	ReadUser      Action = "users:read"
	UpdateUser    Action = "users:update"
	DeleteUser    Action = "users:delete"
	ViewDashboard Action = "dashboard:view"
)

// Effect is the outcome class of a decision.
type Effect int

const (
	Deny Effect = iota
	Allow
	AllowWithFieldFilter
)

func (e Effect) String() string {
	switch e {
	case Allow:
		return "allow"
	case AllowWithFieldFilter:
		return "allow_with_field_filter"
	default:
		return "deny"
	}
}

// Denial reasons.
const (
	ReasonUnknownRole       = "unknown role"
	ReasonNotOwner          = "reporters may only access their own issues"
	ReasonReporterNotOpen   = "reporters may only edit OPEN issues"
	ReasonStatusSeverity    = "role cannot alter status/severity"
	ReasonAdminOnly         = "admin role required"
	ReasonMaintainerOrAdmin = "maintainer or admin role required"
	ReasonNotSelf           = "may only access own identity"
	ReasonOwnRole           = "role cannot change its own role"
	ReasonOwnActive         = "role cannot change its own active flag"
	ReasonMissingResource   = "resource state required"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role domain.Role
}

// Resource carries the already-loaded state a decision depends on. Only the
// fields relevant to the action need to be set.
type Resource struct {
	Issue      *domain.Issue
	IssuePatch *domain.IssuePatch

	// TargetUserID is the identity being read, updated or deleted.
	TargetUserID string
	TargetUser   *domain.User
	UserPatch    *domain.UserPatch
}

// Decision is the result of Decide.
type Decision struct {
	Effect Effect
	Reason string

	// Fields is the set of patch fields that may be applied when Effect is
	// AllowWithFieldFilter.
	Fields []string

	// OwnerScope, when non-empty, restricts a listing to resources owned by
	// that identity. It is a scope restriction, not a denial.
	OwnerScope string
}

// Allowed reports whether the decision permits the action in any form.
func (d Decision) Allowed() bool { return d.Effect != Deny }

// FieldSet returns the permitted fields as a lookup set, or nil when every
// field is permitted.
func (d Decision) FieldSet() map[string]bool {
	if d.Effect != AllowWithFieldFilter {
		return nil
	}
	set := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		set[f] = true
	}
	return set
}

// Err converts a denial into a caller-visible Forbidden error, nil otherwise.
func (d Decision) Err() error {
	if d.Effect != Deny {
		return nil
	}
	return domain.Forbidden(d.Reason)
}

func allow() Decision { return Decision{Effect: Allow} }

func deny(reason string) Decision { return Decision{Effect: Deny, Reason: reason} }

func filter(fields ...string) Decision {
	return Decision{Effect: AllowWithFieldFilter, Fields: fields}
}

func privileged(r domain.Role) bool {
	return r == domain.RoleAdmin || r == domain.RoleMaintainer
}

// Decide maps (actor, action, resource) to a decision.
func Decide(actor Actor, action Action, res Resource) Decision {
	if !actor.Role.Valid() {
		return deny(ReasonUnknownRole)
	}

	switch action {
	case ListIssues:
		if privileged(actor.Role) {
			return allow()
		}
		return Decision{Effect: Allow, OwnerScope: actor.ID}

	case ReadIssue:
		if privileged(actor.Role) {
			return allow()
		}
		if res.Issue == nil {
			return deny(ReasonMissingResource)
		}
		if res.Issue.OwnerID != actor.ID {
			return deny(ReasonNotOwner)
		}
		return allow()

	case CreateIssue:
		return allow()

	case UpdateIssue:
		return decideIssueUpdate(actor, res)

	case DeleteIssue:
		if actor.Role == domain.RoleAdmin {
			return allow()
		}
		return deny(ReasonAdminOnly)

	case ListUsers, DeleteUser:
		if actor.Role == domain.RoleAdmin {
			return allow()
		}
		return deny(ReasonAdminOnly)

	case ReadUser:
		if actor.Role == domain.RoleAdmin || res.TargetUserID == actor.ID {
			return allow()
		}
		return deny(ReasonNotSelf)

	case UpdateUser:
		return decideUserUpdate(actor, res)

	case ViewDashboard:
		if privileged(actor.Role) {
			return allow()
		}
		return deny(ReasonMaintainerOrAdmin)
	}

	return deny("unknown action")
}

func decideIssueUpdate(actor Actor, res Resource) Decision {
	if privileged(actor.Role) {
		return allow()
	}
	issue := res.Issue
	if issue == nil {
		return deny(ReasonMissingResource)
	}
	if issue.OwnerID != actor.ID {
		return deny(ReasonNotOwner)
	}
	if issue.Status != domain.StatusOpen {
		return deny(ReasonReporterNotOpen)
	}
	if p := res.IssuePatch; p != nil {
		if p.Status != nil && *p.Status != issue.Status {
			return deny(ReasonStatusSeverity)
		}
		if p.Severity != nil && *p.Severity != issue.Severity {
			return deny(ReasonStatusSeverity)
		}
	}
	return filter(domain.FieldTitle, domain.FieldDescription)
}

func decideUserUpdate(actor Actor, res Resource) Decision {
	if actor.Role == domain.RoleAdmin {
		return allow()
	}
	if res.TargetUserID != actor.ID {
		return deny(ReasonNotSelf)
	}
	if p := res.UserPatch; p != nil {
		if p.Role != nil && *p.Role != actor.Role {
			return deny(ReasonOwnRole)
		}
		if p.IsActive != nil && res.TargetUser != nil && *p.IsActive != res.TargetUser.IsActive {
			return deny(ReasonOwnActive)
		}
	}
	return filter(domain.FieldEmail, domain.FieldPassword)
}
