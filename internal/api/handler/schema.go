package handler

import (
	"time"

	"github.com/insights/issue-tracker/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Credentials ---

// tokenRequest accepts either username or email as the identity, from a
// form post or a JSON body.
type tokenRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email"    form:"email"    validate:"required_without=Username"`
	Password string `json:"password" form:"password" validate:"required"`
}

func (r tokenRequest) identity() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// --- Identities ---

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateUserRequest struct {
	Email    *string `json:"email"     validate:"omitempty,email"`
	Password *string `json:"password"  validate:"omitempty,min=1"`
	IsActive *bool   `json:"is_active"`
	Role     *string `json:"role"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type listUsersResponse struct {
	Data  []userResponse `json:"data"`
	Skip  int            `json:"skip"`
	Limit int            `json:"limit"`
}

// --- Issues ---

type createIssueRequest struct {
	Title       string `json:"title"       validate:"required,max=200"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

type updateIssueRequest struct {
	Title       *string `json:"title"       validate:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	Severity    *string `json:"severity"`
	Status      *string `json:"status"`
}

type issueResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Status      string    `json:"status"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type listIssuesResponse struct {
	Data  []issueResponse `json:"data"`
	Skip  int             `json:"skip"`
	Limit int             `json:"limit"`
}

// --- Dashboard ---

type statusCountsResponse map[domain.IssueStatus]int64

type snapshotResponse struct {
	Date      string               `json:"date"`
	Counts    statusCountsResponse `json:"counts"`
	CreatedAt time.Time            `json:"created_at"`
}
