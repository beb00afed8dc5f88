package handler

import (
	"time"

	"github.com/insights/issue-tracker/internal/core/domain"
)

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		IsActive:  u.IsActive,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toIssueResponse(i *domain.Issue) issueResponse {
	return issueResponse{
		ID:          i.ID,
		Title:       i.Title,
		Description: i.Description,
		Severity:    string(i.Severity),
		Status:      string(i.Status),
		OwnerID:     i.OwnerID,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

func toSnapshotResponse(s *domain.DailySnapshot) snapshotResponse {
	return snapshotResponse{
		Date:      s.Date.Format(time.DateOnly),
		Counts:    statusCountsResponse(s.Counts),
		CreatedAt: s.CreatedAt,
	}
}

// toIssuePatch parses the enum fields of req case-insensitively.
func toIssuePatch(req updateIssueRequest) (domain.IssuePatch, error) {
	patch := domain.IssuePatch{Title: req.Title, Description: req.Description}
	if req.Severity != nil {
		sv, err := domain.ParseSeverity(*req.Severity)
		if err != nil {
			return patch, err
		}
		patch.Severity = &sv
	}
	if req.Status != nil {
		st, err := domain.ParseStatus(*req.Status)
		if err != nil {
			return patch, err
		}
		patch.Status = &st
	}
	return patch, nil
}

func toUserPatch(req updateUserRequest) (domain.UserPatch, error) {
	patch := domain.UserPatch{Email: req.Email, Password: req.Password, IsActive: req.IsActive}
	if req.Role != nil {
		r, err := domain.ParseRole(*req.Role)
		if err != nil {
			return patch, err
		}
		patch.Role = &r
	}
	return patch, nil
}
