package handler

import (
	"errors"
	"strings"
	"testing"

	"github.com/insights/issue-tracker/internal/core/domain"
)

func TestValidator_Messages(t *testing.T) {
	v := NewValidator()
	long := strings.Repeat("x", 201)
	empty := ""

	tests := map[string]struct {
		req  any
		want string
	}{
		"required":         {&createIssueRequest{}, "title is required"},
		"max":              {&createIssueRequest{Title: long}, "title must not exceed 200 characters"},
		"min":              {&updateIssueRequest{Title: &empty}, "title must not be shorter than 1 characters"},
		"email":            {&registerRequest{Email: "nope", Password: "p"}, "email must be a valid email"},
		"required_without": {&tokenRequest{Password: "p"}, "email or username is required"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := v.Validate(tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err, tt.want)
			}
		})
	}
}

func TestValidator_Valid(t *testing.T) {
	v := NewValidator()
	if err := v.Validate(&tokenRequest{Username: "a@x.com", Password: "p"}); err != nil {
		t.Fatalf("username alone must satisfy the token request: %v", err)
	}
	if err := v.Validate(&createIssueRequest{Title: "bug"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
