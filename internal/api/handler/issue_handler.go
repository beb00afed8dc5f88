package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/insights/issue-tracker/internal/core/domain"
	"github.com/insights/issue-tracker/internal/core/ports"
)

// IssueHandler handles HTTP requests for issue operations.
type IssueHandler struct {
	service ports.IssueService
}

func NewIssueHandler(service ports.IssueService) *IssueHandler {
	return &IssueHandler{service: service}
}

// Create opens a new issue owned by the caller.
//
// @Summary      Create issue
// @Tags         issues
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createIssueRequest  true  "Issue"
// @Success      201   {object}  issueResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/v1/issues [post]
func (h *IssueHandler) Create(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req createIssueRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	in := ports.CreateIssueInput{Title: req.Title, Description: req.Description}
	if req.Severity != "" {
		sv, err := domain.ParseSeverity(req.Severity)
		if err != nil {
			return err
		}
		in.Severity = sv
	}

	issue, err := h.service.Create(c.Request().Context(), actor, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toIssueResponse(issue))
}

// List returns the issues visible to the caller, newest first.
//
// @Summary      List issues
// @Tags         issues
// @Produce      json
// @Security     BearerAuth
// @Param        skip   query     int  false  "Offset"     default(0)
// @Param        limit  query     int  false  "Page size"  default(100)
// @Success      200    {object}  listIssuesResponse
// @Router       /api/v1/issues [get]
func (h *IssueHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}

	issues, err := h.service.List(c.Request().Context(), actor, page)
	if err != nil {
		return err
	}

	page = page.Normalize()
	resp := listIssuesResponse{Data: make([]issueResponse, 0, len(issues)), Skip: page.Skip, Limit: page.Limit}
	for _, i := range issues {
		resp.Data = append(resp.Data, toIssueResponse(i))
	}
	return c.JSON(http.StatusOK, resp)
}

// Get returns one issue.
//
// @Summary      Get issue
// @Tags         issues
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Issue ID"
// @Success      200  {object}  issueResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/v1/issues/{id} [get]
func (h *IssueHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	issue, err := h.service.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toIssueResponse(issue))
}

// Update applies a partial change to an issue.
//
// @Summary      Update issue
// @Tags         issues
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Issue ID"
// @Param        body  body      updateIssueRequest  true  "Fields to change"
// @Success      200   {object}  issueResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/v1/issues/{id} [patch]
// @Router       /api/v1/issues/{id} [put]
func (h *IssueHandler) Update(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req updateIssueRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	patch, err := toIssuePatch(req)
	if err != nil {
		return err
	}

	issue, err := h.service.Update(c.Request().Context(), actor, c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toIssueResponse(issue))
}

// Delete removes an issue. ADMIN only.
//
// @Summary      Delete issue
// @Tags         issues
// @Security     BearerAuth
// @Param        id   path  string  true  "Issue ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/v1/issues/{id} [delete]
func (h *IssueHandler) Delete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), actor, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
