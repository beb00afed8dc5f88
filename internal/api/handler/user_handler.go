package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/insights/issue-tracker/internal/core/ports"
)

// UserHandler handles HTTP requests for identity operations.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Register creates a REPORTER identity.
//
// @Summary      Register
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "New identity"
// @Success      201   {object}  userResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/v1/users [post]
func (h *UserHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	user, err := h.service.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// Me returns the authenticated identity.
//
// @Summary      Current identity
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/v1/users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// List returns a page of identities. ADMIN only.
//
// @Summary      List identities
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        skip   query     int  false  "Offset"      default(0)
// @Param        limit  query     int  false  "Page size"   default(100)
// @Success      200    {object}  listUsersResponse
// @Failure      403    {object}  errorResponse
// @Router       /api/v1/users [get]
func (h *UserHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}

	users, err := h.service.List(c.Request().Context(), actor, page)
	if err != nil {
		return err
	}

	page = page.Normalize()
	resp := listUsersResponse{Data: make([]userResponse, 0, len(users)), Skip: page.Skip, Limit: page.Limit}
	for _, u := range users {
		resp.Data = append(resp.Data, toUserResponse(u))
	}
	return c.JSON(http.StatusOK, resp)
}

// Get returns one identity.
//
// @Summary      Get identity
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Identity ID"
// @Success      200  {object}  userResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/v1/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	user, err := h.service.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Update changes an identity. Self or ADMIN.
//
// @Summary      Update identity
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Identity ID"
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  userResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/v1/users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req updateUserRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	patch, err := toUserPatch(req)
	if err != nil {
		return err
	}

	user, err := h.service.Update(c.Request().Context(), actor, c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Delete removes an identity. ADMIN only.
//
// @Summary      Delete identity
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  string  true  "Identity ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/v1/users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), actor, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
