package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/insights/issue-tracker/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Token exchanges an identity and secret for a bearer token.
//
// @Summary      Issue an access token
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      tokenRequest  true  "Credentials"
// @Success      200   {object}  tokenResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/v1/token [post]
func (h *AuthHandler) Token(c echo.Context) error {
	var req tokenRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}

	token, _, err := h.authService.Authenticate(c.Request().Context(), req.identity(), req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token.Token,
		TokenType:   token.TokenType,
	})
}
