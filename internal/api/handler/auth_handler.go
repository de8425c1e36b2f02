package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/globalbi/admin-api/internal/api/metrics"
	"github.com/globalbi/admin-api/internal/api/middleware"
	"github.com/globalbi/admin-api/internal/core/domain"
	"github.com/globalbi/admin-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new user account. The first user needs no token and
// becomes MASTER; afterwards only MASTER callers may register users.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	requesterID, _ := c.Get(middleware.CtxUserID).(string)
	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Name:            req.Name,
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}, requesterID)
	if err != nil {
		return err
	}

	kind := "invited"
	if requesterID == "" {
		kind = "bootstrap"
	}
	metrics.RegistrationsTotal.WithLabelValues(kind).Inc()

	return c.JSON(http.StatusCreated, userResponse{User: user})
}

// Login authenticates by email or username and returns both tokens.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  ports.LoginResult
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), req.Identifier, req.Password)
	metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func loginResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return "locked"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "invalid_credentials"
	default:
		return "error"
	}
}

// Refresh mints a new access token from a refresh token sent in the body
// field refreshToken or as a bearer token.
//
// @Summary      Refresh the access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  false  "Refresh token (alternatively sent as bearer)"
// @Success      200   {object}  ports.RefreshResult
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	token := req.RefreshToken
	if token == "" {
		token, _ = middleware.BearerToken(c.Request())
	}
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token is required")
	}

	result, err := h.authService.Refresh(c.Request().Context(), token)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("rejected").Inc()
		return err
	}
	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()

	return c.JSON(http.StatusOK, result)
}

// Logout clears the caller's stored refresh token. Repeated calls succeed.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	if err := h.authService.Logout(c.Request().Context(), userID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}

// MasterCheck confirms the caller holds the bootstrap role. The route is
// guarded by RequireRole, so reaching the handler is the answer.
//
// @Summary      Check for the MASTER role
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  okResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /auth/me/master-check [get]
func (h *AuthHandler) MasterCheck(c echo.Context) error {
	if _, _, err := ctxClaims(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}
