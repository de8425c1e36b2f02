package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/globalbi/admin-api/internal/core/domain"
)

// Context keys set by Auth and OptionalAuth.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxEmail  = "email"
)

// Authenticator verifies an access token. ports.AuthService satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domain.Claims, error)
}

// Auth requires a valid access token and injects its claims into context.
func Auth(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			if err := authenticate(c, authn); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// OptionalAuth lets anonymous requests through but rejects a bad token when
// one is presented.
func OptionalAuth(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return next(c)
			}
			if err := authenticate(c, authn); err != nil {
				return err
			}
			return next(c)
		}
	}
}

func authenticate(c echo.Context, authn Authenticator) error {
	token, ok := BearerToken(c.Request())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}

	claims, err := authn.Authenticate(c.Request().Context(), token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	c.Set(CtxUserID, claims.Subject)
	c.Set(CtxRole, claims.Role)
	c.Set(CtxEmail, claims.Email)
	return nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
