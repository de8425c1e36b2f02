package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/globalbi/admin-api/internal/api/middleware"
)

// ctxClaims extracts the claims injected by the Auth middleware. A missing
// subject means the route was registered without Auth and is rejected.
func ctxClaims(c echo.Context) (userID, role string, err error) {
	userID, _ = c.Get(middleware.CtxUserID).(string)
	if userID == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	role, _ = c.Get(middleware.CtxRole).(string)
	return userID, role, nil
}

// bindAndValidate decodes the request body into req and runs the registered
// validator over it.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
