package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/globalbi/admin-api/internal/core/ports"
)

// UserHandler serves /users. Visibility rules live in the service; the
// handler only forwards the caller id.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Create handles POST /users.
//
// @Summary      Create a user (staff only)
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "User details"
// @Success      201   {object}  domain.SafeUser
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.Create(c.Request().Context(), actorID, ports.CreateUserInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		RoleID:   req.RoleID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user)
}

// List handles GET /users. Non-staff callers receive only themselves.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.SafeUser
// @Failure      401  {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	users, err := h.service.List(c.Request().Context(), actorID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, users)
}

// Get handles GET /users/:id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  domain.SafeUser
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	user, err := h.service.Get(c.Request().Context(), actorID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

// Update handles PATCH /users/:id.
//
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User id"
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  domain.SafeUser
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /users/{id} [patch]
func (h *UserHandler) Update(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.Update(c.Request().Context(), actorID, c.Param("id"), ports.UpdateUserInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		RoleID:   req.RoleID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, user)
}

// Delete handles DELETE /users/:id.
//
// @Summary      Delete a user (staff only)
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  deleteUserResponse
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	user, err := h.service.Delete(c.Request().Context(), actorID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, deleteUserResponse{Message: "user deleted", User: user})
}
