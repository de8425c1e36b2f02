package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/globalbi/admin-api/internal/core/domain"
	"github.com/globalbi/admin-api/internal/core/ports"
)

// RoleHandler serves /roles. Every route is MASTER only.
type RoleHandler struct {
	service ports.RoleService
}

func NewRoleHandler(service ports.RoleService) *RoleHandler {
	return &RoleHandler{service: service}
}

// Create handles POST /roles.
//
// @Summary      Create a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createRoleRequest  true  "Role details"
// @Success      201   {object}  domain.Role
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /roles [post]
func (h *RoleHandler) Create(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req createRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	role, err := h.service.Create(c.Request().Context(), actorID, ports.CreateRoleInput{
		Name:        req.Name,
		Description: req.Description,
		StaffStatus: req.StaffStatus,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, role)
}

// List handles GET /roles.
//
// @Summary      List roles with user counts
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Role
// @Failure      403  {object}  errorResponse
// @Router       /roles [get]
func (h *RoleHandler) List(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	roles, err := h.service.List(c.Request().Context(), actorID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, roles)
}

// Get handles GET /roles/:id.
//
// @Summary      Get a role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Role id"
// @Success      200  {object}  domain.Role
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /roles/{id} [get]
func (h *RoleHandler) Get(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	role, err := h.service.Get(c.Request().Context(), actorID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, role)
}

// Update handles PATCH /roles/:id.
//
// @Summary      Update a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Role id"
// @Param        body  body      updateRoleRequest  true  "Fields to change"
// @Success      200   {object}  domain.Role
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /roles/{id} [patch]
func (h *RoleHandler) Update(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req updateRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	role, err := h.service.Update(c.Request().Context(), actorID, c.Param("id"), domain.RolePatch{
		Name:        req.Name,
		Description: req.Description,
		StaffStatus: req.StaffStatus,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, role)
}

// Delete handles DELETE /roles/:id. Roles still assigned to users must be
// migrated first.
//
// @Summary      Delete a role
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Role id"
// @Success      200  {object}  deleteRoleResponse
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /roles/{id} [delete]
func (h *RoleHandler) Delete(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	role, err := h.service.Delete(c.Request().Context(), actorID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, deleteRoleResponse{Message: "role deleted", Role: role})
}

// Migrate handles POST /roles/migrate.
//
// @Summary      Move every user from one role to another
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      migrateRoleRequest  true  "Source and target roles"
// @Success      200   {object}  domain.MigrationResult
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /roles/migrate [post]
func (h *RoleHandler) Migrate(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req migrateRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.service.Migrate(c.Request().Context(), actorID, req.FromRoleID, req.ToRoleID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
