package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/globalbi/admin-api/internal/core/domain"
	"github.com/globalbi/admin-api/internal/core/ports"
)

// GroupHandler serves /groups and group membership.
type GroupHandler struct {
	service ports.GroupService
}

func NewGroupHandler(service ports.GroupService) *GroupHandler {
	return &GroupHandler{service: service}
}

// Create handles POST /groups.
//
// @Summary      Create a group (staff only)
// @Tags         groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createGroupRequest  true  "Group details"
// @Success      201   {object}  domain.Group
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /groups [post]
func (h *GroupHandler) Create(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req createGroupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	group, err := h.service.Create(c.Request().Context(), actorID, req.Name, req.Description)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, group)
}

// List handles GET /groups. Non-staff callers see only their own groups.
//
// @Summary      List groups
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Group
// @Failure      401  {object}  errorResponse
// @Router       /groups [get]
func (h *GroupHandler) List(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	groups, err := h.service.List(c.Request().Context(), actorID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, groups)
}

// Get handles GET /groups/:id.
//
// @Summary      Get a group with its members
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Group id"
// @Success      200  {object}  domain.GroupDetail
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /groups/{id} [get]
func (h *GroupHandler) Get(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	detail, err := h.service.Get(c.Request().Context(), actorID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, detail)
}

// Update handles PATCH /groups/:id.
//
// @Summary      Update a group (staff only)
// @Tags         groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Group id"
// @Param        body  body      updateGroupRequest  true  "Fields to change"
// @Success      200   {object}  domain.Group
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /groups/{id} [patch]
func (h *GroupHandler) Update(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req updateGroupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	group, err := h.service.Update(c.Request().Context(), actorID, c.Param("id"), domain.GroupPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, group)
}

// Delete handles DELETE /groups/:id.
//
// @Summary      Delete a group (staff only)
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Group id"
// @Success      200  {object}  deleteGroupResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /groups/{id} [delete]
func (h *GroupHandler) Delete(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	group, err := h.service.Delete(c.Request().Context(), actorID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, deleteGroupResponse{Message: "group deleted", Group: group})
}

// Members handles GET /groups/:id/users.
//
// @Summary      List group members
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Group id"
// @Success      200  {array}   domain.GroupMember
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /groups/{id}/users [get]
func (h *GroupHandler) Members(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	members, err := h.service.Members(c.Request().Context(), actorID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, members)
}

// AddMember handles POST /groups/:id/users.
//
// @Summary      Add a user to a group (staff only)
// @Tags         groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "Group id"
// @Param        body  body      addMemberRequest  true  "User to add"
// @Success      201   {object}  domain.Membership
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /groups/{id}/users [post]
func (h *GroupHandler) AddMember(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req addMemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	membership, err := h.service.AddMember(c.Request().Context(), actorID, c.Param("id"), req.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, membership)
}

// RemoveMember handles DELETE /groups/:id/users/:userId.
//
// @Summary      Remove a user from a group (staff only)
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      string  true  "Group id"
// @Param        userId  path      string  true  "User id"
// @Success      200     {object}  messageResponse
// @Failure      400     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Failure      404     {object}  errorResponse
// @Router       /groups/{id}/users/{userId} [delete]
func (h *GroupHandler) RemoveMember(c echo.Context) error {
	actorID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	if err := h.service.RemoveMember(c.Request().Context(), actorID, c.Param("id"), c.Param("userId")); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "user removed from group"})
}
