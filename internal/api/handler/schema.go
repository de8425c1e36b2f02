package handler

import "github.com/globalbi/admin-api/internal/core/domain"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// --- Auth ---

type registerRequest struct {
	Name            string `json:"name"            validate:"required,max=100"`
	Username        string `json:"username"        validate:"required,min=3,max=50"`
	Email           string `json:"email"           validate:"required,email,max=255"`
	Password        string `json:"password"        validate:"required,min=6,maxbytes=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=255"`
	Password   string `json:"password"   validate:"required,max=72"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userResponse struct {
	User *domain.SafeUser `json:"user"`
}

// --- Users ---

type createUserRequest struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
	RoleID   string `json:"roleId"   validate:"required,uuid"`
}

type updateUserRequest struct {
	Name     *string `json:"name"     validate:"omitempty,min=1,max=100"`
	Username *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email    *string `json:"email"    validate:"omitempty,email,max=255"`
	Password *string `json:"password" validate:"omitempty,min=6,maxbytes=72"`
	RoleID   *string `json:"roleId"   validate:"omitempty,uuid"`
}

type deleteUserResponse struct {
	Message string           `json:"message"`
	User    *domain.SafeUser `json:"user"`
}

// --- Groups ---

type createGroupRequest struct {
	Name        string `json:"name"        validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type updateGroupRequest struct {
	Name        *string `json:"name"        validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type addMemberRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

type deleteGroupResponse struct {
	Message string        `json:"message"`
	Group   *domain.Group `json:"group"`
}

// --- Roles ---

type createRoleRequest struct {
	Name        string `json:"name"        validate:"required,max=50"`
	Description string `json:"description" validate:"max=255"`
	StaffStatus bool   `json:"staffStatus"`
}

type updateRoleRequest struct {
	Name        *string `json:"name"        validate:"omitempty,min=1,max=50"`
	Description *string `json:"description" validate:"omitempty,max=255"`
	StaffStatus *bool   `json:"staffStatus"`
}

type migrateRoleRequest struct {
	FromRoleID string `json:"fromRoleId" validate:"required,uuid"`
	ToRoleID   string `json:"toRoleId"   validate:"required,uuid"`
}

type deleteRoleResponse struct {
	Message string       `json:"message"`
	Role    *domain.Role `json:"role"`
}
