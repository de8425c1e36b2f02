package domain

import "time"

const (
	// BootstrapRoleName is the non-deletable staff role given to the first user.
	BootstrapRoleName = "MASTER"
	// DefaultRoleName is assigned to every user registered after the first.
	DefaultRoleName = "USER"
	// AdminRoleName is a deletable staff role created by the seed.
	AdminRoleName = "ADMIN"
)

// Role is a named permission tier.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsDeletable bool      `json:"isDeletable"`
	StaffStatus bool      `json:"staffStatus"`
	UserCount   int64     `json:"userCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Ref returns the summary embedded in user views.
func (r *Role) Ref() RoleRef {
	return RoleRef{ID: r.ID, Name: r.Name, StaffStatus: r.StaffStatus}
}

// RolePatch is a partial role update.
type RolePatch struct {
	Name        *string
	Description *string
	StaffStatus *bool
}

// MigrationResult reports a bulk role reassignment.
type MigrationResult struct {
	From          string `json:"from"`
	To            string `json:"to"`
	UsersMigrated int64  `json:"usersMigrated"`
}

// DefaultRoles are the roles every installation must have. The seed creates
// any that are missing and never modifies existing ones.
func DefaultRoles() []Role {
	return []Role{
		{Name: BootstrapRoleName, Description: "Primary system role, cannot be deleted", IsDeletable: false, StaffStatus: true},
		{Name: AdminRoleName, Description: "System administrator", IsDeletable: true, StaffStatus: true},
		{Name: DefaultRoleName, Description: "Regular user", IsDeletable: true, StaffStatus: false},
	}
}
