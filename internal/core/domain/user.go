package domain

import "time"

// RoleRef is the role summary carried by every user view.
type RoleRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	StaffStatus bool   `json:"staffStatus"`
}

// SafeUser is the redacted user projection. It is the only user shape that
// leaves the credential store; hashes never appear on it.
type SafeUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      RoleRef   `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsStaff reports whether the user's role grants unrestricted visibility.
func (u *SafeUser) IsStaff() bool {
	return u != nil && u.Role.StaffStatus
}

// Credentials pairs a user with its secret material. Only the
// authentication service consumes it.
type Credentials struct {
	User             SafeUser
	PasswordHash     string
	RefreshTokenHash *string
}

// NewUser carries what the store needs to insert a user.
type NewUser struct {
	Name         string
	Username     string
	Email        string
	PasswordHash string
	RoleID       string
}

// UserPatch is a partial update; nil fields are left untouched.
type UserPatch struct {
	Name         *string
	Username     *string
	Email        *string
	PasswordHash *string
	RoleID       *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Username == nil && p.Email == nil && p.PasswordHash == nil && p.RoleID == nil
}

// Claims is the payload carried by both access and refresh tokens.
type Claims struct {
	Subject string
	Role    string
	Email   string
}
