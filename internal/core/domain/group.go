package domain

import "time"

// Group is a named collection of users used for row-level scoping.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	MemberCount int64     `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GroupPatch is a partial group update.
type GroupPatch struct {
	Name        *string
	Description *string
}

// Membership links one user to one group. At most one exists per pair.
type Membership struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	GroupID   string    `json:"groupId"`
	CreatedAt time.Time `json:"joinedAt"`
}

// GroupMember is a member's safe view plus the time they joined.
type GroupMember struct {
	SafeUser
	JoinedAt time.Time `json:"joinedAt"`
}

// GroupDetail is a group together with its members.
type GroupDetail struct {
	Group
	Members []GroupMember `json:"members"`
}
