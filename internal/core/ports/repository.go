package ports

import (
	"context"

	"github.com/globalbi/admin-api/internal/core/domain"
)

// UserRepository is the credential store. Read methods return the redacted
// SafeUser; secret material is only reachable through the Credentials*
// methods. Implementations must enforce email and username uniqueness
// themselves and report violations as domain.ErrEmailTaken /
// domain.ErrUsernameTaken.
type UserRepository interface {
	Create(ctx context.Context, user domain.NewUser) (*domain.SafeUser, error)
	// CreateFirst inserts user only while the store holds no users and
	// returns domain.ErrAlreadyBootstrapped otherwise. Concurrent callers
	// are serialized so at most one succeeds.
	CreateFirst(ctx context.Context, user domain.NewUser) (*domain.SafeUser, error)
	FindByID(ctx context.Context, id string) (*domain.SafeUser, error)
	FindByEmail(ctx context.Context, email string) (*domain.SafeUser, error)
	FindByUsername(ctx context.Context, username string) (*domain.SafeUser, error)
	// List returns every user, newest first.
	List(ctx context.Context) ([]domain.SafeUser, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.SafeUser, error)
	// Delete removes the user and every membership referencing it.
	Delete(ctx context.Context, id string) error

	CredentialsByEmail(ctx context.Context, email string) (*domain.Credentials, error)
	CredentialsByUsername(ctx context.Context, username string) (*domain.Credentials, error)
	CredentialsByID(ctx context.Context, id string) (*domain.Credentials, error)
	// SetRefreshTokenHash replaces the stored hash; nil clears it.
	SetRefreshTokenHash(ctx context.Context, userID string, hash *string) error
}

// RoleRepository persists roles. Name uniqueness is enforced by the store
// and reported as domain.ErrRoleNameTaken.
type RoleRepository interface {
	Create(ctx context.Context, role domain.Role) (*domain.Role, error)
	FindByID(ctx context.Context, id string) (*domain.Role, error)
	FindByName(ctx context.Context, name string) (*domain.Role, error)
	// List returns every role with its user count, oldest first.
	List(ctx context.Context) ([]domain.Role, error)
	Update(ctx context.Context, id string, patch domain.RolePatch) (*domain.Role, error)
	Delete(ctx context.Context, id string) error
	CountUsers(ctx context.Context, roleID string) (int64, error)
	// MigrateUsers reassigns every user of from to to in one write.
	MigrateUsers(ctx context.Context, from, to string) (int64, error)
}

// GroupRepository persists groups and memberships. Group names and
// (user, group) pairs are unique at the store level.
type GroupRepository interface {
	Create(ctx context.Context, name, description string) (*domain.Group, error)
	FindByID(ctx context.Context, id string) (*domain.Group, error)
	FindByName(ctx context.Context, name string) (*domain.Group, error)
	// List returns every group, newest first.
	List(ctx context.Context) ([]domain.Group, error)
	// ListByMember returns the groups userID belongs to, newest first.
	ListByMember(ctx context.Context, userID string) ([]domain.Group, error)
	Update(ctx context.Context, id string, patch domain.GroupPatch) (*domain.Group, error)
	// Delete removes the group and its memberships.
	Delete(ctx context.Context, id string) error

	AddMember(ctx context.Context, groupID, userID string) (*domain.Membership, error)
	RemoveMember(ctx context.Context, groupID, userID string) error
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	// Members returns the group's members ordered by join time.
	Members(ctx context.Context, groupID string) ([]domain.GroupMember, error)
}

// Store bundles the repositories a backend provides.
type Store interface {
	Users() UserRepository
	Roles() RoleRepository
	Groups() GroupRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
