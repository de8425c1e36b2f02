package ports

import (
	"context"

	"github.com/globalbi/admin-api/internal/core/domain"
)

// CreateUserInput is a staff-driven user creation.
type CreateUserInput struct {
	Name     string
	Username string
	Email    string
	Password string
	RoleID   string
}

// UpdateUserInput is a partial user update; nil fields are untouched.
type UpdateUserInput struct {
	Name     *string
	Username *string
	Email    *string
	Password *string
	RoleID   *string
}

// Every method takes the caller's user id as actorID; the authorization
// policy resolves the caller's role from the store on each call.

type UserService interface {
	Create(ctx context.Context, actorID string, in CreateUserInput) (*domain.SafeUser, error)
	List(ctx context.Context, actorID string) ([]domain.SafeUser, error)
	Get(ctx context.Context, actorID, id string) (*domain.SafeUser, error)
	Update(ctx context.Context, actorID, id string, in UpdateUserInput) (*domain.SafeUser, error)
	Delete(ctx context.Context, actorID, id string) (*domain.SafeUser, error)
}

type GroupService interface {
	Create(ctx context.Context, actorID, name, description string) (*domain.Group, error)
	List(ctx context.Context, actorID string) ([]domain.Group, error)
	Get(ctx context.Context, actorID, id string) (*domain.GroupDetail, error)
	Update(ctx context.Context, actorID, id string, patch domain.GroupPatch) (*domain.Group, error)
	Delete(ctx context.Context, actorID, id string) (*domain.Group, error)
	AddMember(ctx context.Context, actorID, groupID, userID string) (*domain.Membership, error)
	RemoveMember(ctx context.Context, actorID, groupID, userID string) error
	Members(ctx context.Context, actorID, groupID string) ([]domain.GroupMember, error)
}

// CreateRoleInput creates a deletable role.
type CreateRoleInput struct {
	Name        string
	Description string
	StaffStatus bool
}

type RoleService interface {
	Create(ctx context.Context, actorID string, in CreateRoleInput) (*domain.Role, error)
	List(ctx context.Context, actorID string) ([]domain.Role, error)
	Get(ctx context.Context, actorID, id string) (*domain.Role, error)
	Update(ctx context.Context, actorID, id string, patch domain.RolePatch) (*domain.Role, error)
	Delete(ctx context.Context, actorID, id string) (*domain.Role, error)
	Migrate(ctx context.Context, actorID, from, to string) (*domain.MigrationResult, error)
	// EnsureDefaults creates any missing default role. It is not gated and
	// is only reachable from the seed command.
	EnsureDefaults(ctx context.Context) ([]domain.Role, error)
}
