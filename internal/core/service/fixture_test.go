package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/globalbi/admin-api/internal/core/domain"
	"github.com/globalbi/admin-api/internal/infrastructure/security"
)

// world is a seeded store with one user per default role.
type world struct {
	store  *memStore
	roles  map[string]*domain.Role
	master *domain.SafeUser
	admin  *domain.SafeUser
	plain  *domain.SafeUser
	users  *UserService
	groups *GroupService
	roleSv *RoleService
}

func newWorld(t *testing.T) *world {
	t.Helper()
	store := newMemStore()
	roles := store.seedRoles()
	w := &world{store: store, roles: roles}

	w.master = w.addUser(t, "master", domain.BootstrapRoleName)
	w.admin = w.addUser(t, "admin", domain.AdminRoleName)
	w.plain = w.addUser(t, "plain", domain.DefaultRoleName)

	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	w.users = NewUserService(store.usersRepo(), store.rolesRepo(), store.groupsRepo(), hasher, zerolog.Nop())
	w.groups = NewGroupService(store.groupsRepo(), store.usersRepo(), zerolog.Nop())
	w.roleSv = NewRoleService(store.rolesRepo(), store.usersRepo(), zerolog.Nop())
	return w
}

func (w *world) addUser(t *testing.T, name, role string) *domain.SafeUser {
	t.Helper()
	u, err := w.store.usersRepo().Create(context.Background(), domain.NewUser{
		Name:         name,
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		RoleID:       w.roles[role].ID,
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return u
}

func (w *world) addGroup(t *testing.T, name string, members ...*domain.SafeUser) *domain.Group {
	t.Helper()
	ctx := context.Background()
	g, err := w.store.groupsRepo().Create(ctx, name, "")
	if err != nil {
		t.Fatalf("seed group %s: %v", name, err)
	}
	for _, m := range members {
		if _, err := w.store.groupsRepo().AddMember(ctx, g.ID, m.ID); err != nil {
			t.Fatalf("seed membership: %v", err)
		}
	}
	return g
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
