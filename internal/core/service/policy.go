package service

import (
	"context"
	"errors"

	"github.com/globalbi/admin-api/internal/core/domain"
	"github.com/globalbi/admin-api/internal/core/ports"
)

var errActorGone = domain.Errorf(domain.ErrUnauthenticated, "authenticated user no longer exists")

// accessPolicy is the two-tier authorization model shared by the Users,
// Groups and Roles services. The caller's role is resolved from the store on
// every decision; nothing is cached between requests.
type accessPolicy struct {
	users  ports.UserRepository
	groups ports.GroupRepository
}

// actor loads the caller by id.
func (p accessPolicy) actor(ctx context.Context, actorID string) (*domain.SafeUser, error) {
	u, err := p.users.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errActorGone
		}
		return nil, err
	}
	return u, nil
}

func (p accessPolicy) requireStaff(ctx context.Context, actorID string) (*domain.SafeUser, error) {
	a, err := p.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !a.IsStaff() {
		return nil, domain.ErrStaffOnly
	}
	return a, nil
}

func (p accessPolicy) requireBootstrap(ctx context.Context, actorID string) (*domain.SafeUser, error) {
	a, err := p.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if a.Role.Name != domain.BootstrapRoleName {
		return nil, domain.ErrBootstrapOnly
	}
	return a, nil
}

// canAccessUser: staff may touch any user, everyone else only themselves.
func (p accessPolicy) canAccessUser(actor *domain.SafeUser, targetID string) error {
	if actor.IsStaff() || actor.ID == targetID {
		return nil
	}
	return domain.Errorf(domain.ErrForbidden, "you are not allowed to access this user")
}

// canReadGroup: staff may read any group, everyone else only groups they
// belong to. Non-members get the same answer whether or not the group exists.
func (p accessPolicy) canReadGroup(ctx context.Context, actor *domain.SafeUser, groupID string) error {
	if actor.IsStaff() {
		return nil
	}
	member, err := p.groups.IsMember(ctx, groupID, actor.ID)
	if err != nil {
		return err
	}
	if !member {
		return domain.Errorf(domain.ErrForbidden, "you are not allowed to access this group")
	}
	return nil
}
