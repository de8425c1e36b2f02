package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/globalbi/admin-api/internal/core/domain"
	"github.com/globalbi/admin-api/internal/core/ports"
)

// UserService applies row-level security around user CRUD.
type UserService struct {
	users  ports.UserRepository
	roles  ports.RoleRepository
	hasher ports.PasswordHasher
	policy accessPolicy
	log    zerolog.Logger
}

func NewUserService(users ports.UserRepository, roles ports.RoleRepository, groups ports.GroupRepository, hasher ports.PasswordHasher, log zerolog.Logger) *UserService {
	return &UserService{
		users:  users,
		roles:  roles,
		hasher: hasher,
		policy: accessPolicy{users: users, groups: groups},
		log:    log,
	}
}

// Create adds a user with an explicit role. Staff only.
func (s *UserService) Create(ctx context.Context, actorID string, in ports.CreateUserInput) (*domain.SafeUser, error) {
	if _, err := s.policy.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}
	if err := ensureUniqueIdentity(ctx, s.users, in.Email, in.Username, ""); err != nil {
		return nil, err
	}
	if _, err := s.findRole(ctx, in.RoleID); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Create(ctx, domain.NewUser{
		Name:         in.Name,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		RoleID:       in.RoleID,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("actor_id", actorID).Str("user_id", user.ID).Msg("user created")
	return user, nil
}

// List returns every user to staff and only the caller to everyone else.
func (s *UserService) List(ctx context.Context, actorID string) ([]domain.SafeUser, error) {
	actor, err := s.policy.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return []domain.SafeUser{*actor}, nil
	}
	return s.users.List(ctx)
}

func (s *UserService) Get(ctx context.Context, actorID, id string) (*domain.SafeUser, error) {
	actor, err := s.policy.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.canAccessUser(actor, id); err != nil {
		return nil, err
	}
	return s.findUser(ctx, id)
}

// Update patches a user. Non-staff callers may only patch themselves and
// may not change their own role.
func (s *UserService) Update(ctx context.Context, actorID, id string, in ports.UpdateUserInput) (*domain.SafeUser, error) {
	actor, err := s.policy.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.canAccessUser(actor, id); err != nil {
		return nil, err
	}
	if in.RoleID != nil && !actor.IsStaff() {
		return nil, domain.Errorf(domain.ErrForbidden, "only staff users can change roles")
	}

	target, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	var email, username string
	if in.Email != nil && *in.Email != target.Email {
		email = *in.Email
	}
	if in.Username != nil && *in.Username != target.Username {
		username = *in.Username
	}
	if err := ensureUniqueIdentity(ctx, s.users, email, username, target.ID); err != nil {
		return nil, err
	}
	if in.RoleID != nil {
		if _, err := s.findRole(ctx, *in.RoleID); err != nil {
			return nil, err
		}
	}

	patch := domain.UserPatch{
		Name:     in.Name,
		Username: in.Username,
		Email:    in.Email,
		RoleID:   in.RoleID,
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}
	if patch.Empty() {
		return target, nil
	}

	updated, err := s.users.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("actor_id", actorID).Str("user_id", id).Msg("user updated")
	return updated, nil
}

// Delete removes a user. Staff only; nobody may delete themselves.
func (s *UserService) Delete(ctx context.Context, actorID, id string) (*domain.SafeUser, error) {
	actor, err := s.policy.requireStaff(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.ID == id {
		return nil, domain.ErrSelfDeletion
	}

	target, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return nil, err
	}

	s.log.Info().Str("actor_id", actorID).Str("user_id", id).Msg("user deleted")
	return target, nil
}

func (s *UserService) findUser(ctx context.Context, id string) (*domain.SafeUser, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *UserService) findRole(ctx context.Context, id string) (*domain.Role, error) {
	r, err := s.roles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, err
	}
	return r, nil
}
