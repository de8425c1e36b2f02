package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/globalbi/admin-api/internal/core/domain"
	"github.com/globalbi/admin-api/internal/core/ports"
)

// RoleService manages roles. Every gated operation requires the caller to
// hold the bootstrap role.
type RoleService struct {
	roles  ports.RoleRepository
	policy accessPolicy
	log    zerolog.Logger
}

func NewRoleService(roles ports.RoleRepository, users ports.UserRepository, log zerolog.Logger) *RoleService {
	return &RoleService{
		roles:  roles,
		policy: accessPolicy{users: users},
		log:    log,
	}
}

func (s *RoleService) Create(ctx context.Context, actorID string, in ports.CreateRoleInput) (*domain.Role, error) {
	if _, err := s.policy.requireBootstrap(ctx, actorID); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, in.Name, ""); err != nil {
		return nil, err
	}

	r, err := s.roles.Create(ctx, domain.Role{
		Name:        in.Name,
		Description: in.Description,
		IsDeletable: true,
		StaffStatus: in.StaffStatus,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("actor_id", actorID).Str("role", r.Name).Msg("role created")
	return r, nil
}

func (s *RoleService) List(ctx context.Context, actorID string) ([]domain.Role, error) {
	if _, err := s.policy.requireBootstrap(ctx, actorID); err != nil {
		return nil, err
	}
	return s.roles.List(ctx)
}

func (s *RoleService) Get(ctx context.Context, actorID, id string) (*domain.Role, error) {
	if _, err := s.policy.requireBootstrap(ctx, actorID); err != nil {
		return nil, err
	}
	return s.findRole(ctx, id)
}

// Update renames or re-describes a role. A protected role keeps its name and
// its staff status.
func (s *RoleService) Update(ctx context.Context, actorID, id string, patch domain.RolePatch) (*domain.Role, error) {
	if _, err := s.policy.requireBootstrap(ctx, actorID); err != nil {
		return nil, err
	}
	r, err := s.findRole(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && *patch.Name != r.Name {
		if !r.IsDeletable {
			return nil, domain.Errorf(domain.ErrValidation, "role %q is protected and cannot be renamed", r.Name)
		}
		if err := s.ensureUniqueName(ctx, *patch.Name, r.ID); err != nil {
			return nil, err
		}
	}
	if patch.StaffStatus != nil && !*patch.StaffStatus && !r.IsDeletable {
		return nil, domain.Errorf(domain.ErrValidation, "role %q is protected and must keep staff status", r.Name)
	}
	if patch.Name == nil && patch.Description == nil && patch.StaffStatus == nil {
		return r, nil
	}

	updated, err := s.roles.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("actor_id", actorID).Str("role", updated.Name).Msg("role updated")
	return updated, nil
}

// Delete removes a deletable role that no user references.
func (s *RoleService) Delete(ctx context.Context, actorID, id string) (*domain.Role, error) {
	if _, err := s.policy.requireBootstrap(ctx, actorID); err != nil {
		return nil, err
	}
	r, err := s.findRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.IsDeletable {
		return nil, domain.Errorf(domain.ErrValidation, "role %q is protected and cannot be deleted", r.Name)
	}

	n, err := s.roles.CountUsers(ctx, id)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, domain.Errorf(domain.ErrConflict,
			"role %q has %d assigned user(s); migrate them with POST /roles/migrate first", r.Name, n)
	}

	if err := s.roles.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.log.Info().Str("actor_id", actorID).Str("role", r.Name).Msg("role deleted")
	return r, nil
}

// Migrate moves every user of role from to role to.
func (s *RoleService) Migrate(ctx context.Context, actorID, from, to string) (*domain.MigrationResult, error) {
	if _, err := s.policy.requireBootstrap(ctx, actorID); err != nil {
		return nil, err
	}
	if from == to {
		return nil, domain.ErrSameRole
	}
	fromRole, err := s.findRole(ctx, from)
	if err != nil {
		return nil, err
	}
	toRole, err := s.findRole(ctx, to)
	if err != nil {
		return nil, err
	}

	n, err := s.roles.CountUsers(ctx, from)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.Errorf(domain.ErrValidation, "role %q has no users to migrate", fromRole.Name)
	}

	moved, err := s.roles.MigrateUsers(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("actor_id", actorID).Str("from", fromRole.Name).Str("to", toRole.Name).Int64("users", moved).Msg("role migrated")
	return &domain.MigrationResult{From: fromRole.Name, To: toRole.Name, UsersMigrated: moved}, nil
}

// EnsureDefaults creates whichever default roles are missing and returns the
// full default set as stored.
func (s *RoleService) EnsureDefaults(ctx context.Context) ([]domain.Role, error) {
	defaults := domain.DefaultRoles()
	out := make([]domain.Role, 0, len(defaults))
	for _, def := range defaults {
		r, err := s.roles.FindByName(ctx, def.Name)
		if errors.Is(err, domain.ErrNotFound) {
			r, err = s.roles.Create(ctx, def)
			if errors.Is(err, domain.ErrConflict) {
				r, err = s.roles.FindByName(ctx, def.Name)
			} else if err == nil {
				s.log.Info().Str("role", r.Name).Msg("default role created")
			}
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *RoleService) findRole(ctx context.Context, id string) (*domain.Role, error) {
	r, err := s.roles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *RoleService) ensureUniqueName(ctx context.Context, name, selfID string) error {
	r, err := s.roles.FindByName(ctx, name)
	if err == nil && r.ID != selfID {
		return domain.ErrRoleNameTaken
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}
