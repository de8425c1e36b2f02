package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/globalbi/admin-api/internal/core/domain"
	"github.com/globalbi/admin-api/internal/core/ports"
)

// SeedUser describes the optional first MASTER account.
type SeedUser struct {
	Name     string
	Username string
	Email    string
	Password string
}

// SeedReport summarises what a seed run changed.
type SeedReport struct {
	Roles         []domain.Role
	MasterCreated bool
	MasterID      string
}

// Seeder prepares a fresh installation. Running it twice is a no-op.
type Seeder struct {
	roles  ports.RoleService
	users  ports.UserRepository
	rolesR ports.RoleRepository
	hasher ports.PasswordHasher
	log    zerolog.Logger
}

func NewSeeder(roles ports.RoleService, users ports.UserRepository, rolesRepo ports.RoleRepository, hasher ports.PasswordHasher, log zerolog.Logger) *Seeder {
	return &Seeder{roles: roles, users: users, rolesR: rolesRepo, hasher: hasher, log: log}
}

// Run creates the default roles and, when master is non-nil, a MASTER user
// with master's email unless one already exists.
func (s *Seeder) Run(ctx context.Context, master *SeedUser) (*SeedReport, error) {
	roles, err := s.roles.EnsureDefaults(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed roles: %w", err)
	}
	report := &SeedReport{Roles: roles}
	if master == nil {
		return report, nil
	}

	existing, err := s.users.FindByEmail(ctx, master.Email)
	switch {
	case err == nil:
		s.log.Info().Str("user_id", existing.ID).Msg("seed user already exists, skipping")
		report.MasterID = existing.ID
		return report, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	bootstrap, err := s.rolesR.FindByName(ctx, domain.BootstrapRoleName)
	if err != nil {
		return nil, fmt.Errorf("seed master: %w", err)
	}
	hash, err := s.hasher.Hash(master.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	username := master.Username
	if username == "" {
		username = strings.SplitN(master.Email, "@", 2)[0]
	}
	name := master.Name
	if name == "" {
		name = username
	}

	u, err := s.users.Create(ctx, domain.NewUser{
		Name:         name,
		Username:     username,
		Email:        master.Email,
		PasswordHash: hash,
		RoleID:       bootstrap.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("seed master: %w", err)
	}

	s.log.Info().Str("user_id", u.ID).Str("role", domain.BootstrapRoleName).Msg("seed user created")
	report.MasterCreated = true
	report.MasterID = u.ID
	return report, nil
}
