// Command seed prepares a store for first use: it applies migrations,
// creates the MASTER, ADMIN and USER roles, and optionally a first MASTER
// user from the SEED_MASTER_* variables. It is safe to run repeatedly.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/globalbi/admin-api/internal/core/service"
	"github.com/globalbi/admin-api/internal/infrastructure/db"
	"github.com/globalbi/admin-api/internal/infrastructure/security"
	"github.com/globalbi/admin-api/internal/pkg/config"
	"github.com/globalbi/admin-api/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "admin-api-seed",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	store, err := db.Open(ctx, cfg, logger.Component("store"))
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer store.Close(context.Background())

	roles := service.NewRoleService(store.Roles(), store.Users(), logger.Component("roles"))
	seeder := service.NewSeeder(roles, store.Users(), store.Roles(), security.NewBcryptHasher(security.DefaultCost), logger.Component("seed"))

	var master *service.SeedUser
	if cfg.Seed.Enabled() {
		master = &service.SeedUser{
			Name:     cfg.Seed.Name,
			Username: cfg.Seed.Username,
			Email:    cfg.Seed.Email,
			Password: cfg.Seed.Password,
		}
	}

	report, err := seeder.Run(ctx, master)
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}

	names := make([]string, 0, len(report.Roles))
	for _, r := range report.Roles {
		names = append(names, r.Name)
	}
	log.Info().
		Strs("roles", names).
		Bool("master_created", report.MasterCreated).
		Msg("seed complete")
}
