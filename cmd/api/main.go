// @title                       Admin API
// @version                     1.0
// @description                 Authentication, role management and row-level access control for users and groups.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	_ "github.com/globalbi/admin-api/docs"
	"github.com/globalbi/admin-api/internal/api"
	"github.com/globalbi/admin-api/internal/api/handler"
	"github.com/globalbi/admin-api/internal/core/ports"
	"github.com/globalbi/admin-api/internal/core/service"
	"github.com/globalbi/admin-api/internal/infrastructure/db"
	"github.com/globalbi/admin-api/internal/infrastructure/db/redis"
	"github.com/globalbi/admin-api/internal/infrastructure/security"
	"github.com/globalbi/admin-api/internal/pkg/config"
	"github.com/globalbi/admin-api/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "admin-api",
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(ctx, cfg, logger.Component("store"))
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("store close failed")
		}
	}()

	// Redis only backs the login throttle; without REDIS_ADDR logins are
	// not rate limited.
	var (
		rdb      *goredis.Client
		throttle ports.LoginThrottle
	)
	if rcfg, ok := redis.ConfigFrom(cfg); ok {
		client, th, err := redis.OpenThrottle(ctx, rcfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		rdb, throttle = client, th
	} else {
		log.Warn().Msg("REDIS_ADDR not set, login throttling disabled")
	}

	hasher := security.NewBcryptHasher(security.DefaultCost)
	authSvc := service.NewAuthService(service.AuthDeps{
		Users:    store.Users(),
		Roles:    store.Roles(),
		Hasher:   hasher,
		Access:   security.NewTokenIssuer(cfg.JWT.AccessSecret),
		Refresh:  security.NewTokenIssuer(cfg.JWT.RefreshSecret),
		Throttle: throttle,
	}, service.AuthConfig{
		AccessTTL:     cfg.JWT.AccessExpires,
		RefreshTTL:    cfg.JWT.RefreshExpires,
		RotateRefresh: cfg.JWT.RotateRefresh,
	}, logger.Component("auth"))

	e := api.NewRouter(api.Deps{
		Auth:    authSvc,
		Users:   service.NewUserService(store.Users(), store.Roles(), store.Groups(), hasher, logger.Component("users")),
		Groups:  service.NewGroupService(store.Groups(), store.Users(), logger.Component("groups")),
		Roles:   service.NewRoleService(store.Roles(), store.Users(), logger.Component("roles")),
		Health:  handler.NewHealthHandler(store, rdb),
		Log:     logger.Component("http"),
		Metrics: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("driver", cfg.StoreDriver).Msg("admin api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
