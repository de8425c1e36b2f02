package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/globalbi/admin-api/internal/pkg/config"
)

const defaultDialTimeout = 3 * time.Second

// Config is the Redis connection plus the login throttle policy it backs.
type Config struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration

	MaxAttempts int
	Lockout     time.Duration
}

// ConfigFrom picks the Redis and login sections out of the service
// configuration. ok is false when no address is set; logins are then not
// throttled.
func ConfigFrom(cfg *config.Config) (c Config, ok bool) {
	if cfg.Redis.Addr == "" {
		return Config{}, false
	}
	return Config{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
		MaxAttempts: cfg.Login.MaxAttempts,
		Lockout:     cfg.Login.Lockout,
	}, true
}

// OpenThrottle connects, pings, and returns the client with a LoginThrottle
// over it. The client is also handed to the readiness probe; the caller
// closes it.
func OpenThrottle(ctx context.Context, cfg Config) (*redis.Client, *LoginThrottle, error) {
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis %s db %d: ping: %w", cfg.Addr, cfg.DB, err)
	}

	return client, NewLoginThrottle(client, cfg.MaxAttempts, cfg.Lockout), nil
}
