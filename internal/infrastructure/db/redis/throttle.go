package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 5
	defaultLockout     = 15 * time.Minute
)

// LoginThrottle counts failed logins per identifier in Redis. The counter
// expires lockout after the first failure, so a locked identifier unlocks on
// its own.
// Key format: login:fail:<identifier>
type LoginThrottle struct {
	client      *redis.Client
	maxAttempts int64
	lockout     time.Duration
}

// NewLoginThrottle wraps client. Non-positive limits fall back to defaults.
func NewLoginThrottle(client *redis.Client, maxAttempts int, lockout time.Duration) *LoginThrottle {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if lockout <= 0 {
		lockout = defaultLockout
	}
	return &LoginThrottle{client: client, maxAttempts: int64(maxAttempts), lockout: lockout}
}

// Locked reports whether identifier has reached the failure limit.
func (t *LoginThrottle) Locked(ctx context.Context, identifier string) (bool, error) {
	n, err := t.client.Get(ctx, t.key(identifier)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("throttle check: %w", err)
	}
	return n >= t.maxAttempts, nil
}

// RecordFailure increments the counter, starting the lockout window on the
// first failure.
func (t *LoginThrottle) RecordFailure(ctx context.Context, identifier string) error {
	key := t.key(identifier)
	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, t.lockout)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("throttle record: %w", err)
	}
	return nil
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, identifier string) error {
	if err := t.client.Del(ctx, t.key(identifier)).Err(); err != nil {
		return fmt.Errorf("throttle reset: %w", err)
	}
	return nil
}

func (t *LoginThrottle) key(identifier string) string {
	return "login:fail:" + strings.ToLower(identifier)
}
