package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalbi/admin-api/internal/pkg/config"
)

func newThrottle(t *testing.T, max int, lockout time.Duration) (*LoginThrottle, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLoginThrottle(client, max, lockout), mr
}

func TestLoginThrottle_LocksAfterMaxAttempts(t *testing.T) {
	th, _ := newThrottle(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		locked, err := th.Locked(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, locked, "attempt %d", i)
		require.NoError(t, th.RecordFailure(ctx, "alice"))
	}

	locked, err := th.Locked(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = th.Locked(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestLoginThrottle_IdentifierIsCaseInsensitive(t *testing.T) {
	th, _ := newThrottle(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, th.RecordFailure(ctx, "Alice@Example.com"))
	locked, err := th.Locked(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestLoginThrottle_ExpiresFromFirstFailure(t *testing.T) {
	th, mr := newThrottle(t, 2, time.Minute)
	ctx := context.Background()

	require.NoError(t, th.RecordFailure(ctx, "alice"))
	assert.Equal(t, time.Minute, mr.TTL("login:fail:alice"))

	mr.FastForward(30 * time.Second)
	require.NoError(t, th.RecordFailure(ctx, "alice"))
	// A later failure does not extend the window.
	assert.Equal(t, 30*time.Second, mr.TTL("login:fail:alice"))

	mr.FastForward(31 * time.Second)
	locked, err := th.Locked(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestLoginThrottle_Reset(t *testing.T) {
	th, mr := newThrottle(t, 1, time.Minute)
	ctx := context.Background()

	require.NoError(t, th.RecordFailure(ctx, "alice"))
	require.NoError(t, th.Reset(ctx, "alice"))
	assert.False(t, mr.Exists("login:fail:alice"))

	locked, err := th.Locked(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestLoginThrottle_Defaults(t *testing.T) {
	th := NewLoginThrottle(nil, 0, 0)
	assert.Equal(t, int64(defaultMaxAttempts), th.maxAttempts)
	assert.Equal(t, defaultLockout, th.lockout)
}

func TestOpenThrottle(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	mr.RequireAuth("hunter2")

	client, th, err := OpenThrottle(context.Background(), Config{
		Addr:        mr.Addr(),
		Password:    "hunter2",
		MaxAttempts: 2,
		Lockout:     time.Minute,
	})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, th.RecordFailure(ctx, "alice"))
	require.NoError(t, th.RecordFailure(ctx, "alice"))
	locked, err := th.Locked(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, locked)
	assert.True(t, mr.Exists("login:fail:alice"))
}

func TestOpenThrottle_Failures(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	mr.RequireAuth("hunter2")

	_, _, err = OpenThrottle(context.Background(), Config{Addr: mr.Addr(), Password: "wrong"})
	assert.Error(t, err)

	addr := mr.Addr()
	mr.Close()
	_, _, err = OpenThrottle(context.Background(), Config{Addr: addr, Password: "hunter2", DialTimeout: 200 * time.Millisecond})
	assert.ErrorContains(t, err, "ping")
}

func TestConfigFrom(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{Addr: "cache:6379", Password: "pw", DB: 3, DialTimeout: time.Second},
		Login: config.LoginConfig{MaxAttempts: 7, Lockout: time.Hour},
	}

	rc, ok := ConfigFrom(cfg)
	require.True(t, ok)
	assert.Equal(t, Config{
		Addr:        "cache:6379",
		Password:    "pw",
		DB:          3,
		DialTimeout: time.Second,
		MaxAttempts: 7,
		Lockout:     time.Hour,
	}, rc)

	_, ok = ConfigFrom(&config.Config{})
	assert.False(t, ok)
}
