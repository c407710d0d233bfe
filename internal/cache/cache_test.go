package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRevocationList(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	list := NewRevocationList(client)

	require.NoError(t, list.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))

	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = list.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	t.Run("entry expires with the token", func(t *testing.T) {
		mr.FastForward(2 * time.Hour)
		revoked, err := list.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("expired token is not stored", func(t *testing.T) {
		require.NoError(t, list.Revoke(ctx, "old", time.Now().Add(-time.Minute)))
		assert.False(t, mr.Exists("blacklist:old"))
	})
}

func TestRevocationList_Disabled(t *testing.T) {
	list := NewRevocationList(nil)
	assert.False(t, list.Enabled())
	assert.NoError(t, list.Revoke(context.Background(), "jti", time.Now().Add(time.Hour)))

	revoked, err := list.IsRevoked(context.Background(), "jti")
	assert.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationList_RedisError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectExists("blacklist:jti").SetErr(errors.New("connection refused"))

	_, err := NewRevocationList(client).IsRevoked(context.Background(), "jti")
	assert.Error(t, err)
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	limiter := NewRateLimiter(client, "login", 3, 15*time.Minute)

	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.InDelta(t, (15 * time.Minute).Seconds(), d.RetryAfter.Seconds(), 1)

	other, err := limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are counted separately")

	mr.FastForward(16 * time.Minute)
	d, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRateLimiter_WindowDoesNotSlide(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	limiter := NewRateLimiter(client, "api", 100, 10*time.Minute)

	_, err := limiter.Allow(ctx, "ip")
	require.NoError(t, err)
	mr.FastForward(5 * time.Minute)
	_, err = limiter.Allow(ctx, "ip")
	require.NoError(t, err)

	assert.InDelta(t, (5 * time.Minute).Seconds(), mr.TTL("ratelimit:api:ip").Seconds(), 1)
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(nil, "api", 10, time.Minute)
	d, err := limiter.Allow(context.Background(), "ip")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
