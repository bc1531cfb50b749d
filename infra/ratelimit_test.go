package infra

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterMemoryWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(nil, 2, 15*time.Minute)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	first := limiter.Allow(ctx, "key-a")
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)
	assert.True(t, limiter.Allow(ctx, "key-a").Allowed)

	denied := limiter.Allow(ctx, "key-a")
	assert.False(t, denied.Allowed)
	assert.Equal(t, 15*time.Minute, denied.RetryAfter)

	assert.True(t, limiter.Allow(ctx, "key-b").Allowed, "windows are per key")

	now = now.Add(15 * time.Minute)
	assert.True(t, limiter.Allow(ctx, "key-a").Allowed, "window resets")
}

func TestRateLimiterRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRateLimiter(NewRedisClient(client), 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, limiter.Allow(ctx, "key-a").Allowed)
	}
	denied := limiter.Allow(ctx, "key-a")
	assert.False(t, denied.Allowed)
	assert.Greater(t, denied.RetryAfter, time.Duration(0))

	count, err := mr.Get(rateLimitKeyPrefix + "key-a")
	require.NoError(t, err)
	assert.Equal(t, "4", count)

	mr.FastForward(time.Minute)
	assert.True(t, limiter.Allow(ctx, "key-a").Allowed)
}

func TestRateLimiterFallsBackWhenRedisFails(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	limiter := NewRateLimiter(NewRedisClient(client), 1, time.Minute)
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "key-a").Allowed)
	assert.False(t, limiter.Allow(ctx, "key-a").Allowed)
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := NewRateLimiter(nil, 0, time.Minute)
	for i := 0; i < 10; i++ {
		assert.True(t, limiter.Allow(context.Background(), "k").Allowed)
	}
}
