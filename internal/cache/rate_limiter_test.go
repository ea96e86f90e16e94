package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	_, client := setupRedis(t)
	limiter := NewRateLimiter(client, 3, time.Minute, testLogger())

	current := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision := limiter.Allow(ctx, "user-1", "studio")
		assert.True(t, decision.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 3-(i+1), decision.Remaining)
	}

	decision := limiter.Allow(ctx, "user-1", "studio")
	assert.False(t, decision.Allowed)
	assert.Equal(t, 30, decision.RetryAfter)
}

func TestRateLimiter_WindowReset(t *testing.T) {
	_, client := setupRedis(t)
	limiter := NewRateLimiter(client, 1, time.Minute, testLogger())

	current := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "user-1", "studio").Allowed)
	assert.False(t, limiter.Allow(ctx, "user-1", "studio").Allowed)

	// Next window, budget is fresh.
	current = current.Add(time.Minute)
	assert.True(t, limiter.Allow(ctx, "user-1", "studio").Allowed)
}

func TestRateLimiter_IsolatesUsersAndClasses(t *testing.T) {
	_, client := setupRedis(t)
	limiter := NewRateLimiter(client, 1, time.Minute, testLogger())

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "user-1", "studio").Allowed)
	assert.False(t, limiter.Allow(ctx, "user-1", "studio").Allowed)

	// Other users and other route classes keep their own budgets.
	assert.True(t, limiter.Allow(ctx, "user-2", "studio").Allowed)
	assert.True(t, limiter.Allow(ctx, "user-1", "chat").Allowed)
}

func TestRateLimiter_FailsOpenWhenRedisDown(t *testing.T) {
	mr, client := setupRedis(t)
	limiter := NewRateLimiter(client, 1, time.Minute, testLogger())

	mr.Close()

	decision := limiter.Allow(context.Background(), "user-1", "studio")
	assert.True(t, decision.Allowed)
}

func TestRateLimiter_RetryAfterNeverZero(t *testing.T) {
	_, client := setupRedis(t)
	limiter := NewRateLimiter(client, 1, time.Minute, testLogger())

	// One tick before the window flips.
	current := time.Date(2025, 6, 1, 12, 0, 59, int(999*time.Millisecond), time.UTC)
	limiter.now = func() time.Time { return current }

	ctx := context.Background()
	limiter.Allow(ctx, "user-1", "studio")

	decision := limiter.Allow(ctx, "user-1", "studio")
	assert.False(t, decision.Allowed)
	assert.GreaterOrEqual(t, decision.RetryAfter, 1)
}
