package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"atelier/internal/metrics"
)

// RateLimiter enforces a fixed-window request budget per user and route
// class, backed by Redis INCR+EXPIRE.
type RateLimiter struct {
	client *RedisClient
	limit  int
	window time.Duration
	logger *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(client *RedisClient, limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
		logger: logger,
		now:    time.Now,
	}
}

// Decision reports the outcome of a rate limit check.
type Decision struct {
	Allowed   bool
	Remaining int

	// RetryAfter is seconds until the current window resets. Zero when
	// the request was allowed.
	RetryAfter int
}

// Allow records one request for (userID, class) and reports whether it fits
// the budget. Redis failures fail open.
func (l *RateLimiter) Allow(ctx context.Context, userID, class string) *Decision {
	now := l.now()
	windowStart := now.Truncate(l.window)
	key := fmt.Sprintf("ratelimit:%s:%s:%d", class, userID, windowStart.Unix())

	pipe := l.client.Client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("rate limiter unavailable, allowing request", "error", err)
		return &Decision{Allowed: true}
	}

	count := int(incr.Val())
	if count > l.limit {
		retryAfter := int(windowStart.Add(l.window).Sub(now).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		metrics.RateLimitRejectionsTotal.WithLabelValues(class).Inc()
		return &Decision{Allowed: false, RetryAfter: retryAfter}
	}

	return &Decision{Allowed: true, Remaining: l.limit - count}
}
