package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"atelier/internal/metrics"
)

const responseCacheName = "studio"

// ResponseCache memoizes one-shot studio responses in Redis so repeated
// identical requests skip the provider round trip entirely.
type ResponseCache struct {
	client *RedisClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewResponseCache creates a response cache with the given entry TTL.
func NewResponseCache(client *RedisClient, ttl time.Duration, logger *slog.Logger) *ResponseCache {
	return &ResponseCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Key builds a deterministic cache key from the operation name, model and
// request payload. The payload is serialized with encoding/json (struct
// fields in declaration order, map keys sorted) and hashed, so equal
// requests share a key without the key ever containing request content.
func Key(operation, model string, payload any) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		// Unmarshalable payloads get a key nothing else will produce.
		raw = []byte(fmt.Sprintf("%+v", payload))
	}

	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write(raw)

	return fmt.Sprintf("studio:%s:%s", operation, hex.EncodeToString(h.Sum(nil)))
}

// Get loads a cached response into dest and reports whether it was a hit.
// Redis errors degrade to a miss so a cache outage never fails a request.
func (c *ResponseCache) Get(ctx context.Context, key string, dest any) bool {
	raw, err := c.client.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("response cache get failed", "error", err)
		}
		metrics.CacheMissesTotal.WithLabelValues(responseCacheName).Inc()
		return false
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		c.logger.Warn("response cache entry corrupt, treating as miss", "key", key, "error", err)
		metrics.CacheMissesTotal.WithLabelValues(responseCacheName).Inc()
		return false
	}

	metrics.CacheHitsTotal.WithLabelValues(responseCacheName).Inc()
	return true
}

// Set stores a response with the configured TTL. Best effort: failures are
// logged and the response is served uncached.
func (c *ResponseCache) Set(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("response cache marshal failed", "error", err)
		return
	}

	if err := c.client.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("response cache set failed", "error", err)
	}
}
