package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"atelier/internal/cache"
	"atelier/internal/httputil"
)

// HealthHandler serves the liveness endpoint with dependency ping status.
type HealthHandler struct {
	pool  *pgxpool.Pool
	redis *cache.RedisClient // nil when Redis is not configured
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(pool *pgxpool.Pool, redis *cache.RedisClient) *HealthHandler {
	return &HealthHandler{
		pool:  pool,
		redis: redis,
	}
}

// Health reports process liveness plus DB and Redis reachability.
// GET /health
//
// The process answering at all is the liveness signal, so a failed
// dependency ping degrades the body but still returns 200.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "ok"
	if err := h.pool.Ping(ctx); err != nil {
		dbStatus = "unreachable"
	}

	redisStatus := "not configured"
	if h.redis != nil {
		redisStatus = "ok"
		if err := h.redis.Ping(ctx); err != nil {
			redisStatus = "unreachable"
		}
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"checks": map[string]string{
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}
