package middleware

import (
	"net/http"
	"strconv"

	"atelier/internal/cache"
	"atelier/internal/httputil"
)

// RateLimit enforces the per-user request budget for one route class.
// Runs after AuthMiddleware; unauthenticated requests never reach it.
func RateLimit(limiter *cache.RateLimiter, class string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := httputil.GetUserID(r)
			if userID == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing user identity")
				return
			}

			decision := limiter.Allow(r.Context(), userID, class)
			if !decision.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
				httputil.RespondErrorWithExtras(w, http.StatusTooManyRequests,
					"request budget exhausted, slow down",
					map[string]interface{}{"retry_after": decision.RetryAfter})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
