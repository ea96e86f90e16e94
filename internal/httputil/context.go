package httputil

import (
	"context"
	"net/http"

	"atelier/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	userIDKey contextKey = "userID"
	claimsKey contextKey = "claims"
)

// WithUserID adds userID to the request context
func WithUserID(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	return r.WithContext(ctx)
}

// GetUserID retrieves userID from context, returns empty string if not found
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

// WithClaims adds verified JWT claims to the request context
func WithClaims(r *http.Request, claims *models.SupabaseClaims) *http.Request {
	ctx := context.WithValue(r.Context(), claimsKey, claims)
	return r.WithContext(ctx)
}

// GetClaims retrieves verified claims from context, returns nil if not found
func GetClaims(r *http.Request) *models.SupabaseClaims {
	claims, _ := r.Context().Value(claimsKey).(*models.SupabaseClaims)
	return claims
}
