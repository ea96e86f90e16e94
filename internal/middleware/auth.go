package middleware

import (
	"net/http"
	"strings"

	"atelier/internal/auth"
	"atelier/internal/httputil"
)

// AuthMiddleware verifies the request's JWT and places the user identity on
// the context. Requests without a valid token get 401 problem+json.
func AuthMiddleware(verifier auth.JWTVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			r = httputil.WithUserID(r, claims.GetUserID())
			r = httputil.WithClaims(r, claims)
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken pulls the JWT from the Authorization header, falling back to
// the access_token query parameter. EventSource cannot set headers, so SSE
// connections pass the token in the URL.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return r.URL.Query().Get("access_token")
}
