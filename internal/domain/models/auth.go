package models

import "github.com/golang-jwt/jwt/v5"

// SupabaseClaims represents the JWT claims structure from Supabase Auth.
// See: https://supabase.com/docs/guides/auth/jwts
type SupabaseClaims struct {
	jwt.RegisteredClaims                          // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string                   `json:"email"`
	Phone                string                   `json:"phone"`
	AppMetadata          map[string]interface{}   `json:"app_metadata"`
	UserMetadata         map[string]interface{}   `json:"user_metadata"`
	Role                 string                   `json:"role"` // "authenticated" or "anon"
	AAL                  string                   `json:"aal"`  // Authentication Assurance Level: "aal1" or "aal2"
	AMR                  []map[string]interface{} `json:"amr"`  // Authentication Method References
	SessionID            string                   `json:"session_id"`
	IsAnonymous          bool                     `json:"is_anonymous"`
}

// GetUserID returns the user ID from the JWT subject claim.
// This is the primary identifier for the authenticated user.
func (c *SupabaseClaims) GetUserID() string {
	return c.Subject
}

// UserProfile is the identity surface returned by GET /api/v1/users/me.
// It is assembled from verified claims, never from request input.
type UserProfile struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Role        string `json:"role"`
	IsAnonymous bool   `json:"is_anonymous"`
	SessionID   string `json:"session_id,omitempty"`
}

// ProfileFromClaims projects JWT claims onto the public profile shape.
func ProfileFromClaims(c *SupabaseClaims) *UserProfile {
	return &UserProfile{
		ID:          c.GetUserID(),
		Email:       c.Email,
		Phone:       c.Phone,
		Role:        c.Role,
		IsAnonymous: c.IsAnonymous,
		SessionID:   c.SessionID,
	}
}
