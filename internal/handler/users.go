package handler

import (
	"log/slog"
	"net/http"

	"atelier/internal/domain/models"
	"atelier/internal/httputil"
	"atelier/internal/service/user"
)

// UsersHandler serves the authenticated identity and the user's stored
// provider API keys.
type UsersHandler struct {
	keys   *user.ProviderKeyService
	logger *slog.Logger
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(keys *user.ProviderKeyService, logger *slog.Logger) *UsersHandler {
	return &UsersHandler{
		keys:   keys,
		logger: logger,
	}
}

// Me returns the authenticated identity from the verified JWT claims
// GET /api/v1/users/me
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := httputil.GetClaims(r)
	if claims == nil {
		httputil.RespondError(w, http.StatusUnauthorized, "no verified identity on request")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.ProfileFromClaims(claims))
}

// storeKeyBody is the wire shape of a key upload.
type storeKeyBody struct {
	APIKey string `json:"api_key"`
}

// StoreKey seals and stores a provider API key for the user. Storing again
// replaces the previous key. The response carries only the fingerprint.
// PUT /api/v1/users/me/keys/{provider}
func (h *UsersHandler) StoreKey(w http.ResponseWriter, r *http.Request) {
	provider, ok := PathParam(w, r, "provider")
	if !ok {
		return
	}
	userID, ok := parseUUID(w, httputil.GetUserID(r), "user ID")
	if !ok {
		return
	}

	var body storeKeyBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := h.keys.StoreKey(r.Context(), userID, provider, body.APIKey)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, summary)
}

// ListKeys returns redacted summaries of the user's stored keys
// GET /api/v1/users/me/keys
func (h *UsersHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUID(w, httputil.GetUserID(r), "user ID")
	if !ok {
		return
	}

	summaries, err := h.keys.ListKeys(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"keys": summaries,
	})
}

// DeleteKey removes the user's stored key for a provider
// DELETE /api/v1/users/me/keys/{provider}
func (h *UsersHandler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	provider, ok := PathParam(w, r, "provider")
	if !ok {
		return
	}
	userID, ok := parseUUID(w, httputil.GetUserID(r), "user ID")
	if !ok {
		return
	}

	if err := h.keys.DeleteKey(r.Context(), userID, provider); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
