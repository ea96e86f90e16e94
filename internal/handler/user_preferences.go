package handler

import (
	"log/slog"
	"net/http"

	"atelier/internal/domain/models"
	"atelier/internal/httputil"
	"atelier/internal/service/user"
)

// UserPreferencesHandler handles user preferences HTTP requests
type UserPreferencesHandler struct {
	service *user.PreferencesService
	logger  *slog.Logger
}

// NewUserPreferencesHandler creates a new user preferences handler
func NewUserPreferencesHandler(service *user.PreferencesService, logger *slog.Logger) *UserPreferencesHandler {
	return &UserPreferencesHandler{
		service: service,
		logger:  logger,
	}
}

// updatePreferencesBody is the wire shape of a preferences PATCH. The
// tri-state system_instructions field decodes through OptionalString so an
// explicit null clears while an absent field leaves the value alone.
type updatePreferencesBody struct {
	Models             *models.ModelsPreferences       `json:"models"`
	UI                 *models.UIPreferences           `json:"ui"`
	SystemInstructions httputil.OptionalString         `json:"system_instructions"`
	Notifications      *models.NotificationPreferences `json:"notifications"`
}

// GetPreferences retrieves user preferences
// GET /api/v1/users/me/preferences
func (h *UserPreferencesHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUID(w, httputil.GetUserID(r), "user ID")
	if !ok {
		return
	}

	prefs, err := h.service.GetPreferences(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences applies a partial preferences update
// PATCH /api/v1/users/me/preferences
func (h *UserPreferencesHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUID(w, httputil.GetUserID(r), "user ID")
	if !ok {
		return
	}

	var body updatePreferencesBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := &models.UpdatePreferencesRequest{
		Models: body.Models,
		UI:     body.UI,
		SystemInstructions: models.OptionalSystemInstructions{
			Present: body.SystemInstructions.Present,
			Value:   body.SystemInstructions.Value,
		},
		Notifications: body.Notifications,
	}

	prefs, err := h.service.UpdatePreferences(r.Context(), userID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, prefs)
}
