package handler

// Debug-only endpoint, registered only when ENVIRONMENT=dev. Shows the
// provider request a turn would produce without creating turns or calling
// the provider.

import (
	"log/slog"
	"net/http"

	"atelier/internal/httputil"
	"atelier/internal/service/llm/streaming"
)

// ChatDebugHandler exposes the dry-run request builder.
type ChatDebugHandler struct {
	streaming *streaming.Service
	logger    *slog.Logger
}

// NewChatDebugHandler creates a new debug chat handler
func NewChatDebugHandler(streamingService *streaming.Service, logger *slog.Logger) *ChatDebugHandler {
	return &ChatDebugHandler{
		streaming: streamingService,
		logger:    logger,
	}
}

// DebugTurnRequest shows the adapter-level request a CreateTurn with this
// payload would send: resolved model, system prompt, built messages, tools.
// POST /api/v1/chats/{id}/turns/debug
func (h *ChatDebugHandler) DebugTurnRequest(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}

	var req streaming.CreateTurnRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ChatID = chatID
	req.UserID = httputil.GetUserID(r)

	debug, err := h.streaming.BuildDebugRequest(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, debug)
}
