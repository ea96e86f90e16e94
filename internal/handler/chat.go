package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	chatModels "atelier/internal/domain/models/chat"
	"atelier/internal/httputil"
	chatSvc "atelier/internal/service/llm/chat"
	"atelier/internal/service/llm/conversation"
	"atelier/internal/service/llm/streaming"
)

// ChatHandler handles chat and turn HTTP requests. Handlers talk to
// services only; ownership checks live in the service layer.
type ChatHandler struct {
	chats         *chatSvc.Service
	conversations *conversation.Service
	streaming     *streaming.Service
	logger        *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(
	chats *chatSvc.Service,
	conversations *conversation.Service,
	streamingService *streaming.Service,
	logger *slog.Logger,
) *ChatHandler {
	return &ChatHandler{
		chats:         chats,
		conversations: conversations,
		streaming:     streamingService,
		logger:        logger,
	}
}

// CreateChat creates a new chat session in a workspace
// POST /api/v1/workspaces/{id}/chats
// Returns 201 if created, 409 with the existing chat on duplicate title
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}
	userID := httputil.GetUserID(r)

	var req chatSvc.CreateChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.WorkspaceID = workspaceID
	req.UserID = userID

	created, err := h.chats.CreateChat(r.Context(), &req)
	if err != nil {
		HandleCreateConflict(w, err, func(existingID string) (*chatModels.Chat, error) {
			return h.chats.GetChat(r.Context(), existingID, userID)
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, created)
}

// ListChats retrieves all chats in a workspace
// GET /api/v1/workspaces/{id}/chats
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}

	chats, err := h.chats.ListChats(r.Context(), workspaceID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"chats": chats,
	})
}

// GetChat retrieves a single chat by ID
// GET /api/v1/chats/{id}
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}

	found, err := h.chats.GetChat(r.Context(), chatID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, found)
}

// UpdateChat updates a chat's title
// PATCH /api/v1/chats/{id}
func (h *ChatHandler) UpdateChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}

	var req chatSvc.UpdateChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.chats.UpdateChat(r.Context(), chatID, httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, updated)
}

// DeleteChat soft-deletes a chat
// DELETE /api/v1/chats/{id}
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}

	deleted, err := h.chats.DeleteChat(r.Context(), chatID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, deleted)
}

// GetChatTree returns the lightweight turn-tree skeleton of a chat
// GET /api/v1/chats/{id}/tree
func (h *ChatHandler) GetChatTree(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}

	tree, err := h.conversations.GetChatTree(r.Context(), chatID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}

// CreateTurn creates a user turn plus its pending assistant turn and starts
// background generation
// POST /api/v1/chats/{id}/turns
func (h *ChatHandler) CreateTurn(w http.ResponseWriter, r *http.Request) {
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

	response, err := h.streaming.CreateTurn(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, response)
}

// GetTurnPath retrieves the conversation path from the root to a turn
// GET /api/v1/turns/{id}/path
func (h *ChatHandler) GetTurnPath(w http.ResponseWriter, r *http.Request) {
	turnID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}

	turns, err := h.conversations.GetTurnPath(r.Context(), turnID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, turns)
}

// GetTurnSiblings retrieves all sibling turns (including self) for version
// browsing
// GET /api/v1/turns/{id}/siblings
func (h *ChatHandler) GetTurnSiblings(w http.ResponseWriter, r *http.Request) {
	turnID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}

	siblings, err := h.conversations.GetTurnSiblings(r.Context(), turnID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, siblings)
}

// GetPaginatedTurns retrieves a window of turns with blocks along the
// conversation path
// GET /api/v1/chats/{id}/turns?from_turn_id=X&limit=100&direction=both
func (h *ChatHandler) GetPaginatedTurns(w http.ResponseWriter, r *http.Request) {
	chatID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}
	userID := httputil.GetUserID(r)

	var fromTurnID *string
	if v := r.URL.Query().Get("from_turn_id"); v != "" {
		fromTurnID = &v
	}

	updateLastViewed := false
	if ulv := r.URL.Query().Get("update_last_viewed"); ulv != "" {
		if parsed, err := strconv.ParseBool(ulv); err == nil {
			updateLastViewed = parsed
		}
	}

	limit := QueryInt(r, "limit", 100)
	direction := r.URL.Query().Get("direction")

	response, err := h.conversations.GetPaginatedTurns(r.Context(), chatID, userID, fromTurnID, limit, direction, updateLastViewed)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, response)
}

// GetTurnBlocksResponse is the response for GET /api/v1/turns/{id}/blocks
type GetTurnBlocksResponse struct {
	TurnID string                 `json:"turn_id"`
	Status string                 `json:"status"`
	Error  *string                `json:"error,omitempty"`
	Blocks []chatModels.TurnBlock `json:"blocks"`
}

// GetTurnBlocks retrieves the persisted blocks of a turn. Reconnecting
// clients fetch these before attaching to the SSE stream.
// GET /api/v1/turns/{id}/blocks
func (h *ChatHandler) GetTurnBlocks(w http.ResponseWriter, r *http.Request) {
	turnID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}
	if _, ok := parseUUID(w, turnID, "turn ID"); !ok {
		return
	}

	turn, err := h.conversations.GetTurnWithBlocks(r.Context(), turnID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, GetTurnBlocksResponse{
		TurnID: turn.ID,
		Status: turn.Status,
		Error:  turn.Error,
		Blocks: turn.Blocks,
	})
}

// GetTurnTokenUsage retrieves token usage for a turn
// GET /api/v1/turns/{id}/token-usage
func (h *ChatHandler) GetTurnTokenUsage(w http.ResponseWriter, r *http.Request) {
	turnID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}
	if _, ok := parseUUID(w, turnID, "turn ID"); !ok {
		return
	}

	usage, err := h.conversations.GetTurnTokenUsage(r.Context(), turnID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, usage)
}

// InterruptTurn cancels an in-flight generation. Partial content is flushed
// and the turn marked cancelled.
// POST /api/v1/turns/{id}/interrupt
func (h *ChatHandler) InterruptTurn(w http.ResponseWriter, r *http.Request) {
	turnID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}
	if _, ok := parseUUID(w, turnID, "turn ID"); !ok {
		return
	}

	if err := h.streaming.InterruptTurn(r.Context(), turnID, httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"turn_id": turnID,
		"status":  chatModels.TurnStatusCancelled,
	})
}
