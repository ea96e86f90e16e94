package handler

import (
	"log/slog"
	"net/http"

	"atelier/internal/httputil"
	"atelier/internal/service/library"
)

// TreeHandler serves the nested folder/document tree of a workspace.
type TreeHandler struct {
	trees  *library.TreeService
	logger *slog.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(trees *library.TreeService, logger *slog.Logger) *TreeHandler {
	return &TreeHandler{
		trees:  trees,
		logger: logger,
	}
}

// GetTree returns the nested folder/document tree for a workspace
// GET /api/v1/workspaces/{id}/tree
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}
	userID := httputil.GetUserID(r)

	tree, err := h.trees.GetWorkspaceTree(r.Context(), workspaceID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}
