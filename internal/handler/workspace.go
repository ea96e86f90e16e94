package handler

import (
	"log/slog"
	"net/http"

	"atelier/internal/domain/models/library"
	"atelier/internal/httputil"
	librarySvc "atelier/internal/service/library"
)

// WorkspaceHandler handles workspace CRUD.
type WorkspaceHandler struct {
	workspaces *librarySvc.WorkspaceService
	logger     *slog.Logger
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(workspaces *librarySvc.WorkspaceService, logger *slog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaces: workspaces,
		logger:     logger,
	}
}

// Create creates a workspace
// POST /api/v1/workspaces
//
// A name the user already has returns 409 with the existing workspace.
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req librarySvc.CreateWorkspaceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = userID

	workspace, err := h.workspaces.CreateWorkspace(r.Context(), &req)
	if err != nil {
		HandleCreateConflict(w, err, func(existingID string) (*library.Workspace, error) {
			return h.workspaces.GetWorkspace(r.Context(), existingID, userID)
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, workspace)
}

// List lists the user's workspaces
// GET /api/v1/workspaces
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	workspaces, err := h.workspaces.ListWorkspaces(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"workspaces": workspaces,
	})
}

// Get retrieves one workspace
// GET /api/v1/workspaces/{id}
func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id")
	if !ok {
		return
	}

	workspace, err := h.workspaces.GetWorkspace(r.Context(), id, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, workspace)
}

// Update patches a workspace's name, description, or system prompt
// PATCH /api/v1/workspaces/{id}
func (h *WorkspaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id")
	if !ok {
		return
	}

	var req librarySvc.UpdateWorkspaceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	workspace, err := h.workspaces.UpdateWorkspace(r.Context(), id, httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, workspace)
}

// Delete soft-deletes a workspace
// DELETE /api/v1/workspaces/{id}
func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.workspaces.DeleteWorkspace(r.Context(), id, httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
