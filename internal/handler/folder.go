package handler

import (
	"log/slog"
	"net/http"

	"atelier/internal/domain/models/library"
	"atelier/internal/httputil"
	librarySvc "atelier/internal/service/library"
)

// FolderHandler handles folder CRUD and child listing, scoped under a
// workspace.
type FolderHandler struct {
	folders *librarySvc.FolderService
	logger  *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(folders *librarySvc.FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		folders: folders,
		logger:  logger,
	}
}

// Create creates a folder. Path notation in the name auto-creates
// intermediate folders.
// POST /api/v1/workspaces/{id}/folders
func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}
	userID := httputil.GetUserID(r)

	var req librarySvc.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.WorkspaceID = workspaceID
	req.UserID = userID

	folder, err := h.folders.CreateFolder(r.Context(), &req)
	if err != nil {
		HandleCreateConflict(w, err, func(existingID string) (*library.Folder, error) {
			return h.folders.GetFolder(r.Context(), existingID, workspaceID, userID)
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// ListRoot lists the workspace root's immediate folders and documents
// GET /api/v1/workspaces/{id}/folders
func (h *FolderHandler) ListRoot(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}

	contents, err := h.folders.ListChildren(r.Context(), nil, workspaceID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, contents)
}

// Get returns a folder with its immediate children
// GET /api/v1/workspaces/{id}/folders/{folderID}
func (h *FolderHandler) Get(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}
	folderID, ok := PathParam(w, r, "folderID")
	if !ok {
		return
	}

	contents, err := h.folders.ListChildren(r.Context(), &folderID, workspaceID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, contents)
}

// Update renames or moves a folder
// PATCH /api/v1/workspaces/{id}/folders/{folderID}
func (h *FolderHandler) Update(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}
	folderID, ok := PathParam(w, r, "folderID")
	if !ok {
		return
	}

	var req librarySvc.UpdateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.folders.UpdateFolder(r.Context(), folderID, workspaceID, httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// Delete removes a folder and everything under it
// DELETE /api/v1/workspaces/{id}/folders/{folderID}
func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}
	folderID, ok := PathParam(w, r, "folderID")
	if !ok {
		return
	}

	if err := h.folders.DeleteFolder(r.Context(), folderID, workspaceID, httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
