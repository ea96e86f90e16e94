package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"atelier/internal/domain/models/library"
	"atelier/internal/httputil"
	librarySvc "atelier/internal/service/library"
)

// DocumentHandler handles document CRUD and full-text search, all scoped
// under a workspace.
type DocumentHandler struct {
	documents *librarySvc.DocumentService
	logger    *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents *librarySvc.DocumentService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		logger:    logger,
	}
}

// Create creates a document. The name may carry path notation ("a/b/c");
// intermediate folders are created as needed.
// POST /api/v1/workspaces/{id}/documents
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}
	userID := httputil.GetUserID(r)

	var req librarySvc.CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.WorkspaceID = workspaceID
	req.UserID = userID

	doc, err := h.documents.CreateDocument(r.Context(), &req)
	if err != nil {
		HandleCreateConflict(w, err, func(existingID string) (*library.Document, error) {
			return h.documents.GetDocument(r.Context(), existingID, workspaceID, userID)
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// Get retrieves one document with its content
// GET /api/v1/workspaces/{id}/documents/{docID}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}
	docID, ok := PathParam(w, r, "docID")
	if !ok {
		return
	}

	doc, err := h.documents.GetDocument(r.Context(), docID, workspaceID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// Update patches a document's name, content, or location
// PATCH /api/v1/workspaces/{id}/documents/{docID}
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}
	docID, ok := PathParam(w, r, "docID")
	if !ok {
		return
	}

	var req librarySvc.UpdateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	doc, err := h.documents.UpdateDocument(r.Context(), docID, workspaceID, httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// Delete removes a document
// DELETE /api/v1/workspaces/{id}/documents/{docID}
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}
	docID, ok := PathParam(w, r, "docID")
	if !ok {
		return
	}

	if err := h.documents.DeleteDocument(r.Context(), docID, workspaceID, httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Search runs full-text search over the workspace's documents
// GET /api/v1/workspaces/{id}/search?q=...
//
// Query parameters:
//   - q: required search query (websearch syntax)
//   - fields: optional comma-separated subset of "name","content"
//   - limit, offset: pagination (default 20, max 100)
//   - language: FTS configuration (default "english")
//   - folder_id: optional folder filter
func (h *DocumentHandler) Search(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httputil.RespondError(w, http.StatusBadRequest, "q query parameter is required")
		return
	}

	req := &librarySvc.SearchDocumentsRequest{
		WorkspaceID: workspaceID,
		UserID:      httputil.GetUserID(r),
		Query:       query,
		Limit:       QueryInt(r, "limit", 0),
		Offset:      QueryInt(r, "offset", 0),
		Language:    r.URL.Query().Get("language"),
	}

	if fields := r.URL.Query().Get("fields"); fields != "" {
		req.Fields = strings.Split(fields, ",")
	}
	if folderID := r.URL.Query().Get("folder_id"); folderID != "" {
		req.FolderID = &folderID
	}

	results, err := h.documents.SearchDocuments(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, results)
}
