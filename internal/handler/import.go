package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"atelier/internal/httputil"
	"atelier/internal/service/library"
)

// ImportHandler handles bulk document upload.
//
// Two modes:
//   - Merge: upserts documents (creates new, optionally updates existing)
//   - Replace: deletes all workspace documents first, then imports
type ImportHandler struct {
	imports *library.ImportService
	logger  *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(imports *library.ImportService, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		imports: imports,
		logger:  logger,
	}
}

// importOptions configures the import operation
type importOptions struct {
	deleteFirst bool // delete all existing documents before import
	overwrite   bool // update existing documents instead of skipping
}

// ImportResponse reports the outcome per file plus totals.
type ImportResponse struct {
	Success   bool                     `json:"success"`
	Summary   library.ImportSummary    `json:"summary"`
	Errors    []library.ImportError    `json:"errors"`
	Documents []library.ImportDocument `json:"documents"`
}

// Import handles bulk import in merge mode.
// POST /api/v1/workspaces/{id}/import
//
// Query parameters:
//   - folder_path: optional target folder path (empty = root)
//   - overwrite: optional, "true" updates existing documents
//   - replace: optional, "true" deletes all documents first
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	replace := r.URL.Query().Get("replace") == "true"
	overwrite := r.URL.Query().Get("overwrite") == "true"
	h.processImportRequest(w, r, importOptions{
		deleteFirst: replace,
		overwrite:   overwrite || replace,
	})
}

// processImportRequest parses the multipart form and runs the import.
func (h *ImportHandler) processImportRequest(w http.ResponseWriter, r *http.Request, opts importOptions) {
	workspaceID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}
	userID := httputil.GetUserID(r)

	// Max 100MB to leave room for zip archives
	if err := r.ParseMultipartForm(100 << 20); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "no files provided")
		return
	}

	folderPath := r.URL.Query().Get("folder_path")

	mode := "merge"
	if opts.deleteFirst {
		mode = "replace"
	}

	h.logger.Info("starting import",
		"mode", mode,
		"workspace_id", workspaceID,
		"file_count", len(files),
		"folder_path", folderPath,
		"overwrite", opts.overwrite,
	)

	if opts.deleteFirst {
		if err := h.imports.DeleteAllDocuments(r.Context(), workspaceID, userID); err != nil {
			h.logger.Error("failed to delete all documents",
				"workspace_id", workspaceID,
				"error", err,
			)
			handleError(w, err)
			return
		}
	}

	// defer Close is safe: every file is consumed before this function
	// returns.
	uploadedFiles := make([]library.UploadedFile, 0, len(files))
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			h.logger.Error("failed to open uploaded file",
				"file", fileHeader.Filename,
				"error", err,
			)
			httputil.RespondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to open file %s", fileHeader.Filename))
			return
		}
		defer func() { _ = file.Close() }()

		uploadedFiles = append(uploadedFiles, library.UploadedFile{
			Filename: fileHeader.Filename,
			Content:  file,
		})
	}

	result, err := h.imports.ProcessFiles(r.Context(), workspaceID, userID, uploadedFiles, folderPath, opts.overwrite)
	if err != nil {
		h.logger.Error("failed to process files", "error", err)
		handleError(w, err)
		return
	}

	h.logger.Info("import complete",
		"mode", mode,
		"workspace_id", workspaceID,
		"created", result.Summary.Created,
		"updated", result.Summary.Updated,
		"skipped", result.Summary.Skipped,
		"failed", result.Summary.Failed,
	)

	httputil.RespondJSON(w, http.StatusOK, ImportResponse{
		Success:   result.Summary.Failed == 0,
		Summary:   result.Summary,
		Errors:    result.Errors,
		Documents: result.Documents,
	})
}
