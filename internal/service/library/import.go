package library

import (
	"context"
	"fmt"
	"log/slog"

	"atelier/internal/domain"
	libraryRepo "atelier/internal/domain/repositories/library"
)

// ImportService handles bulk document import. Files are routed to processor
// strategies by type; results from all files in a batch are merged into one
// report.
type ImportService struct {
	processors   *FileProcessorRegistry
	docRepo      libraryRepo.DocumentRepository
	pathResolver *PathResolver
	validator    *ResourceValidator
	logger       *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(
	processors *FileProcessorRegistry,
	docRepo libraryRepo.DocumentRepository,
	pathResolver *PathResolver,
	validator *ResourceValidator,
	logger *slog.Logger,
) *ImportService {
	return &ImportService{
		processors:   processors,
		docRepo:      docRepo,
		pathResolver: pathResolver,
		validator:    validator,
		logger:       logger,
	}
}

// ImportResult is the aggregate outcome of a bulk import operation
type ImportResult struct {
	Summary   ImportSummary    `json:"summary"`
	Errors    []ImportError    `json:"errors"`
	Documents []ImportDocument `json:"documents"`
}

// ImportSummary contains aggregate statistics for an import operation
type ImportSummary struct {
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	TotalFiles int `json:"total_files"`
}

// ImportError records one file that failed to import
type ImportError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// ImportDocument records one processed document
type ImportDocument struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Name   string `json:"name"`
	Action string `json:"action"` // "created", "updated", or "skipped"
}

// newImportResult creates an empty result with non-nil slices so the JSON
// response always carries arrays
func newImportResult() *ImportResult {
	return &ImportResult{
		Summary:   ImportSummary{},
		Errors:    []ImportError{},
		Documents: []ImportDocument{},
	}
}

// addError records a failed file on the result
func (r *ImportResult) addError(logger *slog.Logger, file, errorMsg string) {
	r.Summary.Failed++
	r.Errors = append(r.Errors, ImportError{
		File:  file,
		Error: errorMsg,
	})

	logger.Warn("file processing failed",
		"file", file,
		"error", errorMsg,
	)
}

// merge folds another result's documents, errors, and counts into this one
func (r *ImportResult) merge(other *ImportResult) {
	r.Summary.Created += other.Summary.Created
	r.Summary.Updated += other.Summary.Updated
	r.Summary.Skipped += other.Summary.Skipped
	r.Summary.Failed += other.Summary.Failed
	r.Summary.TotalFiles += other.Summary.TotalFiles
	r.Errors = append(r.Errors, other.Errors...)
	r.Documents = append(r.Documents, other.Documents...)
}

// ProcessFiles imports a batch of uploaded files into a workspace. Each file
// is routed to the first processor that can handle it; files nobody can
// handle are recorded as failures. folderPath places individual files under
// a folder (zip archives keep their own structure). With overwrite, files
// matching existing documents update them; otherwise duplicates are skipped.
func (s *ImportService) ProcessFiles(
	ctx context.Context,
	workspaceID string,
	userID string,
	files []UploadedFile,
	folderPath string,
	overwrite bool,
) (*ImportResult, error) {
	if err := s.validator.ValidateWorkspace(ctx, workspaceID, userID); err != nil {
		return nil, err
	}
	if err := s.pathResolver.ValidateFolderPath(folderPath); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files provided", domain.ErrValidation)
	}

	result := newImportResult()

	for _, file := range files {
		processor := s.processors.GetProcessor(file.Filename)
		if processor == nil {
			result.Summary.TotalFiles++
			result.addError(s.logger, file.Filename, "unsupported file type")
			continue
		}

		fileResult, err := processor.Process(ctx, workspaceID, userID, file.Content, file.Filename, folderPath, overwrite)
		if err != nil {
			// Processor-level failure (e.g. corrupt zip): the whole file
			// failed, not individual entries.
			result.Summary.TotalFiles++
			result.addError(s.logger, file.Filename, err.Error())
			continue
		}

		result.merge(fileResult)
	}

	s.logger.Info("import complete",
		"workspace_id", workspaceID,
		"files", len(files),
		"created", result.Summary.Created,
		"updated", result.Summary.Updated,
		"skipped", result.Summary.Skipped,
		"failed", result.Summary.Failed,
		"total_files", result.Summary.TotalFiles,
	)

	return result, nil
}

// DeleteAllDocuments deletes all documents in a workspace. Used by replace
// imports to clear the workspace before loading the new set.
func (s *ImportService) DeleteAllDocuments(ctx context.Context, workspaceID, userID string) error {
	if err := s.validator.ValidateWorkspace(ctx, workspaceID, userID); err != nil {
		return err
	}

	if err := s.docRepo.DeleteAllByWorkspace(ctx, workspaceID); err != nil {
		s.logger.Error("failed to delete all documents",
			"workspace_id", workspaceID,
			"error", err,
		)
		return fmt.Errorf("failed to delete all documents: %w", err)
	}

	s.logger.Info("deleted all documents",
		"workspace_id", workspaceID,
	)

	return nil
}
