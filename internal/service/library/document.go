package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"atelier/internal/config"
	"atelier/internal/domain"
	models "atelier/internal/domain/models/library"
	libraryRepo "atelier/internal/domain/repositories/library"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DocumentService handles document business logic
type DocumentService struct {
	docRepo         libraryRepo.DocumentRepository
	folderRepo      libraryRepo.FolderRepository
	contentAnalyzer *ContentAnalyzer
	pathResolver    *PathResolver
	validator       *ResourceValidator
	logger          *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo libraryRepo.DocumentRepository,
	folderRepo libraryRepo.FolderRepository,
	contentAnalyzer *ContentAnalyzer,
	pathResolver *PathResolver,
	validator *ResourceValidator,
	logger *slog.Logger,
) *DocumentService {
	return &DocumentService{
		docRepo:         docRepo,
		folderRepo:      folderRepo,
		contentAnalyzer: contentAnalyzer,
		pathResolver:    pathResolver,
		validator:       validator,
		logger:          logger,
	}
}

// CreateDocumentRequest represents a document creation request
type CreateDocumentRequest struct {
	WorkspaceID string  `json:"-"`                     // Set by handler from the URL
	UserID      string  `json:"-"`                     // Set by handler from auth context
	FolderPath  *string `json:"folder_path,omitempty"` // Parent folder path ("" or omitted = root)
	FolderID    *string `json:"folder_id,omitempty"`   // Direct parent folder (takes priority over FolderPath)
	Name        string  `json:"name"`                  // May contain path notation ("a/b/c" or "/a/b/c")
	Content     string  `json:"content"`               // Markdown content
	Source      string  `json:"source,omitempty"`      // Source kind; defaults to markdown
}

// UpdateDocumentRequest represents a document update request.
// nil fields are left unchanged.
type UpdateDocumentRequest struct {
	Name       *string `json:"name,omitempty"`
	FolderPath *string `json:"folder_path,omitempty"` // Move to folder path (resolved, auto-created)
	FolderID   *string `json:"folder_id,omitempty"`   // Move to folder ID ("" = root)
	Content    *string `json:"content,omitempty"`
	Source     *string `json:"-"` // Set by import processors when content is re-converted
}

// CreateDocument creates a new document.
// Supports Unix-style path notation in the name field:
//   - "name" → create document at folder_id (or folder_path, or root)
//   - "a/b/c" → auto-create intermediate folders a and b, document c inside
//   - "/a/b/c" → absolute path from root (folder_id and folder_path ignored)
func (s *DocumentService) CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*models.Document, error) {
	// Normalize empty string folder_id to nil for root-level documents
	if req.FolderID != nil && *req.FolderID == "" {
		req.FolderID = nil
	}
	if req.Source == "" {
		req.Source = models.SourceMarkdown
	}

	// Validate parent resources are not deleted
	if err := s.validator.ValidateWorkspace(ctx, req.WorkspaceID, req.UserID); err != nil {
		return nil, err
	}
	if req.FolderID != nil {
		if err := s.validator.ValidateFolder(ctx, *req.FolderID, req.WorkspaceID); err != nil {
			return nil, err
		}
	}

	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// Resolve the target folder and final name. Path notation in the name,
	// folder_id, and folder_path all funnel through the same resolver.
	result, err := s.pathResolver.ResolvePathNotation(ctx, &PathNotationRequest{
		WorkspaceID:   req.WorkspaceID,
		Name:          req.Name,
		FolderID:      req.FolderID,
		FolderPath:    req.FolderPath,
		MaxNameLength: config.MaxDocumentNameLength,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	doc := &models.Document{
		WorkspaceID: req.WorkspaceID,
		FolderID:    result.ResolvedFolderID,
		Name:        result.FinalName,
		Content:     req.Content,
		Source:      req.Source,
		WordCount:   s.contentAnalyzer.CountWords(req.Content),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.attachPath(ctx, doc)

	s.logger.Info("document created",
		"id", doc.ID,
		"name", doc.Name,
		"workspace_id", req.WorkspaceID,
		"folder_id", doc.FolderID,
		"source", doc.Source,
		"word_count", doc.WordCount,
		"path_notation", IsPathNotation(req.Name),
	)

	return doc, nil
}

// GetDocument retrieves a document with its computed path
func (s *DocumentService) GetDocument(ctx context.Context, documentID, workspaceID, userID string) (*models.Document, error) {
	if err := s.validator.ValidateWorkspace(ctx, workspaceID, userID); err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, documentID, workspaceID)
	if err != nil {
		return nil, err
	}

	s.attachPath(ctx, doc)

	return doc, nil
}

// UpdateDocument updates a document's name, location, or content
func (s *DocumentService) UpdateDocument(ctx context.Context, documentID, workspaceID, userID string, req *UpdateDocumentRequest) (*models.Document, error) {
	if err := s.validator.ValidateWorkspace(ctx, workspaceID, userID); err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, documentID, workspaceID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		trimmedName := strings.TrimSpace(*req.Name)
		if err := ValidateSimpleName(trimmedName, config.MaxDocumentNameLength); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		doc.Name = trimmedName
	}

	// Priority-based folder resolution for moving documents:
	// folder_id first, then folder_path. Neither means the document stays put.
	if req.FolderID != nil {
		if *req.FolderID == "" {
			// Empty string means root
			doc.FolderID = nil
		} else {
			if err := s.validator.ValidateFolder(ctx, *req.FolderID, workspaceID); err != nil {
				return nil, err
			}
			doc.FolderID = req.FolderID
		}
	} else if req.FolderPath != nil {
		if err := s.pathResolver.ValidateFolderPath(*req.FolderPath); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		resolvedFolder, err := s.pathResolver.ResolveFolderPath(ctx, workspaceID, *req.FolderPath)
		if err != nil {
			return nil, err
		}
		doc.FolderID = resolvedFolder
	}

	if req.Content != nil {
		doc.Content = *req.Content
		doc.WordCount = s.contentAnalyzer.CountWords(doc.Content)
	}

	if req.Source != nil {
		if err := validateSource(*req.Source); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		doc.Source = *req.Source
	}

	doc.UpdatedAt = time.Now()

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.attachPath(ctx, doc)

	s.logger.Info("document updated",
		"id", doc.ID,
		"name", doc.Name,
		"workspace_id", workspaceID,
	)

	return doc, nil
}

// DeleteDocument deletes a document
func (s *DocumentService) DeleteDocument(ctx context.Context, documentID, workspaceID, userID string) error {
	if err := s.validator.ValidateWorkspace(ctx, workspaceID, userID); err != nil {
		return err
	}

	if err := s.docRepo.Delete(ctx, documentID, workspaceID); err != nil {
		return err
	}

	s.logger.Info("document deleted",
		"id", documentID,
		"workspace_id", workspaceID,
	)

	return nil
}

// SearchDocumentsRequest represents a document search request. The handler
// builds it from query parameters; WorkspaceID comes from the URL.
type SearchDocumentsRequest struct {
	WorkspaceID string   `json:"-"`
	UserID      string   `json:"-"`
	Query       string   `json:"query"`
	Fields      []string `json:"fields,omitempty"`    // "name", "content" (default: both)
	Limit       int      `json:"limit,omitempty"`     // Results per page (default: 20, max: 100)
	Offset      int      `json:"offset,omitempty"`    // Skip N results (default: 0)
	Language    string   `json:"language,omitempty"`  // FTS language config (default: "english")
	FolderID    *string  `json:"folder_id,omitempty"` // Optional folder filter
}

// SearchDocuments performs full-text search across the workspace's documents
func (s *DocumentService) SearchDocuments(ctx context.Context, req *SearchDocumentsRequest) (*models.SearchResults, error) {
	if err := s.validator.ValidateWorkspace(ctx, req.WorkspaceID, req.UserID); err != nil {
		return nil, err
	}
	if req.FolderID != nil && *req.FolderID != "" {
		if err := s.validator.ValidateFolder(ctx, *req.FolderID, req.WorkspaceID); err != nil {
			return nil, err
		}
	}

	fields := make([]models.SearchField, 0, len(req.Fields))
	for _, field := range req.Fields {
		fields = append(fields, models.SearchField(field))
	}

	opts := &models.SearchOptions{
		Query:       strings.TrimSpace(req.Query),
		WorkspaceID: req.WorkspaceID,
		Fields:      fields,
		Limit:       req.Limit,
		Offset:      req.Offset,
		Language:    req.Language,
		FolderID:    req.FolderID,
	}
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	results, err := s.docRepo.SearchDocuments(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	s.logger.Info("documents searched",
		"workspace_id", req.WorkspaceID,
		"query", opts.Query,
		"total_count", results.TotalCount,
		"returned", len(results.Results),
	)

	return results, nil
}

// attachPath computes and sets the display path, falling back to the bare
// name when the folder chain cannot be resolved.
func (s *DocumentService) attachPath(ctx context.Context, doc *models.Document) {
	path, err := s.docRepo.GetPath(ctx, doc)
	if err != nil {
		s.logger.Warn("failed to compute path", "doc_id", doc.ID, "error", err)
		doc.Path = doc.Name
		return
	}
	doc.Path = path
}

// validateCreateRequest validates a document creation request
func (s *DocumentService) validateCreateRequest(req *CreateDocumentRequest) error {
	// Validate folder path if provided
	if req.FolderPath != nil {
		if err := s.pathResolver.ValidateFolderPath(*req.FolderPath); err != nil {
			return err
		}
	}

	if err := validateSource(req.Source); err != nil {
		return err
	}

	// Name rules (length, charset, path notation) are enforced by the path
	// resolver, which sees both simple and path-notation names.
	return validation.ValidateStruct(req,
		validation.Field(&req.WorkspaceID, validation.Required),
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.FolderPath,
			validation.Length(0, config.MaxDocumentPathLength), // 0-length allowed for root level
		),
		validation.Field(&req.Name, validation.Required),
		validation.Field(&req.Content, validation.Required),
	)
}

// validateSource checks that a source kind is one of the known values
func validateSource(source string) error {
	switch source {
	case models.SourceMarkdown, models.SourceText, models.SourceHTML, models.SourcePDF:
		return nil
	default:
		return fmt.Errorf("unknown source kind: %q", source)
	}
}
