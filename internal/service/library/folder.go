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

// FolderService handles folder business logic
type FolderService struct {
	folderRepo   libraryRepo.FolderRepository
	docRepo      libraryRepo.DocumentRepository
	pathResolver *PathResolver
	validator    *ResourceValidator
	logger       *slog.Logger
}

// NewFolderService creates a new folder service
func NewFolderService(
	folderRepo libraryRepo.FolderRepository,
	docRepo libraryRepo.DocumentRepository,
	pathResolver *PathResolver,
	validator *ResourceValidator,
	logger *slog.Logger,
) *FolderService {
	return &FolderService{
		folderRepo:   folderRepo,
		docRepo:      docRepo,
		pathResolver: pathResolver,
		validator:    validator,
		logger:       logger,
	}
}

// CreateFolderRequest represents a folder creation request
type CreateFolderRequest struct {
	WorkspaceID string  `json:"-"` // Set by handler from the URL
	UserID      string  `json:"-"` // Set by handler from auth context
	Name        string  `json:"name"`
	FolderID    *string `json:"folder_id,omitempty"`   // Parent folder ID (nil for root)
	FolderPath  *string `json:"folder_path,omitempty"` // Alternative: parent folder path
}

// UpdateFolderRequest represents a folder update request.
// nil fields are left unchanged.
type UpdateFolderRequest struct {
	Name     *string `json:"name,omitempty"`      // Rename
	FolderID *string `json:"folder_id,omitempty"` // Move ("" = move to root)
}

// FolderContents represents a folder with its immediate children
type FolderContents struct {
	Folder    *models.Folder    `json:"folder,omitempty"` // nil for root
	Folders   []models.Folder   `json:"folders"`
	Documents []models.Document `json:"documents"`
}

// CreateFolder creates a new folder.
// Supports Unix-style path notation in the name field:
//   - "name" → create folder at folder_id (or folder_path, or root)
//   - "a/b/c" → auto-create intermediate folders a and b, final folder c
//   - "/a/b/c" → absolute path from root (folder_id and folder_path ignored)
func (s *FolderService) CreateFolder(ctx context.Context, req *CreateFolderRequest) (*models.Folder, error) {
	// Normalize empty string to nil for root-level folders
	if req.FolderID != nil && *req.FolderID == "" {
		req.FolderID = nil
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

	// Path notation, folder_id, and folder_path all funnel through the resolver
	result, err := s.pathResolver.ResolvePathNotation(ctx, &PathNotationRequest{
		WorkspaceID:   req.WorkspaceID,
		Name:          req.Name,
		FolderID:      req.FolderID,
		FolderPath:    req.FolderPath,
		MaxNameLength: config.MaxFolderNameLength,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// Duplicate sibling names conflict; the response carries the existing ID
	// so clients can recover without a second lookup.
	if err := s.checkSiblingConflict(ctx, req.WorkspaceID, result.ResolvedFolderID, result.FinalName, ""); err != nil {
		return nil, err
	}

	folder := &models.Folder{
		WorkspaceID: req.WorkspaceID,
		ParentID:    result.ResolvedFolderID,
		Name:        result.FinalName,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, err
	}

	s.attachPath(ctx, folder)

	s.logger.Info("folder created",
		"id", folder.ID,
		"name", folder.Name,
		"workspace_id", req.WorkspaceID,
		"parent_folder_id", folder.ParentID,
		"path", folder.Path,
	)

	return folder, nil
}

// GetFolder retrieves a folder with its computed path
func (s *FolderService) GetFolder(ctx context.Context, folderID, workspaceID, userID string) (*models.Folder, error) {
	if err := s.validator.ValidateWorkspace(ctx, workspaceID, userID); err != nil {
		return nil, err
	}

	folder, err := s.folderRepo.GetByID(ctx, folderID, workspaceID)
	if err != nil {
		return nil, err
	}

	s.attachPath(ctx, folder)

	return folder, nil
}

// UpdateFolder renames or moves a folder
func (s *FolderService) UpdateFolder(ctx context.Context, folderID, workspaceID, userID string, req *UpdateFolderRequest) (*models.Folder, error) {
	if err := s.validator.ValidateWorkspace(ctx, workspaceID, userID); err != nil {
		return nil, err
	}

	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	folder, err := s.folderRepo.GetByID(ctx, folderID, workspaceID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		folder.Name = strings.TrimSpace(*req.Name)
	}

	if req.FolderID != nil {
		if *req.FolderID == "" {
			// Empty string means move to root
			folder.ParentID = nil
			s.logger.Debug("moving folder to root", "folder_id", folderID)
		} else {
			parent, err := s.folderRepo.GetByID(ctx, *req.FolderID, workspaceID)
			if err != nil {
				return nil, fmt.Errorf("parent folder not found: %w", err)
			}

			// A folder cannot become a child of itself or of its own subtree
			if err := s.validateNoCircularReference(ctx, folderID, parent.ID, workspaceID); err != nil {
				return nil, err
			}

			folder.ParentID = &parent.ID
			s.logger.Debug("moving folder to new parent",
				"folder_id", folderID,
				"new_parent_id", parent.ID,
			)
		}
	}

	// Check for duplicate name in the target location
	if err := s.checkSiblingConflict(ctx, workspaceID, folder.ParentID, folder.Name, folder.ID); err != nil {
		return nil, err
	}

	folder.UpdatedAt = time.Now()

	if err := s.folderRepo.Update(ctx, folder); err != nil {
		return nil, err
	}

	s.attachPath(ctx, folder)

	s.logger.Info("folder updated",
		"id", folder.ID,
		"name", folder.Name,
		"parent_folder_id", folder.ParentID,
		"path", folder.Path,
	)

	return folder, nil
}

// DeleteFolder deletes a folder and all its contents (documents and
// subfolders) recursively
func (s *FolderService) DeleteFolder(ctx context.Context, folderID, workspaceID, userID string) error {
	if err := s.validator.ValidateWorkspace(ctx, workspaceID, userID); err != nil {
		return err
	}

	folder, err := s.folderRepo.GetByID(ctx, folderID, workspaceID)
	if err != nil {
		return err
	}

	if err := s.deleteDescendants(ctx, folderID, workspaceID); err != nil {
		return err
	}

	if err := s.folderRepo.Delete(ctx, folderID, workspaceID); err != nil {
		return err
	}

	s.logger.Info("folder deleted",
		"id", folderID,
		"name", folder.Name,
		"workspace_id", workspaceID,
	)

	return nil
}

// deleteDescendants recursively deletes all child folders and their documents
func (s *FolderService) deleteDescendants(ctx context.Context, folderID, workspaceID string) error {
	childFolders, err := s.folderRepo.ListChildren(ctx, &folderID, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list child folders: %w", err)
	}

	for _, child := range childFolders {
		if err := s.deleteDescendants(ctx, child.ID, workspaceID); err != nil {
			return err
		}
		if err := s.folderRepo.Delete(ctx, child.ID, workspaceID); err != nil {
			return fmt.Errorf("failed to delete child folder %q: %w", child.Name, err)
		}
		s.logger.Debug("deleted child folder", "id", child.ID, "name", child.Name)
	}

	docs, err := s.docRepo.ListByFolder(ctx, &folderID, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	for _, doc := range docs {
		if err := s.docRepo.Delete(ctx, doc.ID, workspaceID); err != nil {
			return fmt.Errorf("failed to delete document %q: %w", doc.Name, err)
		}
		s.logger.Debug("deleted document", "id", doc.ID, "name", doc.Name)
	}

	return nil
}

// ListChildren lists the immediate child folders and documents of a folder
// (or of the workspace root when folderID is nil)
func (s *FolderService) ListChildren(ctx context.Context, folderID *string, workspaceID, userID string) (*FolderContents, error) {
	if err := s.validator.ValidateWorkspace(ctx, workspaceID, userID); err != nil {
		return nil, err
	}

	var folder *models.Folder
	var err error

	if folderID != nil && *folderID != "" {
		folder, err = s.folderRepo.GetByID(ctx, *folderID, workspaceID)
		if err != nil {
			return nil, err
		}
		s.attachPath(ctx, folder)
	}

	childFolders, err := s.folderRepo.ListChildren(ctx, folderID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child folders: %w", err)
	}

	docs, err := s.docRepo.ListByFolder(ctx, folderID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	// Compute display paths for all documents
	for i := range docs {
		path, err := s.docRepo.GetPath(ctx, &docs[i])
		if err != nil {
			s.logger.Warn("failed to compute document path",
				"doc_id", docs[i].ID,
				"error", err,
			)
			docs[i].Path = docs[i].Name
		} else {
			docs[i].Path = path
		}
	}

	return &FolderContents{
		Folder:    folder,
		Folders:   childFolders,
		Documents: docs,
	}, nil
}

// checkSiblingConflict returns a ConflictError if a different folder with the
// same name already exists under the given parent
func (s *FolderService) checkSiblingConflict(ctx context.Context, workspaceID string, parentID *string, name, excludeID string) error {
	siblings, err := s.folderRepo.ListChildren(ctx, parentID, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate names: %w", err)
	}
	for _, sibling := range siblings {
		if sibling.ID != excludeID && sibling.Name == name {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists in this location", name),
				ResourceType: "folder",
				ResourceID:   sibling.ID,
			}
		}
	}
	return nil
}

// attachPath computes and sets the display path, falling back to the bare
// name when the folder chain cannot be resolved.
func (s *FolderService) attachPath(ctx context.Context, folder *models.Folder) {
	path, err := s.folderRepo.GetPath(ctx, &folder.ID, folder.WorkspaceID)
	if err != nil {
		s.logger.Warn("failed to compute path", "folder_id", folder.ID, "error", err)
		folder.Path = folder.Name
		return
	}
	folder.Path = path
}

// validateCreateRequest validates a folder creation request.
// Name length and charset rules live in the path resolver, which sees both
// simple and path-notation names.
func (s *FolderService) validateCreateRequest(req *CreateFolderRequest) error {
	if req.FolderPath != nil {
		if err := s.pathResolver.ValidateFolderPath(*req.FolderPath); err != nil {
			return err
		}
	}

	return validation.ValidateStruct(req,
		validation.Field(&req.WorkspaceID, validation.Required),
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Name, validation.Required),
	)
}

// validateUpdateRequest validates a folder update request
func (s *FolderService) validateUpdateRequest(req *UpdateFolderRequest) error {
	if req.Name == nil && req.FolderID == nil {
		return fmt.Errorf("at least one field must be provided")
	}

	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if err := ValidateSimpleName(trimmed, config.MaxFolderNameLength); err != nil {
			return err
		}
	}

	return nil
}

// validateNoCircularReference ensures moving a folder will not create a cycle
func (s *FolderService) validateNoCircularReference(ctx context.Context, folderID, newParentID, workspaceID string) error {
	if folderID == newParentID {
		return fmt.Errorf("%w: cannot move folder into itself", domain.ErrValidation)
	}

	// Walk up from the new parent; hitting the folder being moved means the
	// target lives inside its own subtree.
	currentID := newParentID
	for {
		parent, err := s.folderRepo.GetByID(ctx, currentID, workspaceID)
		if err != nil {
			return err
		}

		if parent.ParentID == nil {
			break
		}

		if *parent.ParentID == folderID {
			return fmt.Errorf("%w: cannot move folder into its own subtree", domain.ErrValidation)
		}

		currentID = *parent.ParentID
	}

	return nil
}
