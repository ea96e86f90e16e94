package library

import (
	"context"
	"fmt"

	libraryRepo "atelier/internal/domain/repositories/library"
)

// ResourceValidator checks that parent resources exist, belong to the user,
// and are not soft-deleted before operations touch their children. Every
// library entry point resolves the workspace through it, so a foreign or
// deleted workspace reads as not found.
type ResourceValidator struct {
	workspaceRepo libraryRepo.WorkspaceRepository
	folderRepo    libraryRepo.FolderRepository
}

// NewResourceValidator creates a new resource validator
func NewResourceValidator(
	workspaceRepo libraryRepo.WorkspaceRepository,
	folderRepo libraryRepo.FolderRepository,
) *ResourceValidator {
	return &ResourceValidator{
		workspaceRepo: workspaceRepo,
		folderRepo:    folderRepo,
	}
}

// ValidateWorkspace ensures a workspace exists, is owned by the user, and is
// not soft-deleted. Returns domain.ErrNotFound otherwise.
func (v *ResourceValidator) ValidateWorkspace(ctx context.Context, workspaceID, userID string) error {
	_, err := v.workspaceRepo.GetByID(ctx, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("invalid workspace: %w", err)
	}
	return nil
}

// ValidateFolder ensures a folder exists in the workspace and is not
// soft-deleted. Returns nil if folderID is empty (root is always valid).
func (v *ResourceValidator) ValidateFolder(ctx context.Context, folderID, workspaceID string) error {
	if folderID == "" {
		return nil // Root folder is always valid
	}

	_, err := v.folderRepo.GetByID(ctx, folderID, workspaceID)
	if err != nil {
		return fmt.Errorf("invalid folder: %w", err)
	}
	return nil
}
