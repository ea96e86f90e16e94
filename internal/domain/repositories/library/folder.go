package library

import (
	"context"

	"atelier/internal/domain/models/library"
)

// FolderRepository defines data access operations for folders
type FolderRepository interface {
	// Create creates a new folder
	Create(ctx context.Context, folder *library.Folder) error

	// GetByID retrieves a folder by ID
	GetByID(ctx context.Context, id, workspaceID string) (*library.Folder, error)

	// Update updates a folder
	Update(ctx context.Context, folder *library.Folder) error

	// Delete deletes a folder
	Delete(ctx context.Context, id, workspaceID string) error

	// ListChildren lists immediate child folders
	ListChildren(ctx context.Context, folderID *string, workspaceID string) ([]library.Folder, error)

	// CreateIfNotExists creates a folder only if it doesn't exist
	CreateIfNotExists(ctx context.Context, workspaceID string, parentID *string, name string) (*library.Folder, error)

	// GetPath computes the path for a folder
	GetPath(ctx context.Context, folderID *string, workspaceID string) (string, error)

	// GetAllByWorkspace retrieves all folders in a workspace (flat list)
	GetAllByWorkspace(ctx context.Context, workspaceID string) ([]library.Folder, error)
}
