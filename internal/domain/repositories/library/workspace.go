package library

import (
	"context"

	"atelier/internal/domain/models/library"
)

// WorkspaceRepository defines data access operations for workspaces
type WorkspaceRepository interface {
	// Create creates a new workspace and returns it with generated ID and timestamps
	Create(ctx context.Context, workspace *library.Workspace) error

	// GetByID retrieves a workspace by ID
	GetByID(ctx context.Context, id, userID string) (*library.Workspace, error)

	// List retrieves all workspaces for a user, ordered by updated_at DESC
	List(ctx context.Context, userID string) ([]library.Workspace, error)

	// Update updates a workspace's name, description, system prompt and updated_at timestamp
	Update(ctx context.Context, workspace *library.Workspace) error

	// Delete soft-deletes a workspace by setting deleted_at timestamp
	// Returns the deleted workspace with deleted_at set
	Delete(ctx context.Context, id, userID string) (*library.Workspace, error)
}
