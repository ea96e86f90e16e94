package library

import (
	"context"

	"atelier/internal/domain/models/library"
)

// DocumentRepository defines data access operations for documents
type DocumentRepository interface {
	// Create creates a new document
	Create(ctx context.Context, doc *library.Document) error

	// GetByID retrieves a document by ID
	GetByID(ctx context.Context, id, workspaceID string) (*library.Document, error)

	// GetByPath retrieves a document by its path (e.g., "notes/chapter-1.md")
	GetByPath(ctx context.Context, path string, workspaceID string) (*library.Document, error)

	// Update updates an existing document
	Update(ctx context.Context, doc *library.Document) error

	// Delete deletes a document
	Delete(ctx context.Context, id, workspaceID string) error

	// DeleteAllByWorkspace deletes all documents in a workspace
	DeleteAllByWorkspace(ctx context.Context, workspaceID string) error

	// ListByFolder lists documents in a folder
	ListByFolder(ctx context.Context, folderID *string, workspaceID string) ([]library.Document, error)

	// GetPath computes the display path for a document
	GetPath(ctx context.Context, doc *library.Document) (string, error)

	// GetAllMetadataByWorkspace retrieves all document metadata in a workspace (no content)
	GetAllMetadataByWorkspace(ctx context.Context, workspaceID string) ([]library.Document, error)

	// SearchDocuments performs full-text search across document content
	// Currently supports only full-text search (SearchStrategyFullText)
	SearchDocuments(ctx context.Context, options *library.SearchOptions) (*library.SearchResults, error)
}
