package tools

import (
	"context"
	"fmt"
	"strings"

	"atelier/internal/domain"
	"atelier/internal/domain/models/library"
	libraryRepo "atelier/internal/domain/repositories/library"
)

// PathResolver resolves folder paths to folder IDs by walking the hierarchy.
// Shared by the view, tree and search tools.
type PathResolver struct {
	workspaceID string
	FolderRepo  libraryRepo.FolderRepository // exported for use by tools
}

// NewPathResolver creates a new PathResolver instance.
func NewPathResolver(workspaceID string, folderRepo libraryRepo.FolderRepository) *PathResolver {
	return &PathResolver{
		workspaceID: workspaceID,
		FolderRepo:  folderRepo,
	}
}

// ResolveFolderPath walks a path to find the corresponding folder ID.
// Returns the folder ID and the resolved path.
//
// Examples:
//   - "" or "/" → (nil, "/", nil) for the root folder
//   - "drafts/act-one" → (&folderID, "/drafts/act-one", nil)
//   - "nonexistent" → (nil, "", ErrNotFound)
func (r *PathResolver) ResolveFolderPath(ctx context.Context, path string) (*string, string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, "/", nil
	}

	segments := strings.Split(path, "/")

	var currentFolderID *string
	currentPath := "/"

	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		folder, err := r.findFolderByName(ctx, currentFolderID, segment)
		if err != nil {
			return nil, "", err
		}

		currentFolderID = &folder.ID
		if currentPath == "/" {
			currentPath = "/" + folder.Name
		} else {
			currentPath = currentPath + "/" + folder.Name
		}
	}

	return currentFolderID, currentPath, nil
}

// findFolderByName finds a folder by name within a parent folder.
func (r *PathResolver) findFolderByName(ctx context.Context, parentID *string, name string) (*library.Folder, error) {
	folders, err := r.FolderRepo.ListChildren(ctx, parentID, r.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	for _, folder := range folders {
		if folder.Name == name {
			return &folder, nil
		}
	}

	return nil, fmt.Errorf("folder '%s': %w", name, domain.ErrNotFound)
}
