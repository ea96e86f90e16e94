package library

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"atelier/internal/config"
	"atelier/internal/domain/repositories"
	libraryRepo "atelier/internal/domain/repositories/library"
)

// PathResolver turns folder paths and Unix-style path notation into folder
// IDs, creating missing intermediate folders on the way. Folder chains are
// created inside a transaction so a failed resolution leaves nothing behind.
type PathResolver struct {
	folderRepo libraryRepo.FolderRepository
	txManager  repositories.TransactionManager
}

// NewPathResolver creates a new path resolver
func NewPathResolver(
	folderRepo libraryRepo.FolderRepository,
	txManager repositories.TransactionManager,
) *PathResolver {
	return &PathResolver{
		folderRepo: folderRepo,
		txManager:  txManager,
	}
}

// PathNotationRequest asks for a name that may carry path notation to be
// resolved against the folder_id → folder_path → root priority order.
type PathNotationRequest struct {
	WorkspaceID   string
	Name          string  // May contain path notation ("a/b/c" or "/a/b/c")
	FolderID      *string // Priority 1: direct parent folder
	FolderPath    *string // Priority 2: parent folder path (resolved, auto-created)
	MaxNameLength int     // Limit applied to the final name segment
}

// PathNotationResult is the resolved parent folder and final name.
type PathNotationResult struct {
	ResolvedFolderID *string // nil = root
	FinalName        string
}

// ResolveFolderPath resolves a folder path to a folder ID, creating folders
// if needed. Returns nil for an empty path (root level).
func (s *PathResolver) ResolveFolderPath(ctx context.Context, workspaceID, folderPath string) (*string, error) {
	// Trim leading/trailing slashes
	folderPath = strings.Trim(folderPath, "/")

	// Empty path means root level
	if folderPath == "" {
		return nil, nil
	}

	segments := strings.Split(folderPath, "/")
	if len(segments) == 0 {
		return nil, fmt.Errorf("invalid folder_path")
	}

	// Create all folders in the hierarchy within a transaction
	var resultFolderID *string
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var currentParentID *string

		for _, segment := range segments {
			if len(segment) > config.MaxFolderNameLength {
				return fmt.Errorf("folder name '%s' exceeds maximum length of %d", segment, config.MaxFolderNameLength)
			}

			// Create folder if it doesn't exist
			folder, err := s.folderRepo.CreateIfNotExists(txCtx, workspaceID, currentParentID, segment)
			if err != nil {
				return fmt.Errorf("failed to create/get folder '%s': %w", segment, err)
			}

			currentParentID = &folder.ID
		}

		resultFolderID = currentParentID
		return nil
	})

	if err != nil {
		return nil, err
	}

	return resultFolderID, nil
}

// ValidateFolderPath validates a folder path
func (s *PathResolver) ValidateFolderPath(path string) error {
	// Empty string is valid (root level)
	if path == "" {
		return nil
	}

	if len(path) > config.MaxDocumentPathLength {
		return fmt.Errorf("folder_path exceeds maximum length of %d", config.MaxDocumentPathLength)
	}

	// No leading/trailing slashes
	if strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return fmt.Errorf("folder_path cannot start or end with '/'")
	}

	// No consecutive slashes
	if strings.Contains(path, "//") {
		return fmt.Errorf("folder_path cannot contain consecutive slashes")
	}

	// Only alphanumeric, spaces, hyphens, underscores, dots, slashes
	for _, char := range path {
		if !unicode.IsLetter(char) && !unicode.IsDigit(char) &&
			char != ' ' && char != '-' && char != '_' && char != '.' && char != '/' {
			return fmt.Errorf("folder_path contains invalid character: %c", char)
		}
	}

	// Prevent . and .. as complete folder names (path traversal safety)
	segments := strings.Split(path, "/")
	for _, segment := range segments {
		if segment == "." || segment == ".." {
			return fmt.Errorf("folder_path cannot contain '.' or '..' as folder names")
		}
	}

	return nil
}

// ResolvePathNotation handles Unix-style path notation with priority-based
// folder resolution: folder_id first, then folder_path, then root. An
// absolute name ("/a/b/c") ignores both and starts from root.
func (s *PathResolver) ResolvePathNotation(ctx context.Context, req *PathNotationRequest) (*PathNotationResult, error) {
	if !IsPathNotation(req.Name) {
		// No path notation - just validate simple name and resolve the parent
		name := strings.TrimSpace(req.Name)
		if err := ValidateSimpleName(name, req.MaxNameLength); err != nil {
			return nil, fmt.Errorf("invalid name: %w", err)
		}

		resolvedFolderID, err := s.resolveBaseFolder(ctx, req)
		if err != nil {
			return nil, err
		}

		return &PathNotationResult{
			ResolvedFolderID: resolvedFolderID,
			FinalName:        name,
		}, nil
	}

	// Path notation detected - parse it
	pathResult, err := ParsePath(req.Name, req.MaxNameLength)
	if err != nil {
		return nil, fmt.Errorf("invalid path notation: %w", err)
	}

	// Resolve base folder ID based on absolute vs relative
	var baseParentID *string
	if pathResult.IsAbsolute {
		// Absolute path always starts from root
		baseParentID = nil
	} else {
		baseParentID, err = s.resolveBaseFolder(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	// Create intermediate folders and resolve final folder ID in a transaction
	var resolvedFolderID *string
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		currentParentID := baseParentID

		for _, segment := range pathResult.ParentPath {
			if err := ValidateSimpleName(segment, config.MaxFolderNameLength); err != nil {
				return fmt.Errorf("invalid folder name '%s': %w", segment, err)
			}

			// Create folder if it doesn't exist (idempotent)
			intermediateFolder, err := s.folderRepo.CreateIfNotExists(txCtx, req.WorkspaceID, currentParentID, segment)
			if err != nil {
				return fmt.Errorf("failed to create intermediate folder '%s': %w", segment, err)
			}

			currentParentID = &intermediateFolder.ID
		}

		resolvedFolderID = currentParentID
		return nil
	})

	if err != nil {
		return nil, err
	}

	// Validate final name (no slashes allowed)
	if err := ValidateSimpleName(pathResult.FinalName, req.MaxNameLength); err != nil {
		return nil, fmt.Errorf("invalid final name '%s': %w", pathResult.FinalName, err)
	}

	return &PathNotationResult{
		ResolvedFolderID: resolvedFolderID,
		FinalName:        pathResult.FinalName,
	}, nil
}

// resolveBaseFolder applies the folder_id → folder_path → root priority order.
func (s *PathResolver) resolveBaseFolder(ctx context.Context, req *PathNotationRequest) (*string, error) {
	if req.FolderID != nil {
		// Priority 1: use provided folder_id directly
		return req.FolderID, nil
	}
	if req.FolderPath != nil {
		// Priority 2: resolve folder_path, creating folders as needed
		resolved, err := s.ResolveFolderPath(ctx, req.WorkspaceID, *req.FolderPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve folder_path: %w", err)
		}
		return resolved, nil
	}
	// Priority 3: root
	return nil, nil
}
