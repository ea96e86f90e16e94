package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"atelier/internal/domain"
	libraryRepo "atelier/internal/domain/repositories/library"
)

// TreeTool implements view_tree: a hierarchical listing of folders and
// documents below a starting folder.
type TreeTool struct {
	workspaceID  string
	documentRepo libraryRepo.DocumentRepository
	pathResolver *PathResolver
	config       *ToolConfig
}

// NewTreeTool creates a new TreeTool instance.
func NewTreeTool(
	workspaceID string,
	documentRepo libraryRepo.DocumentRepository,
	folderRepo libraryRepo.FolderRepository,
	config *ToolConfig,
) *TreeTool {
	if config == nil {
		config = DefaultToolConfig()
	}
	return &TreeTool{
		workspaceID:  workspaceID,
		documentRepo: documentRepo,
		pathResolver: NewPathResolver(workspaceID, folderRepo),
		config:       config,
	}
}

// Execute implements ToolExecutor.
// Input parameters:
//   - folder (string, optional, default "/"): Unix-style path to start from
//   - depth (number, optional, default 2, max 5): levels to traverse
//
// Returns {type: "tree", path, depth, folders: [...], documents: [...]}.
func (t *TreeTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	folderPath := "/"
	if folderVal, exists := input["folder"]; exists {
		if fp, ok := folderVal.(string); ok && strings.TrimSpace(fp) != "" {
			folderPath = strings.TrimSpace(fp)
		}
	}
	folderPath = normalizePath(folderPath)

	// JSON numbers arrive as float64.
	depth := t.config.TreeDefaultDepth
	if depthVal, exists := input["depth"]; exists {
		depthFloat, ok := depthVal.(float64)
		if !ok {
			return nil, errors.New("depth must be a number")
		}
		depth = int(depthFloat)
	}
	if depth < 1 {
		depth = 1
	}
	if depth > t.config.TreeMaxDepth {
		depth = t.config.TreeMaxDepth
	}

	var folderID *string
	resolvedPath := folderPath
	if folderPath != "/" {
		resolvedID, resolvedPathStr, err := t.pathResolver.ResolveFolderPath(ctx, folderPath)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return errorResult("NOT_FOUND", fmt.Sprintf("Folder not found: %s", folderPath)), nil
			}
			return nil, fmt.Errorf("failed to resolve folder path: %w", err)
		}
		folderID = resolvedID
		resolvedPath = resolvedPathStr
	}

	tree, err := t.buildTree(ctx, folderID, depth, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to build tree: %w", err)
	}

	tree["type"] = "tree"
	tree["path"] = resolvedPath
	tree["depth"] = depth

	return tree, nil
}

// buildTree recursively builds the tree structure up to the specified depth.
func (t *TreeTool) buildTree(ctx context.Context, folderID *string, maxDepth, currentDepth int) (map[string]interface{}, error) {
	if currentDepth >= maxDepth {
		return map[string]interface{}{
			"folders":   []map[string]interface{}{},
			"documents": []map[string]interface{}{},
		}, nil
	}

	folders, err := t.pathResolver.FolderRepo.ListChildren(ctx, folderID, t.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	documents, err := t.documentRepo.ListByFolder(ctx, folderID, t.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	folderList := make([]map[string]interface{}, len(folders))
	for i, folder := range folders {
		subtree, err := t.buildTree(ctx, &folder.ID, maxDepth, currentDepth+1)
		if err != nil {
			return nil, err
		}
		folderList[i] = map[string]interface{}{
			"id":        folder.ID,
			"name":      folder.Name,
			"folders":   subtree["folders"],
			"documents": subtree["documents"],
		}
	}

	docList := make([]map[string]interface{}, len(documents))
	for i, doc := range documents {
		docList[i] = map[string]interface{}{
			"id":         doc.ID,
			"name":       doc.Name,
			"word_count": doc.WordCount,
			"updated_at": doc.UpdatedAt,
		}
	}

	return map[string]interface{}{
		"folders":   folderList,
		"documents": docList,
	}, nil
}
