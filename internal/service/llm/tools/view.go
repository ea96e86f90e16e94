package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"atelier/internal/domain"
	"atelier/internal/domain/models/library"
	libraryRepo "atelier/internal/domain/repositories/library"
)

// ViewTool implements view_document: read a document's content or list a
// folder's contents.
type ViewTool struct {
	workspaceID  string
	documentRepo libraryRepo.DocumentRepository
	folderRepo   libraryRepo.FolderRepository
	pathResolver *PathResolver
	config       *ToolConfig
}

// NewViewTool creates a new ViewTool instance.
func NewViewTool(
	workspaceID string,
	documentRepo libraryRepo.DocumentRepository,
	folderRepo libraryRepo.FolderRepository,
	config *ToolConfig,
) *ViewTool {
	if config == nil {
		config = DefaultToolConfig()
	}
	return &ViewTool{
		workspaceID:  workspaceID,
		documentRepo: documentRepo,
		folderRepo:   folderRepo,
		pathResolver: NewPathResolver(workspaceID, folderRepo),
		config:       config,
	}
}

// Execute implements ToolExecutor.
// Input parameters:
//   - path (string, required): Unix-style path to a document or folder
//
// Returns either:
//   - document: {type: "document", id, name, path, content, word_count, was_truncated}
//   - folder:   {type: "folder", path, documents: [...], folders: [...]}
func (t *ViewTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	path, ok := input["path"].(string)
	if !ok || path == "" {
		return nil, errors.New("missing required parameter: path (string)")
	}

	path = normalizePath(path)

	if path == "/" {
		return t.listFolderContents(ctx, nil, "/")
	}

	// A path names either a document or a folder; try the document first.
	doc, err := t.documentRepo.GetByPath(ctx, path, t.workspaceID)
	if err == nil {
		return t.formatDocument(ctx, doc)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	folderID, folderPath, err := t.pathResolver.ResolveFolderPath(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errorResult("NOT_FOUND", fmt.Sprintf("Nothing at %s (tried as both document and folder). Use view_tree to see what exists.", path)), nil
		}
		return nil, fmt.Errorf("failed to resolve folder path: %w", err)
	}

	return t.listFolderContents(ctx, folderID, folderPath)
}

// formatDocument converts a document to the tool result format.
func (t *ViewTool) formatDocument(ctx context.Context, doc *library.Document) (interface{}, error) {
	path, err := t.documentRepo.GetPath(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to compute document path: %w", err)
	}

	content := doc.Content
	wasTruncated := false
	if len(content) > t.config.MaxContentSize {
		content = content[:t.config.MaxContentSize] + "\n\n[Content truncated - too large to display fully]"
		wasTruncated = true
	}

	return map[string]interface{}{
		"type":          "document",
		"id":            doc.ID,
		"name":          doc.Name,
		"path":          path,
		"content":       content,
		"word_count":    doc.WordCount,
		"was_truncated": wasTruncated,
	}, nil
}

// listFolderContents lists documents and subfolders in a folder.
func (t *ViewTool) listFolderContents(ctx context.Context, folderID *string, folderPath string) (interface{}, error) {
	documents, err := t.documentRepo.ListByFolder(ctx, folderID, t.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	folders, err := t.folderRepo.ListChildren(ctx, folderID, t.workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
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

	folderList := make([]map[string]interface{}, len(folders))
	for i, folder := range folders {
		folderList[i] = map[string]interface{}{
			"id":   folder.ID,
			"name": folder.Name,
		}
	}

	return map[string]interface{}{
		"type":      "folder",
		"path":      folderPath,
		"documents": docList,
		"folders":   folderList,
	}, nil
}

// normalizePath ensures a path starts with / and has no trailing slash.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
