package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"atelier/internal/domain"
	"atelier/internal/domain/models/library"
	libraryRepo "atelier/internal/domain/repositories/library"
	librarySvc "atelier/internal/service/library"
)

// EditTool implements edit_document: exact-match text replacement inside a
// document, or document creation when old_text is empty. Edits apply
// directly to the stored content.
type EditTool struct {
	workspaceID  string
	documentRepo libraryRepo.DocumentRepository
	folderRepo   libraryRepo.FolderRepository
	analyzer     *librarySvc.ContentAnalyzer
	config       *ToolConfig
}

// NewEditTool creates a new EditTool instance.
func NewEditTool(
	workspaceID string,
	documentRepo libraryRepo.DocumentRepository,
	folderRepo libraryRepo.FolderRepository,
	config *ToolConfig,
) *EditTool {
	if config == nil {
		config = DefaultToolConfig()
	}
	return &EditTool{
		workspaceID:  workspaceID,
		documentRepo: documentRepo,
		folderRepo:   folderRepo,
		analyzer:     librarySvc.NewContentAnalyzer(),
		config:       config,
	}
}

// Execute implements ToolExecutor.
// Input parameters:
//   - path (string, required): Unix-style path to the document
//   - old_text (string, required): exact fragment to replace; empty string
//     creates the document at path with new_text as content
//   - new_text (string, required): replacement text (or initial content)
func (t *EditTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	path, ok := input["path"].(string)
	if !ok || path == "" {
		return nil, errors.New("missing required parameter: path")
	}

	// Empty old_text is meaningful (create), so check presence, not content.
	oldText, ok := input["old_text"].(string)
	if !ok {
		return nil, errors.New("missing required parameter: old_text (empty string creates a new document)")
	}
	newText, ok := input["new_text"].(string)
	if !ok {
		return nil, errors.New("missing required parameter: new_text")
	}

	path = normalizePath(path)

	if oldText == "" {
		return t.executeCreate(ctx, path, newText)
	}
	return t.executeReplace(ctx, path, oldText, newText)
}

// executeReplace replaces an exact text fragment once. The match must be
// unique; ambiguity is reported back to the model instead of guessing.
func (t *EditTool) executeReplace(ctx context.Context, path, oldText, newText string) (interface{}, error) {
	doc, err := t.documentRepo.GetByPath(ctx, path, t.workspaceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errorResult("DOC_NOT_FOUND", fmt.Sprintf("Document not found: %s. Pass an empty old_text to create it.", path)), nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	switch count := strings.Count(doc.Content, oldText); {
	case count == 0:
		return errorResult("NO_MATCH", "Text not found in document. Use view_document to see current content and try again."), nil
	case count > 1:
		return errorResult("AMBIGUOUS_MATCH", fmt.Sprintf("Text appears %d times. Provide more surrounding context to make the match unique.", count)), nil
	}

	doc.Content = strings.Replace(doc.Content, oldText, newText, 1)
	doc.WordCount = t.analyzer.CountWords(doc.Content)

	if err := t.documentRepo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	return successResult(path, "Replaced text in document"), nil
}

// executeCreate creates a new document, building the folder hierarchy as
// needed.
func (t *EditTool) executeCreate(ctx context.Context, path, content string) (interface{}, error) {
	_, err := t.documentRepo.GetByPath(ctx, path, t.workspaceID)
	if err == nil {
		return errorResult("ALREADY_EXISTS", fmt.Sprintf("Document already exists: %s. Pass the exact text to replace in old_text to modify it.", path)), nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to check document existence: %w", err)
	}

	folderPath, docName := splitDocPath(path)

	folderID, err := t.resolveOrCreateFolder(ctx, folderPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve folder path: %w", err)
	}

	doc := &library.Document{
		WorkspaceID: t.workspaceID,
		FolderID:    folderID,
		Name:        docName,
		Content:     content,
		Source:      library.SourceMarkdown,
		WordCount:   t.analyzer.CountWords(content),
	}
	if err := t.documentRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return successResult(path, "Created new document"), nil
}

// resolveOrCreateFolder ensures the folder path exists, creating folders as
// needed. Returns the folder ID (or nil for root).
func (t *EditTool) resolveOrCreateFolder(ctx context.Context, folderPath string) (*string, error) {
	if folderPath == "/" || folderPath == "" {
		return nil, nil
	}

	folderPath = strings.Trim(folderPath, "/")
	segments := strings.Split(folderPath, "/")

	var currentFolderID *string
	for _, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		folder, err := t.folderRepo.CreateIfNotExists(ctx, t.workspaceID, currentFolderID, segment)
		if err != nil {
			return nil, fmt.Errorf("failed to create folder '%s': %w", segment, err)
		}
		currentFolderID = &folder.ID
	}

	return currentFolderID, nil
}

// Helper functions

// splitDocPath splits a document path into folder path and document name.
// "/chapters/ch1.md" → ("/chapters", "ch1.md")
// "/readme.md" → ("/", "readme.md")
func splitDocPath(path string) (folderPath, docName string) {
	path = strings.TrimPrefix(path, "/")
	lastSlash := strings.LastIndex(path, "/")
	if lastSlash == -1 {
		return "/", path
	}
	return "/" + path[:lastSlash], path[lastSlash+1:]
}

// successResult creates a successful tool result.
func successResult(path, message string) map[string]interface{} {
	return map[string]interface{}{
		"success": true,
		"path":    path,
		"message": message,
	}
}

// errorResult creates an error tool result (returned, not thrown).
// Error codes help the model understand what went wrong and how to recover.
func errorResult(code, message string) map[string]interface{} {
	return map[string]interface{}{
		"success":    false,
		"error_code": code,
		"message":    message,
	}
}
