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

// SearchTool implements search_documents: full-text search across the
// workspace library.
type SearchTool struct {
	workspaceID  string
	documentRepo libraryRepo.DocumentRepository
	pathResolver *PathResolver
	config       *ToolConfig
}

// NewSearchTool creates a new SearchTool instance.
func NewSearchTool(
	workspaceID string,
	documentRepo libraryRepo.DocumentRepository,
	folderRepo libraryRepo.FolderRepository,
	config *ToolConfig,
) *SearchTool {
	if config == nil {
		config = DefaultToolConfig()
	}
	return &SearchTool{
		workspaceID:  workspaceID,
		documentRepo: documentRepo,
		pathResolver: NewPathResolver(workspaceID, folderRepo),
		config:       config,
	}
}

// Execute implements ToolExecutor.
// Input parameters:
//   - query (string, required): search terms, websearch syntax
//   - folder (string, optional): limit search to this folder path
//   - limit (number, optional): max results, clamped to the configured cap
//   - offset (number, optional): pagination offset
//
// Returns {results: [...], count, has_more, limit, offset}. Each result
// carries a preview snippet with matched terms wrapped in <b> tags.
func (t *SearchTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	query, ok := input["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, errors.New("missing required parameter: query (string)")
	}
	query = strings.TrimSpace(query)

	var folderID *string
	if folderPathVal, exists := input["folder"]; exists {
		if folderPath, ok := folderPathVal.(string); ok && folderPath != "" {
			resolvedID, _, err := t.pathResolver.ResolveFolderPath(ctx, folderPath)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return errorResult("NOT_FOUND", fmt.Sprintf("Folder not found: %s", folderPath)), nil
				}
				return nil, fmt.Errorf("failed to resolve folder path: %w", err)
			}
			folderID = resolvedID
		}
	}

	limit := t.config.SearchDefaultLimit
	if limitVal, exists := input["limit"]; exists {
		if limitFloat, ok := limitVal.(float64); ok {
			limit = int(limitFloat)
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > t.config.SearchMaxLimit {
		limit = t.config.SearchMaxLimit
	}

	offset := 0
	if offsetVal, exists := input["offset"]; exists {
		if offsetFloat, ok := offsetVal.(float64); ok && offsetFloat > 0 {
			offset = int(offsetFloat)
		}
	}

	searchOpts := &library.SearchOptions{
		Query:       query,
		WorkspaceID: t.workspaceID,
		Limit:       limit,
		Offset:      offset,
		FolderID:    folderID,
	}
	searchOpts.ApplyDefaults()
	if err := searchOpts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search options: %w", err)
	}

	results, err := t.documentRepo.SearchDocuments(ctx, searchOpts)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	// The repository returns a headline snippet in place of the full
	// content, so the preview is ready-made.
	resultList := make([]map[string]interface{}, len(results.Results))
	for i, result := range results.Results {
		path, err := t.documentRepo.GetPath(ctx, &result.Document)
		if err != nil {
			path = "/" + result.Document.Name
		}

		resultList[i] = map[string]interface{}{
			"id":         result.Document.ID,
			"name":       result.Document.Name,
			"path":       path,
			"score":      result.Score,
			"word_count": result.Document.WordCount,
			"updated_at": result.Document.UpdatedAt,
			"preview":    result.Document.Content,
		}
	}

	return map[string]interface{}{
		"results":  resultList,
		"count":    results.TotalCount,
		"has_more": results.HasMore,
		"limit":    results.Limit,
		"offset":   results.Offset,
	}, nil
}
