package tools

import (
	libraryRepo "atelier/internal/domain/repositories/library"
	"atelier/internal/service/llm/tools/external"
)

// ToolRegistryBuilder assembles a per-request tool registry. Read-only
// library tools, the edit tool, and web search are added separately so
// callers can gate write access and external API spend independently.
type ToolRegistryBuilder struct {
	registry *ToolRegistry
	config   *ToolConfig
}

// NewToolRegistryBuilder creates a builder with a fresh registry.
func NewToolRegistryBuilder() *ToolRegistryBuilder {
	return &ToolRegistryBuilder{
		registry: NewToolRegistry(),
		config:   DefaultToolConfig(),
	}
}

// WithConfig overrides the default tool configuration.
func (b *ToolRegistryBuilder) WithConfig(config *ToolConfig) *ToolRegistryBuilder {
	if config != nil {
		b.config = config
	}
	return b
}

// WithLibraryTools registers the read-only library tools: view_document,
// view_tree and search_documents, scoped to one workspace.
func (b *ToolRegistryBuilder) WithLibraryTools(
	workspaceID string,
	documentRepo libraryRepo.DocumentRepository,
	folderRepo libraryRepo.FolderRepository,
) *ToolRegistryBuilder {
	b.registry.Register("view_document", NewViewTool(workspaceID, documentRepo, folderRepo, b.config))
	b.registry.Register("view_tree", NewTreeTool(workspaceID, documentRepo, folderRepo, b.config))
	b.registry.Register("search_documents", NewSearchTool(workspaceID, documentRepo, folderRepo, b.config))
	return b
}

// WithEditTool registers edit_document. Kept separate from the read-only
// tools because it writes user data.
func (b *ToolRegistryBuilder) WithEditTool(
	workspaceID string,
	documentRepo libraryRepo.DocumentRepository,
	folderRepo libraryRepo.FolderRepository,
) *ToolRegistryBuilder {
	b.registry.Register("edit_document", NewEditTool(workspaceID, documentRepo, folderRepo, b.config))
	return b
}

// WithWebSearch registers web_search when a client is configured.
func (b *ToolRegistryBuilder) WithWebSearch(client external.SearchClient) *ToolRegistryBuilder {
	if client != nil {
		b.registry.Register("web_search", NewWebSearchTool(client, b.config))
	}
	return b
}

// Build returns the constructed registry.
func (b *ToolRegistryBuilder) Build() *ToolRegistry {
	return b.registry
}
