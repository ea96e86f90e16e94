package chat

// FunctionDetails is the function half of an OpenAI-format tool definition
type FunctionDetails struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolDefinition describes a tool the assistant may call. Definitions use the
// OpenAI function format because every wired provider understands it (natively
// or via trivial mapping).
//
// Two shapes are accepted from requests:
//
//	{"name": "web_search"}                          minimal, resolved by name
//	{"type": "function", "function": {...}}          full custom definition
type ToolDefinition struct {
	Type     string           `json:"type,omitempty"`
	Name     string           `json:"name,omitempty"`
	Function *FunctionDetails `json:"function,omitempty"`
}

// ToolName returns the effective tool name regardless of shape.
func (td *ToolDefinition) ToolName() string {
	if td.Function != nil {
		return td.Function.Name
	}
	return td.Name
}

// ReadOnlyToolDefinitions returns the document tools that cannot modify the
// library: view, tree and search.
func ReadOnlyToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		viewDocumentDefinition(),
		viewTreeDefinition(),
		searchDocumentsDefinition(),
	}
}

// AllToolDefinitions returns every available tool definition. Write access
// (edit_document) and web search are gated separately because they change
// user data and spend external API quota respectively.
func AllToolDefinitions(includeEdit, includeWebSearch bool) []ToolDefinition {
	tools := ReadOnlyToolDefinitions()
	if includeEdit {
		tools = append(tools, editDocumentDefinition())
	}
	if includeWebSearch {
		tools = append(tools, webSearchDefinition())
	}
	return tools
}

// ToolDefinitionByName resolves a minimal {"name": ...} reference to a full
// schema. Returns nil for unknown names.
func ToolDefinitionByName(name string) *ToolDefinition {
	var def ToolDefinition
	switch name {
	case "view_document":
		def = viewDocumentDefinition()
	case "view_tree":
		def = viewTreeDefinition()
	case "search_documents":
		def = searchDocumentsDefinition()
	case "edit_document":
		def = editDocumentDefinition()
	case "web_search":
		def = webSearchDefinition()
	default:
		return nil
	}
	return &def
}

func viewDocumentDefinition() ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: &FunctionDetails{
			Name:        "view_document",
			Description: "Read the contents of a document or list the contents of a folder in the user's workspace library. Use '/' for the root folder.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Unix-style path to the document or folder (e.g. '/notes.md', '/drafts/outline.md', '/drafts').",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

func viewTreeDefinition() ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: &FunctionDetails{
			Name:        "view_tree",
			Description: "Show the folder and document hierarchy starting from a folder. Returns metadata only, no content.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"folder": map[string]interface{}{
						"type":        "string",
						"description": "Unix-style path to the folder. Defaults to '/' (root).",
					},
					"depth": map[string]interface{}{
						"type":        "integer",
						"description": "Levels to traverse (default 2, max 5).",
						"minimum":     1,
						"maximum":     5,
					},
				},
				"required": []string{},
			},
		},
	}
}

func searchDocumentsDefinition() ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: &FunctionDetails{
			Name:        "search_documents",
			Description: "Full-text search across the workspace's documents by content or name. Returns ranked snippets. Supports 'word1 OR word2', '-excluded' and '\"exact phrase\"' syntax; check 'has_more' for pagination.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Search query. Google-like syntax: OR for alternatives, minus to exclude, double quotes for phrases.",
					},
					"folder": map[string]interface{}{
						"type":        "string",
						"description": "Optional: limit search to this folder path (e.g. '/drafts').",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Optional: maximum results (default 5, max 20).",
						"minimum":     1,
						"maximum":     20,
					},
					"offset": map[string]interface{}{
						"type":        "integer",
						"description": "Optional: results to skip for pagination (default 0).",
						"minimum":     0,
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

func editDocumentDefinition() ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: &FunctionDetails{
			Name:        "edit_document",
			Description: "Replace an exact text fragment inside a document, or create a new document. The old_text must match exactly once; pass empty old_text with a path that does not exist yet to create.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Unix-style path to the document (e.g. '/drafts/outline.md').",
					},
					"old_text": map[string]interface{}{
						"type":        "string",
						"description": "Exact fragment to replace. Empty string creates the document with new_text as content.",
					},
					"new_text": map[string]interface{}{
						"type":        "string",
						"description": "Replacement text.",
					},
				},
				"required": []string{"path", "old_text", "new_text"},
			},
		},
	}
}

func webSearchDefinition() ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: &FunctionDetails{
			Name:        "web_search",
			Description: "Search the web for current information. Returns titles, URLs and content snippets. Use for facts or news not in the user's documents.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The search query. Be specific.",
					},
					"max_results": map[string]interface{}{
						"type":        "integer",
						"description": "Optional: maximum results (default 5, max 10).",
						"minimum":     1,
						"maximum":     10,
					},
					"topic": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"general", "news", "finance"},
						"description": "Optional: search category. Default general.",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}
