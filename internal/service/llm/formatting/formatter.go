// Package formatting shapes raw tool results into what the model actually
// sees. Full results stay in the database; formatters filter and render them
// at message build time.
package formatting

import (
	"encoding/json"
	"sync"
)

// ToolResultFormatter transforms one tool's raw result before it is sent to
// the model, typically by dropping fields that cost tokens without adding
// signal.
type ToolResultFormatter interface {
	Format(result interface{}) interface{}
}

// FormatterRegistry maps tool names to result formatters.
type FormatterRegistry struct {
	mu         sync.RWMutex
	formatters map[string]ToolResultFormatter
}

// NewFormatterRegistry creates an empty formatter registry.
func NewFormatterRegistry() *FormatterRegistry {
	return &FormatterRegistry{
		formatters: make(map[string]ToolResultFormatter),
	}
}

// NewDefaultRegistry creates a registry with the library tool formatters
// registered. Tools without a formatter pass through unchanged.
func NewDefaultRegistry() *FormatterRegistry {
	r := NewFormatterRegistry()
	r.Register("search_documents", &SearchResultsFormatter{})
	r.Register("view_document", &DocumentViewFormatter{})
	r.Register("view_tree", NewTreeFormatter())
	return r
}

// Register adds a formatter for a tool, replacing any existing one.
func (r *FormatterRegistry) Register(toolName string, formatter ToolResultFormatter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[toolName] = formatter
}

// GetFormatter retrieves a formatter by tool name, or nil.
func (r *FormatterRegistry) GetFormatter(toolName string) ToolResultFormatter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.formatters[toolName]
}

// Format normalizes a result and applies the tool's formatter. Results reach
// this point either as live Go values from an executor or as generic maps
// decoded from JSONB, so everything is round-tripped through JSON first and
// formatters only ever see canonical JSON types.
func (r *FormatterRegistry) Format(toolName string, result interface{}) interface{} {
	normalized := normalizeResult(result)

	formatter := r.GetFormatter(toolName)
	if formatter == nil {
		return normalized
	}
	return formatter.Format(normalized)
}

// RenderText converts a (formatted) tool result into the text a provider
// receives as tool output. Strings pass through; everything else is JSON.
func RenderText(result interface{}) string {
	if result == nil {
		return ""
	}
	if s, ok := result.(string); ok {
		return s
	}
	data, err := json.Marshal(result)
	if err != nil {
		return ""
	}
	return string(data)
}

// normalizeResult converts any value into canonical JSON types
// (map[string]interface{}, []interface{}, float64, string, bool, nil).
func normalizeResult(result interface{}) interface{} {
	if result == nil {
		return nil
	}
	switch result.(type) {
	case string, bool, float64:
		return result
	}

	data, err := json.Marshal(result)
	if err != nil {
		return result
	}
	var normalized interface{}
	if err := json.Unmarshal(data, &normalized); err != nil {
		return result
	}
	return normalized
}
