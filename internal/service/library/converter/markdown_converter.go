package converter

import (
	"context"

	models "atelier/internal/domain/models/library"
)

// markdownConverter is a passthrough converter for markdown files.
// Markdown is the native storage format, so no conversion is needed.
type markdownConverter struct{}

// NewMarkdownConverter creates a new markdown passthrough converter.
func NewMarkdownConverter() ContentConverter {
	return &markdownConverter{}
}

// Convert returns the input unchanged (passthrough).
func (c *markdownConverter) Convert(ctx context.Context, input []byte) (string, error) {
	return string(input), nil
}

// SupportedExtensions returns markdown file extensions.
func (c *markdownConverter) SupportedExtensions() []string {
	return []string{".md", ".markdown"}
}

// Name returns the source kind for markdown uploads.
func (c *markdownConverter) Name() string {
	return models.SourceMarkdown
}
