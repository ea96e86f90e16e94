package converter

import (
	"context"

	models "atelier/internal/domain/models/library"
)

// textConverter handles plain text files. Plain text is valid markdown, so
// this is effectively a passthrough.
type textConverter struct{}

// NewTextConverter creates a new text converter.
func NewTextConverter() ContentConverter {
	return &textConverter{}
}

// Convert returns the input as-is since plain text is valid markdown.
func (c *textConverter) Convert(ctx context.Context, input []byte) (string, error) {
	return string(input), nil
}

// SupportedExtensions returns text file extensions.
func (c *textConverter) SupportedExtensions() []string {
	return []string{".txt", ".text"}
}

// Name returns the source kind for plain text uploads.
func (c *textConverter) Name() string {
	return models.SourceText
}
