package converter

import (
	"context"
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"

	models "atelier/internal/domain/models/library"
	"atelier/internal/service/library/converter/sanitizer"
)

// htmlConverter converts HTML files to markdown in two stages:
//  1. Sanitize the HTML to remove dangerous elements (XSS prevention)
//  2. Convert the sanitized HTML to markdown
type htmlConverter struct {
	sanitizer *sanitizer.HTMLSanitizer
	converter *md.Converter
}

// NewHTMLConverter creates a new HTML to markdown converter. Input is always
// sanitized before conversion.
func NewHTMLConverter() ContentConverter {
	return &htmlConverter{
		sanitizer: sanitizer.NewHTMLSanitizer(),
		converter: md.NewConverter("", true, nil),
	}
}

// Convert sanitizes the HTML, then transforms it to markdown.
func (c *htmlConverter) Convert(ctx context.Context, input []byte) (string, error) {
	sanitized, err := c.sanitizer.Sanitize(string(input))
	if err != nil {
		return "", fmt.Errorf("failed to sanitize HTML: %w", err)
	}

	markdown, err := c.converter.ConvertString(sanitized)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}

	return markdown, nil
}

// SupportedExtensions returns HTML file extensions.
func (c *htmlConverter) SupportedExtensions() []string {
	return []string{".html", ".htm"}
}

// Name returns the source kind for HTML uploads.
func (c *htmlConverter) Name() string {
	return models.SourceHTML
}
