package converter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// ContentConverter converts uploaded file content to markdown. Each
// converter handles one file family and reports a source kind naming the
// original format (one of the document model's source constants).
//
// Implementations must be stateless and thread-safe.
type ContentConverter interface {
	// Convert transforms input content to markdown.
	Convert(ctx context.Context, input []byte) (markdown string, err error)

	// SupportedExtensions returns the file extensions this converter
	// handles, with the leading dot (e.g. [".html", ".htm"]).
	SupportedExtensions() []string

	// Name returns the source kind this converter produces documents from.
	Name() string
}

// ConverterRegistry routes files to converters by extension.
//
// Thread-safe for concurrent access.
type ConverterRegistry struct {
	mu         sync.RWMutex
	converters map[string]ContentConverter // key: file extension (e.g. ".html")
}

// NewConverterRegistry creates a registry with the standard converters
// pre-registered: markdown and text passthrough, sanitized HTML, and PDF
// text extraction.
func NewConverterRegistry() *ConverterRegistry {
	registry := &ConverterRegistry{
		converters: make(map[string]ContentConverter),
	}

	registry.Register(NewMarkdownConverter())
	registry.Register(NewTextConverter())
	registry.Register(NewHTMLConverter())
	registry.Register(NewPDFConverter())

	return registry
}

// Register adds a converter and associates it with its supported extensions.
// Extensions are normalized to lowercase with a leading dot.
func (r *ConverterRegistry) Register(converter ContentConverter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range converter.SupportedExtensions() {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.converters[ext] = converter
	}
}

// GetConverter retrieves a converter for the given file extension.
// Returns nil if no converter is registered for this extension.
// Lookup is case-insensitive.
func (r *ConverterRegistry) GetConverter(fileExt string) ContentConverter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.converters[strings.ToLower(fileExt)]
}

// Convert selects the converter for the filename's extension and performs
// the conversion. The returned source names the original format so callers
// can record it on the stored document.
func (r *ConverterRegistry) Convert(ctx context.Context, filename string, content []byte) (markdown string, source string, err error) {
	ext := filepath.Ext(filename)
	converter := r.GetConverter(ext)

	if converter == nil {
		return "", "", fmt.Errorf("unsupported file type: %s", ext)
	}

	markdown, err = converter.Convert(ctx, content)
	if err != nil {
		return "", "", err
	}

	return markdown, converter.Name(), nil
}

// SupportedExtensions returns all registered file extensions.
func (r *ConverterRegistry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.converters))
	for ext := range r.converters {
		exts = append(exts, ext)
	}
	return exts
}
