package converter

import (
	"context"
	"slices"
	"strings"
	"testing"

	models "atelier/internal/domain/models/library"
)

func TestConvertRoutesByExtension(t *testing.T) {
	ctx := context.Background()
	registry := NewConverterRegistry()

	tests := []struct {
		name       string
		filename   string
		content    string
		wantText   string
		wantSource string
	}{
		{
			name:       "markdown passthrough",
			filename:   "notes.md",
			content:    "# Heading\n\nBody text",
			wantText:   "# Heading\n\nBody text",
			wantSource: models.SourceMarkdown,
		},
		{
			name:       "markdown long extension",
			filename:   "notes.markdown",
			content:    "plain",
			wantText:   "plain",
			wantSource: models.SourceMarkdown,
		},
		{
			name:       "text passthrough",
			filename:   "notes.txt",
			content:    "just words",
			wantText:   "just words",
			wantSource: models.SourceText,
		},
		{
			name:       "uppercase extension",
			filename:   "NOTES.MD",
			content:    "shouting",
			wantText:   "shouting",
			wantSource: models.SourceMarkdown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markdown, source, err := registry.Convert(ctx, tt.filename, []byte(tt.content))
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if markdown != tt.wantText {
				t.Errorf("markdown = %q, want %q", markdown, tt.wantText)
			}
			if source != tt.wantSource {
				t.Errorf("source = %q, want %q", source, tt.wantSource)
			}
		})
	}
}

func TestConvertHTML(t *testing.T) {
	ctx := context.Background()
	registry := NewConverterRegistry()

	input := `<h1>Title</h1><script>alert("xss")</script><p>A <strong>bold</strong> move</p>`
	markdown, source, err := registry.Convert(ctx, "page.html", []byte(input))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if source != models.SourceHTML {
		t.Errorf("source = %q, want %q", source, models.SourceHTML)
	}
	if !strings.Contains(markdown, "# Title") {
		t.Errorf("markdown = %q, want heading converted to # Title", markdown)
	}
	if !strings.Contains(markdown, "**bold**") {
		t.Errorf("markdown = %q, want strong converted to **bold**", markdown)
	}
	if strings.Contains(markdown, "alert") {
		t.Errorf("markdown = %q, script content must be stripped", markdown)
	}
}

func TestConvertUnsupportedExtension(t *testing.T) {
	ctx := context.Background()
	registry := NewConverterRegistry()

	_, _, err := registry.Convert(ctx, "image.png", []byte{0x89, 0x50})
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	if !strings.Contains(err.Error(), "unsupported file type") {
		t.Errorf("error = %q, want unsupported file type", err.Error())
	}
}

func TestSupportedExtensions(t *testing.T) {
	registry := NewConverterRegistry()
	exts := registry.SupportedExtensions()

	for _, want := range []string{".md", ".markdown", ".txt", ".html", ".htm", ".pdf"} {
		if !slices.Contains(exts, want) {
			t.Errorf("SupportedExtensions() missing %s (got %v)", want, exts)
		}
	}
}

func TestGetConverterCaseInsensitive(t *testing.T) {
	registry := NewConverterRegistry()

	if registry.GetConverter(".HTML") == nil {
		t.Error("GetConverter(.HTML) = nil, want the html converter")
	}
	if registry.GetConverter(".docx") != nil {
		t.Error("GetConverter(.docx) should be nil")
	}
}

func TestPDFConverterRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	converter := NewPDFConverter()

	if _, err := converter.Convert(ctx, []byte("not a pdf at all")); err == nil {
		t.Error("expected error for non-PDF input")
	}
}
