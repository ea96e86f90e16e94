package converter

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	models "atelier/internal/domain/models/library"
)

// pdfConverter extracts plain text from PDF files, page by page. Layout is
// not preserved; the result is the text content joined with blank lines
// between pages.
type pdfConverter struct{}

// NewPDFConverter creates a new PDF text extractor.
func NewPDFConverter() ContentConverter {
	return &pdfConverter{}
}

// Convert extracts text from every page of the PDF. Pages that fail text
// extraction are skipped; the conversion fails only when the file is not a
// readable PDF or yields no text at all.
func (c *pdfConverter) Convert(ctx context.Context, input []byte) (result string, err error) {
	// The pdf package panics on some malformed files; surface that as a
	// conversion error instead of taking down the import.
	defer func() {
		if r := recover(); r != nil {
			result = ""
			err = fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(input), int64(len(input)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var pages []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		text = strings.TrimSpace(text)
		if text != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		return "", fmt.Errorf("no extractable text in PDF")
	}

	return strings.Join(pages, "\n\n"), nil
}

// SupportedExtensions returns PDF file extensions.
func (c *pdfConverter) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Name returns the source kind for PDF uploads.
func (c *pdfConverter) Name() string {
	return models.SourcePDF
}
