package sanitizer

import (
	"github.com/microcosm-cc/bluemonday"
)

// HTMLSanitizer strips dangerous HTML elements and attributes before
// imported HTML is converted to markdown.
//
// Thread-safe for concurrent use.
type HTMLSanitizer struct {
	policy *bluemonday.Policy
}

// NewHTMLSanitizer creates a sanitizer based on bluemonday's UGC policy:
// common formatting (headings, lists, links, tables, code blocks) survives,
// while scripts, event handlers, and javascript: URLs are removed.
func NewHTMLSanitizer() *HTMLSanitizer {
	policy := bluemonday.UGCPolicy()

	// Inline images are common in exported HTML; data URIs are allowed for
	// img tags only.
	policy.AllowDataURIImages()

	return &HTMLSanitizer{policy: policy}
}

// Sanitize removes dangerous HTML while preserving safe formatting.
func (s *HTMLSanitizer) Sanitize(html string) (string, error) {
	return s.policy.Sanitize(html), nil
}
