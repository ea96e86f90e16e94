package formatting

import (
	"fmt"
	"strings"
)

// MetadataRenderer renders one piece of metadata for a tree entry.
type MetadataRenderer interface {
	Render(item map[string]interface{}) string
}

// WordCountRenderer renders document word counts like "(277 words)".
type WordCountRenderer struct{}

// Render returns the formatted word count, or "" when absent or zero.
// Counts arrive as float64 after JSON normalization.
func (r *WordCountRenderer) Render(item map[string]interface{}) string {
	wc, ok := item["word_count"].(float64)
	if !ok {
		return ""
	}

	count := int(wc)
	if count == 0 {
		return ""
	}
	return fmt.Sprintf("(%d words)", count)
}

// CombineMetadata applies each renderer and joins the non-empty results
// with spaces.
func CombineMetadata(renderers []MetadataRenderer, item map[string]interface{}) string {
	var parts []string
	for _, renderer := range renderers {
		if result := renderer.Render(item); result != "" {
			parts = append(parts, result)
		}
	}
	return strings.Join(parts, " ")
}
