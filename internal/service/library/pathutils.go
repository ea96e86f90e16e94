package library

import (
	"fmt"
	"strings"
)

// Shared path construction helpers for the import processors. Both the zip
// and individual-file processors must build paths and lookup keys the same
// way or dedup against existing documents breaks.

// BuildFullPath constructs a display path from folder path and document name.
// Returns just docName if folderPath is empty (root-level document).
//
// Examples:
//   - BuildFullPath("chapters", "intro") → "chapters/intro"
//   - BuildFullPath("", "readme") → "readme"
func BuildFullPath(folderPath, docName string) string {
	if folderPath == "" {
		return docName
	}
	return folderPath + "/" + docName
}

// BuildLookupKey creates a unique key for document deduplication during import.
//
// The key format is "path|name". The same name can exist in different
// folders, so the path must be part of the key; the pipe separator is safe
// because document names cannot contain pipes.
func BuildLookupKey(path, name string) string {
	return fmt.Sprintf("%s|%s", path, name)
}

// SanitizeDocName removes or replaces invalid characters from document names
// derived from uploaded filenames. Slashes become hyphens so imported names
// never read as path notation.
func SanitizeDocName(name string) string {
	return strings.ReplaceAll(name, "/", "-")
}
