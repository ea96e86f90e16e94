package library

import (
	"time"
)

// Source kinds record which converter produced the stored markdown.
const (
	SourceMarkdown = "markdown"
	SourceText     = "text"
	SourceHTML     = "html"
	SourcePDF      = "pdf"
)

// Document is a unit of library content. Content is always markdown text;
// binary uploads (PDF, HTML) are converted on import and only the converted
// text is stored.
type Document struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	FolderID    *string   `json:"folder_id" db:"folder_id"` // NULL = root level
	Name        string    `json:"name" db:"name"`           // Just "Aria", not "Characters/Aria"
	Path        string    `json:"path,omitempty"`           // Computed display path, not stored in DB
	Content     string    `json:"content" db:"content"`     // Markdown content
	Source      string    `json:"source" db:"source"`       // markdown, text, html, pdf
	WordCount   int       `json:"word_count" db:"word_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
