// Package studio holds the request/response shapes for the one-shot
// generation tasks: generic model invocation, story generation, name
// generation, summaries, code review, and question answering over a
// workspace's documents.
package studio

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Usage reports token consumption for one generation.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// InvokeRequest is the generic model invocation payload. It is also the
// code-completion surface: a prompted completion is a plain invocation.
type InvokeRequest struct {
	Input       string   `json:"input"`
	Model       string   `json:"model,omitempty"`
	System      string   `json:"system,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

func (r InvokeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Input, validation.Required, validation.Length(1, 100000)),
		validation.Field(&r.System, validation.Length(0, 20000)),
	)
}

// InvokeResponse carries the model's text back to the caller.
type InvokeResponse struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// StoryRequest generates a short story from the classic three-field form.
type StoryRequest struct {
	Genre     string `json:"genre"`
	Character string `json:"character"`
	Setting   string `json:"setting"`
	Model     string `json:"model,omitempty"`
}

func (r StoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Genre, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Character, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Setting, validation.Required, validation.Length(1, 500)),
	)
}

type StoryResponse struct {
	Story string `json:"story"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// NamesRequest asks for naming candidates for a product or company.
type NamesRequest struct {
	Keywords string `json:"keywords"`
	Industry string `json:"industry,omitempty"`
	Count    int    `json:"count,omitempty"` // default 5, max 20
	Model    string `json:"model,omitempty"`
}

func (r NamesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Keywords, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.Industry, validation.Length(0, 100)),
		validation.Field(&r.Count, validation.Min(0), validation.Max(20)),
	)
}

// NameCandidate is one schema-validated suggestion from the model.
type NameCandidate struct {
	Name      string `json:"name"`
	Tagline   string `json:"tagline,omitempty"`
	Rationale string `json:"rationale,omitempty"`
}

type NamesResponse struct {
	Candidates []NameCandidate `json:"candidates"`
	Model      string          `json:"model"`
	Usage      Usage           `json:"usage"`
}

// SummaryRequest summarizes raw text (e.g. a transcript) or a library
// document referenced by ID. Exactly one of Text and DocumentID must be set;
// document summaries also need the workspace the document lives in.
type SummaryRequest struct {
	Text        string `json:"text,omitempty"`
	DocumentID  string `json:"document_id,omitempty"`
	WorkspaceID string `json:"workspace_id,omitempty"` // required with document_id
	Style       string `json:"style,omitempty"`        // "bullets", "paragraph", "tldr"
	Model       string `json:"model,omitempty"`
}

func (r SummaryRequest) Validate() error {
	if (r.Text == "") == (r.DocumentID == "") {
		return validation.Errors{
			"text": validation.NewError("validation_exactly_one",
				"exactly one of text and document_id must be provided"),
		}
	}
	if r.DocumentID != "" && r.WorkspaceID == "" {
		return validation.Errors{
			"workspace_id": validation.NewError("validation_required",
				"workspace_id is required with document_id"),
		}
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Length(0, 500000)),
		validation.Field(&r.Style, validation.In("", "bullets", "paragraph", "tldr")),
	)
}

type SummaryResponse struct {
	Summary string `json:"summary"`
	Source  string `json:"source"` // "text" or the document ID
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// ReviewRequest submits a unified diff (or plain code) for review.
type ReviewRequest struct {
	Diff     string `json:"diff"`
	Language string `json:"language,omitempty"`
	Model    string `json:"model,omitempty"`
}

func (r ReviewRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Diff, validation.Required, validation.Length(1, 200000)),
		validation.Field(&r.Language, validation.Length(0, 50)),
	)
}

// ReviewComment is one schema-validated finding.
type ReviewComment struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Severity string `json:"severity"` // "info", "warning", "blocker"
	Comment  string `json:"comment"`
}

type ReviewResponse struct {
	Verdict  string          `json:"verdict"` // "approve", "request_changes", "comment"
	Comments []ReviewComment `json:"comments"`
	Summary  string          `json:"summary"`
	Model    string          `json:"model"`
	Usage    Usage           `json:"usage"`
}

// SearchRequest asks a question against a workspace's documents.
// Retrieval runs over full-text search; the model synthesizes an answer from
// the retrieved passages only.
type SearchRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Question    string `json:"question"`
	TopK        int    `json:"top_k,omitempty"` // default 5, max 10
	Model       string `json:"model,omitempty"`
}

func (r SearchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.WorkspaceID, validation.Required),
		validation.Field(&r.Question, validation.Required, validation.Length(1, 5000)),
		validation.Field(&r.TopK, validation.Min(0), validation.Max(10)),
	)
}

// SourceRef points at a passage the answer drew from.
type SourceRef struct {
	DocumentID string  `json:"document_id"`
	Name       string  `json:"name"`
	Snippet    string  `json:"snippet,omitempty"`
	Score      float64 `json:"score"`
}

type SearchResponse struct {
	Answer  string      `json:"answer"`
	Sources []SourceRef `json:"sources"`
	Model   string      `json:"model"`
	Usage   Usage       `json:"usage"`
}
