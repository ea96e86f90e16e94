package library

import (
	"fmt"
)

// SearchStrategy selects the search algorithm
type SearchStrategy string

const (
	// SearchStrategyFullText uses PostgreSQL full-text search with ts_rank scoring
	SearchStrategyFullText SearchStrategy = "fulltext"

	// SearchStrategyVector is reserved for semantic similarity search.
	// Declared but not implemented; requests for it fail validation.
	SearchStrategyVector SearchStrategy = "vector"
)

// SearchField defines which document fields to search
type SearchField string

const (
	// SearchFieldName searches the document name; name matches are weighted
	// above content matches.
	SearchFieldName SearchField = "name"

	// SearchFieldContent searches the document markdown content
	SearchFieldContent SearchField = "content"
)

// Default search configuration values
const (
	DefaultSearchLimit    = 20
	DefaultSearchOffset   = 0
	DefaultSearchLanguage = "english"
	DefaultSearchStrategy = SearchStrategyFullText
	MaxSearchLimit        = 100
)

// SearchOptions configures a document search.
type SearchOptions struct {
	// Query is the search string (required). websearch syntax is supported:
	// OR, -exclusion, "quoted phrases".
	Query string

	// WorkspaceID scopes the search to one workspace (required).
	WorkspaceID string

	// Fields specifies which document fields to search.
	// Default: [name, content].
	Fields []SearchField

	// Pagination
	Limit  int
	Offset int

	// Language is the Postgres text search configuration used for stemming
	// and stop words. Default "english".
	Language string

	// Strategy selects the algorithm. Only fulltext is implemented.
	Strategy SearchStrategy

	// FolderID optionally restricts results to one folder. nil = all folders.
	FolderID *string
}

// ApplyDefaults fills in default values for unset fields
func (opts *SearchOptions) ApplyDefaults() {
	if len(opts.Fields) == 0 {
		opts.Fields = []SearchField{SearchFieldName, SearchFieldContent}
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultSearchLimit
	}
	if opts.Offset < 0 {
		opts.Offset = DefaultSearchOffset
	}
	if opts.Language == "" {
		opts.Language = DefaultSearchLanguage
	}
	if opts.Strategy == "" {
		opts.Strategy = DefaultSearchStrategy
	}
}

// Validate checks that required fields are set and values are reasonable
func (opts *SearchOptions) Validate() error {
	if opts.Query == "" {
		return fmt.Errorf("search query cannot be empty")
	}
	if opts.WorkspaceID == "" {
		return fmt.Errorf("workspace ID is required")
	}
	if opts.Limit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}
	if opts.Limit > MaxSearchLimit {
		return fmt.Errorf("limit cannot exceed %d (requested: %d)", MaxSearchLimit, opts.Limit)
	}
	if opts.Offset < 0 {
		return fmt.Errorf("offset cannot be negative")
	}

	for _, field := range opts.Fields {
		switch field {
		case SearchFieldName, SearchFieldContent:
		default:
			return fmt.Errorf("invalid search field: %q (supported: name, content)", field)
		}
	}

	switch opts.Strategy {
	case SearchStrategyFullText, "":
	case SearchStrategyVector:
		return fmt.Errorf("search strategy %q is not yet implemented", opts.Strategy)
	default:
		return fmt.Errorf("unknown search strategy: %q", opts.Strategy)
	}

	return nil
}

// SearchResult is one matched document with its relevance score.
type SearchResult struct {
	Document Document

	// Score is the ts_rank relevance (higher = better match).
	Score float64

	// Metadata carries strategy-specific extras, e.g. the highlighted
	// headline snippet under "headline".
	Metadata map[string]interface{}
}

// SearchResults is the full search response with pagination metadata.
type SearchResults struct {
	Results []SearchResult

	// TotalCount is the total number of matches regardless of limit/offset.
	TotalCount int

	// HasMore indicates more results exist beyond this page.
	HasMore bool

	Offset   int
	Limit    int
	Strategy SearchStrategy
}

// NewSearchResults creates a SearchResults with the HasMore flag computed.
func NewSearchResults(results []SearchResult, totalCount int, opts *SearchOptions) *SearchResults {
	hasMore := (opts.Offset + len(results)) < totalCount

	return &SearchResults{
		Results:    results,
		TotalCount: totalCount,
		HasMore:    hasMore,
		Offset:     opts.Offset,
		Limit:      opts.Limit,
		Strategy:   opts.Strategy,
	}
}
