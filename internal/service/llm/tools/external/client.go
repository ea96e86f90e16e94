// Package external wraps third-party web search APIs behind a common
// client interface.
package external

import (
	"context"
	"time"
)

// SearchClient is implemented by each search API wrapper.
type SearchClient interface {
	Search(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error)
}

// SearchOptions configures a single search call.
type SearchOptions struct {
	// MaxResults caps the number of results. 0 means provider default.
	MaxResults int

	// Depth selects result quality where the provider supports it
	// ("basic" or "advanced" for Tavily). Empty means basic.
	Depth string

	// Topic is the search category: "general", "news" or "finance".
	Topic string
}

// SearchResponse is the provider-neutral result set.
type SearchResponse struct {
	Results   []SearchResult
	Query     string
	Timestamp time.Time
}

// SearchResult is one hit.
type SearchResult struct {
	Title       string
	URL         string
	Snippet     string
	PublishedAt *time.Time // nil when the provider has no date
	Score       float64    // 0 when the provider has no scoring
}
