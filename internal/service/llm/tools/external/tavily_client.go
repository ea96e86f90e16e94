package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTavilyBaseURL is the Tavily search endpoint.
	DefaultTavilyBaseURL = "https://api.tavily.com/search"

	// DefaultTavilyTimeout bounds a single search request.
	DefaultTavilyTimeout = 30 * time.Second

	// tavilyMaxResults is the hard cap Tavily accepts per request.
	tavilyMaxResults = 20
)

// TavilyClient implements SearchClient against the Tavily API.
type TavilyClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewTavilyClient creates a Tavily search client with default settings.
func NewTavilyClient(apiKey string) *TavilyClient {
	return NewTavilyClientWithConfig(apiKey, DefaultTavilyBaseURL, DefaultTavilyTimeout)
}

// NewTavilyClientWithConfig creates a Tavily client with a custom endpoint
// and timeout. Tests point baseURL at a local server.
func NewTavilyClientWithConfig(apiKey, baseURL string, timeout time.Duration) *TavilyClient {
	return &TavilyClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Search implements SearchClient.
func (c *TavilyClient) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}
	if opts.MaxResults > tavilyMaxResults {
		opts.MaxResults = tavilyMaxResults
	}

	// Tavily authenticates via the request body, not a header.
	payload := map[string]interface{}{
		"api_key":     c.apiKey,
		"query":       query,
		"max_results": opts.MaxResults,
	}
	if opts.Depth != "" {
		payload["search_depth"] = opts.Depth
	}
	if opts.Topic != "" {
		payload["topic"] = opts.Topic
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily API error (status %d): %s", resp.StatusCode, string(body))
	}

	var tavilyResp tavilyResponse
	if err := json.Unmarshal(body, &tavilyResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]SearchResult, len(tavilyResp.Results))
	for i, r := range tavilyResp.Results {
		results[i] = SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Score:   r.Score,
		}
		if r.PublishedDate != "" {
			if t, err := time.Parse(time.RFC3339, r.PublishedDate); err == nil {
				results[i].PublishedAt = &t
			}
		}
	}

	return &SearchResponse{
		Results:   results,
		Query:     query,
		Timestamp: time.Now(),
	}, nil
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
	Query   string         `json:"query"`
}

type tavilyResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date,omitempty"`
}
