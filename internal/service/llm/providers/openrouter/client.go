package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"atelier/internal/domain/models/chat"
	domainllm "atelier/internal/domain/services/llm"
)

const (
	// DefaultBaseURL is the OpenRouter Chat Completions endpoint
	DefaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	// DefaultTimeout bounds non-streaming requests. Streaming requests rely
	// on context cancellation instead; a client timeout would kill long
	// generations mid-stream.
	DefaultTimeout = 120 * time.Second
)

// Provider implements the LLMProvider interface for OpenRouter's
// OpenAI-compatible Chat Completions API. Model IDs pass through verbatim
// ("openai/gpt-4o", "moonshotai/kimi-k2-thinking", ...).
type Provider struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client // bounded, for non-streaming calls
	streamClient *http.Client // unbounded, for SSE
}

// NewProvider creates a new OpenRouter provider with the given API key.
func NewProvider(apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}

	return &Provider{
		apiKey:       apiKey,
		baseURL:      DefaultBaseURL,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		streamClient: &http.Client{},
	}, nil
}

// NewProviderWithBaseURL creates a provider pointed at a custom endpoint.
// Used by tests against a local fake.
func NewProviderWithBaseURL(apiKey, baseURL string) (*Provider, error) {
	p, err := NewProvider(apiKey)
	if err != nil {
		return nil, err
	}
	p.baseURL = baseURL
	return p, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "openrouter"
}

// SupportsModel returns true for any non-empty model. OpenRouter is the
// catch-all route; it serves whatever vendor-prefixed ID it is given.
func (p *Provider) SupportsModel(model string) bool {
	return model != ""
}

// buildRequest maps a domain request onto the Chat Completions wire format.
func buildRequest(req *domainllm.GenerateRequest, stream bool) (*chatCompletionRequest, error) {
	params := req.Params
	if params == nil {
		params = &chat.RequestParams{}
	}

	messages, err := convertToChatMessages(req.Messages, params.System)
	if err != nil {
		return nil, err
	}

	out := &chatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   params.GetMaxTokens(4096),
		Temperature: params.Temperature,
		TopP:        params.TopP,
		TopK:        params.TopK,
		Stop:        params.Stop,
	}

	if stream {
		out.Stream = true
		out.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	if len(params.Tools) > 0 {
		tools, err := convertTools(params.Tools)
		if err != nil {
			return nil, err
		}
		out.Tools = tools
	}

	if params.ThinkingEnabled != nil && *params.ThinkingEnabled {
		out.Reasoning = &reasoningSpec{MaxTokens: params.GetThinkingBudgetTokens()}
	}

	return out, nil
}

// newHTTPRequest serializes the payload and sets the standard headers.
func (p *Provider) newHTTPRequest(ctx context.Context, payload *chatCompletionRequest) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("X-Title", "Atelier")

	return req, nil
}

// GenerateResponse generates a complete (non-streaming) response.
func (p *Provider) GenerateResponse(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model cannot be empty")
	}

	payload, err := buildRequest(req, false)
	if err != nil {
		return nil, err
	}

	httpReq, err := p.newHTTPRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openrouter request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter API error (status %d): %s", resp.StatusCode, truncateBody(body))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return convertFromChatCompletion(&completion, req.Model)
}

// truncateBody keeps upstream error bodies log-sized.
func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
