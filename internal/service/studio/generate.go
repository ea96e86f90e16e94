package studio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"atelier/internal/domain"
	chatModels "atelier/internal/domain/models/chat"
	libModels "atelier/internal/domain/models/library"
	"atelier/internal/domain/models/studio"
	domainllm "atelier/internal/domain/services/llm"
	"atelier/internal/metrics"
	"atelier/internal/service/library"
	"atelier/internal/service/llm"
)

// DocumentReader loads one document with its converted markdown content.
type DocumentReader interface {
	GetDocument(ctx context.Context, documentID, workspaceID, userID string) (*libModels.Document, error)
}

// DocumentSearcher runs full-text retrieval over a workspace's documents.
type DocumentSearcher interface {
	SearchDocuments(ctx context.Context, req *library.SearchDocumentsRequest) (*libModels.SearchResults, error)
}

const (
	// maxGenerateAttempts bounds the transient-failure retry loop.
	maxGenerateAttempts = 3

	// defaultMaxTokens applies when the request carries no explicit budget.
	defaultMaxTokens = 2048
)

// promptSpec is one assembled completion request before provider dispatch.
type promptSpec struct {
	System      string
	User        string
	MaxTokens   *int
	Temperature *float64
}

// generation is the provider response reduced to what studio tasks consume.
type generation struct {
	Text  string
	Model string
	Usage studio.Usage
}

// generate resolves the provider, dispatches the completion and retries
// transient failures with exponential backoff (100ms · 2^attempt). Context
// cancellation aborts immediately and is never retried.
func (s *Service) generate(ctx context.Context, userID string, resolved *llm.ResolvedModel, spec *promptSpec) (*generation, error) {
	provider, err := s.providerForUser(ctx, userID, resolved.Provider)
	if err != nil {
		return nil, err
	}

	req := s.buildRequest(resolved, spec)

	var resp *domainllm.GenerateResponse
	var lastErr error

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, lastErr = provider.GenerateResponse(ctx, req)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		s.logger.Warn("studio generation attempt failed",
			"provider", resolved.Provider,
			"model", resolved.Model,
			"attempt", attempt+1,
			"error", lastErr,
		)
	}

	if lastErr != nil {
		metrics.LLMRequestsTotal.WithLabelValues(provider.Name(), resolved.Model, "error").Inc()
		return nil, &domain.UpstreamError{
			Provider: provider.Name(),
			Message:  fmt.Sprintf("generation failed after %d attempts: %v", maxGenerateAttempts, lastErr),
		}
	}

	metrics.LLMRequestsTotal.WithLabelValues(provider.Name(), resp.Model, "success").Inc()
	metrics.LLMTokensTotal.WithLabelValues(provider.Name(), resp.Model, "input").Add(float64(resp.InputTokens))
	metrics.LLMTokensTotal.WithLabelValues(provider.Name(), resp.Model, "output").Add(float64(resp.OutputTokens))

	return &generation{
		Text:  extractText(resp),
		Model: resolved.Provider + "/" + resp.Model,
		Usage: studio.Usage{
			InputTokens:  resp.InputTokens,
			OutputTokens: resp.OutputTokens,
		},
	}, nil
}

// buildRequest turns a promptSpec into the provider-neutral request shape.
func (s *Service) buildRequest(resolved *llm.ResolvedModel, spec *promptSpec) *domainllm.GenerateRequest {
	params := &chatModels.RequestParams{
		Temperature: spec.Temperature,
	}

	maxTokens := defaultMaxTokens
	if spec.MaxTokens != nil && *spec.MaxTokens > 0 {
		maxTokens = *spec.MaxTokens
	}
	params.MaxTokens = &maxTokens

	if spec.System != "" {
		system := spec.System
		params.System = &system
	}

	userText := spec.User
	return &domainllm.GenerateRequest{
		Model: resolved.Model,
		Messages: []domainllm.Message{
			{
				Role: chatModels.RoleUser,
				Content: []*chatModels.TurnBlock{
					{
						BlockType:   chatModels.BlockTypeText,
						TextContent: &userText,
					},
				},
			},
		},
		Params: params,
	}
}

// providerForUser returns the provider instance for a request. A key the user
// stored for the provider takes precedence over the service key.
func (s *Service) providerForUser(ctx context.Context, userID, provider string) (domainllm.LLMProvider, error) {
	if s.keySource != nil && userID != "" {
		key, err := s.keySource.KeyForProvider(ctx, userID, provider)
		if err != nil {
			return nil, fmt.Errorf("failed to load provider key: %w", err)
		}
		if key != "" {
			return s.providers.GetProviderWithKey(provider, key)
		}
	}
	return s.providers.GetProvider(provider)
}

// extractText concatenates the text blocks of a response, skipping thinking
// and tool blocks.
func extractText(resp *domainllm.GenerateResponse) string {
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.BlockType != chatModels.BlockTypeText || block.TextContent == nil {
			continue
		}
		sb.WriteString(*block.TextContent)
	}
	return strings.TrimSpace(sb.String())
}
