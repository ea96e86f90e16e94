// Package studio implements the one-shot generation endpoints: generic model
// invocation, story generation, name generation, summaries, code review and
// question answering over a workspace's documents.
//
// All tasks share one generation path (model resolution → prompt assembly →
// completion with retry) and memoize responses in Redis keyed by a hash of the
// normalized request.
package studio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"atelier/internal/cache"
	"atelier/internal/domain"
	"atelier/internal/domain/models/studio"
	domainllm "atelier/internal/domain/services/llm"
	"atelier/internal/service/llm"
)

// ProviderGetter hands out provider instances by name.
type ProviderGetter interface {
	GetProvider(provider string) (domainllm.LLMProvider, error)
	GetProviderWithKey(provider, apiKey string) (domainllm.LLMProvider, error)
}

// ProviderKeySource looks up a user's stored API key for a provider.
// Implementations return "" when the user has no key stored for it.
type ProviderKeySource interface {
	KeyForProvider(ctx context.Context, userID, provider string) (string, error)
}

// Service runs the one-shot studio tasks.
type Service struct {
	providers ProviderGetter
	keySource ProviderKeySource // nil disables user key lookup
	resolver  *llm.ModelResolver
	cache     *cache.ResponseCache // nil disables caching
	docs      DocumentReader       // nil disables document summaries
	search    DocumentSearcher     // nil disables workspace QA
	logger    *slog.Logger
}

// NewService creates a studio service. cache, docs and search may be nil; the
// corresponding features degrade gracefully (no caching, document-based
// endpoints report a configuration error).
func NewService(
	providers ProviderGetter,
	keySource ProviderKeySource,
	resolver *llm.ModelResolver,
	responseCache *cache.ResponseCache,
	docs DocumentReader,
	search DocumentSearcher,
	logger *slog.Logger,
) *Service {
	return &Service{
		providers: providers,
		keySource: keySource,
		resolver:  resolver,
		cache:     responseCache,
		docs:      docs,
		search:    search,
		logger:    logger,
	}
}

// Invoke runs the generic model invocation: the caller's input verbatim, with
// optional system prompt and sampling overrides. This is also the
// code-completion surface.
func (s *Service) Invoke(ctx context.Context, userID string, req *studio.InvokeRequest) (*studio.InvokeResponse, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	resolved, err := s.resolver.Resolve(req.Model, "")
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	keyReq := *req
	keyReq.Model = ""
	key := s.cacheKey("model", resolved, keyReq)
	var cached studio.InvokeResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, true, nil
	}

	gen, err := s.generate(ctx, userID, resolved, &promptSpec{
		System:      req.System,
		User:        req.Input,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, false, err
	}

	resp := &studio.InvokeResponse{
		Text:  gen.Text,
		Model: gen.Model,
		Usage: gen.Usage,
	}
	s.cacheSet(ctx, key, resp)
	return resp, false, nil
}

// GenerateStory produces a short story from the genre/character/setting form.
func (s *Service) GenerateStory(ctx context.Context, userID string, req *studio.StoryRequest) (*studio.StoryResponse, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	resolved, err := s.resolver.Resolve(req.Model, "")
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	keyReq := *req
	keyReq.Model = ""
	key := s.cacheKey("story", resolved, keyReq)
	var cached studio.StoryResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, true, nil
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("Write a short %s story.", req.Genre))
	parts = append(parts, fmt.Sprintf("The main character is: %s.", req.Character))
	parts = append(parts, fmt.Sprintf("The setting is: %s.", req.Setting))
	parts = append(parts, "")
	parts = append(parts, "Aim for 300-500 words. Return only the story, with no preamble or title.")

	gen, err := s.generate(ctx, userID, resolved, &promptSpec{
		System: "You are a creative fiction writer.",
		User:   strings.Join(parts, "\n"),
	})
	if err != nil {
		return nil, false, err
	}

	resp := &studio.StoryResponse{
		Story: gen.Text,
		Model: gen.Model,
		Usage: gen.Usage,
	}
	s.cacheSet(ctx, key, resp)
	return resp, false, nil
}

// Summarize condenses raw text or a library document. Document summaries pull
// the stored markdown (already converted from PDF/HTML on import), so a PDF
// summary is a document summary.
func (s *Service) Summarize(ctx context.Context, userID string, req *studio.SummaryRequest) (*studio.SummaryResponse, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	resolved, err := s.resolver.Resolve(req.Model, "")
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	text := req.Text
	source := "text"
	var key string

	if req.DocumentID != "" {
		if s.docs == nil {
			return nil, false, fmt.Errorf("document summaries are not configured")
		}
		doc, err := s.docs.GetDocument(ctx, req.DocumentID, req.WorkspaceID, userID)
		if err != nil {
			return nil, false, err
		}
		text = doc.Content
		source = doc.ID

		// Key on the document's update time, not its content: an edited
		// document must not serve the previous summary from cache.
		key = s.cacheKey("summaries", resolved, map[string]any{
			"document_id": doc.ID,
			"updated_at":  doc.UpdatedAt,
			"style":       req.Style,
		})
	} else {
		keyReq := *req
		keyReq.Model = ""
		key = s.cacheKey("summaries", resolved, keyReq)
	}

	var cached studio.SummaryResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, true, nil
	}

	if strings.TrimSpace(text) == "" {
		return nil, false, fmt.Errorf("%w: nothing to summarize", domain.ErrValidation)
	}

	var parts []string
	parts = append(parts, "Summarize the following text.")
	switch req.Style {
	case "bullets":
		parts = append(parts, "Format the summary as concise bullet points.")
	case "tldr":
		parts = append(parts, "Write a one-paragraph TL;DR of at most three sentences.")
	default:
		parts = append(parts, "Write a clear summary in one or two paragraphs.")
	}
	parts = append(parts, "Return only the summary.")
	parts = append(parts, "")
	parts = append(parts, "Text:")
	parts = append(parts, text)

	gen, err := s.generate(ctx, userID, resolved, &promptSpec{
		User: strings.Join(parts, "\n"),
	})
	if err != nil {
		return nil, false, err
	}

	resp := &studio.SummaryResponse{
		Summary: gen.Text,
		Source:  source,
		Model:   gen.Model,
		Usage:   gen.Usage,
	}
	s.cacheSet(ctx, key, resp)
	return resp, false, nil
}

// cacheKey builds the Redis key for one operation. The resolved
// provider/model pair goes into the key instead of the request's raw model
// string, so "claude-sonnet-4-5" and "anthropic/claude-sonnet-4-5" share an
// entry.
func (s *Service) cacheKey(operation string, resolved *llm.ResolvedModel, payload any) string {
	return cache.Key(operation, resolved.Provider+"/"+resolved.Model, payload)
}

func (s *Service) cacheGet(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	return s.cache.Get(ctx, key, dest)
}

func (s *Service) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	s.cache.Set(ctx, key, value)
}
