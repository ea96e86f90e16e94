package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"atelier/internal/capabilities"
	"atelier/internal/domain"
	chatModels "atelier/internal/domain/models/chat"
	libModels "atelier/internal/domain/models/library"
	"atelier/internal/domain/models/studio"
	domainllm "atelier/internal/domain/services/llm"
	"atelier/internal/service/library"
	"atelier/internal/service/llm"
)

// fakeProvider replays scripted responses/errors in call order. The last
// scripted entry repeats once the script runs out.
type fakeProvider struct {
	responses []*domainllm.GenerateResponse
	errs      []error
	calls     int
	requests  []*domainllm.GenerateRequest
}

func (p *fakeProvider) GenerateResponse(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	idx := p.calls
	p.calls++
	p.requests = append(p.requests, req)

	if idx < len(p.errs) && p.errs[idx] != nil {
		return nil, p.errs[idx]
	}
	if idx < len(p.responses) {
		return p.responses[idx], nil
	}
	if n := len(p.responses); n > 0 {
		return p.responses[n-1], nil
	}
	return textResponse("ok"), nil
}

func (p *fakeProvider) StreamResponse(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	return nil, fmt.Errorf("streaming not supported by fake")
}

func (p *fakeProvider) Name() string              { return "lorem" }
func (p *fakeProvider) SupportsModel(string) bool { return true }

func textResponse(text string) *domainllm.GenerateResponse {
	t := text
	return &domainllm.GenerateResponse{
		Content: []*chatModels.TurnBlock{
			{BlockType: chatModels.BlockTypeText, TextContent: &t},
		},
		Model:        "lorem-fast",
		InputTokens:  10,
		OutputTokens: 20,
		StopReason:   "end_turn",
	}
}

type fakeProviderGetter struct {
	provider *fakeProvider
	lastKey  string
}

func (g *fakeProviderGetter) GetProvider(name string) (domainllm.LLMProvider, error) {
	return g.provider, nil
}

func (g *fakeProviderGetter) GetProviderWithKey(name, key string) (domainllm.LLMProvider, error) {
	g.lastKey = key
	return g.provider, nil
}

type fakeKeySource struct {
	keys map[string]string
}

func (f *fakeKeySource) KeyForProvider(ctx context.Context, userID, provider string) (string, error) {
	return f.keys[provider], nil
}

type fakeDocs struct {
	docs map[string]*libModels.Document
}

func (f *fakeDocs) GetDocument(ctx context.Context, documentID, workspaceID, userID string) (*libModels.Document, error) {
	if doc, ok := f.docs[documentID]; ok {
		return doc, nil
	}
	return nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
}

type fakeSearch struct {
	results *libModels.SearchResults
	lastReq *library.SearchDocumentsRequest
}

func (f *fakeSearch) SearchDocuments(ctx context.Context, req *library.SearchDocumentsRequest) (*libModels.SearchResults, error) {
	f.lastReq = req
	if f.results != nil {
		return f.results, nil
	}
	return &libModels.SearchResults{Results: []libModels.SearchResult{}}, nil
}

type testServiceOpts struct {
	keySource ProviderKeySource
	docs      DocumentReader
	search    DocumentSearcher
}

func newTestService(t *testing.T, provider *fakeProvider, opts testServiceOpts) (*Service, *fakeProviderGetter) {
	t.Helper()
	registry, err := capabilities.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	resolver := llm.NewModelResolver(registry, "lorem", "lorem-fast")
	getter := &fakeProviderGetter{provider: provider}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewService(getter, opts.keySource, resolver, nil, opts.docs, opts.search, logger), getter
}

func TestInvoke(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{responses: []*domainllm.GenerateResponse{textResponse("completed text")}}
	svc, _ := newTestService(t, provider, testServiceOpts{})

	resp, cached, err := svc.Invoke(ctx, "user-1", &studio.InvokeRequest{
		Input:  "Write a haiku about rivers",
		System: "You are terse.",
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if cached {
		t.Error("first call should not be a cache hit")
	}
	if resp.Text != "completed text" {
		t.Errorf("Text = %q, want %q", resp.Text, "completed text")
	}
	if resp.Model != "lorem/lorem-fast" {
		t.Errorf("Model = %q, want %q", resp.Model, "lorem/lorem-fast")
	}
	if resp.Usage.InputTokens != 10 || resp.Usage.OutputTokens != 20 {
		t.Errorf("Usage = %+v, want 10/20", resp.Usage)
	}

	req := provider.requests[0]
	if req.Params == nil || req.Params.System == nil || *req.Params.System != "You are terse." {
		t.Error("system prompt not forwarded to the provider")
	}
	if req.Params.MaxTokens == nil || *req.Params.MaxTokens != defaultMaxTokens {
		t.Errorf("MaxTokens = %v, want default %d", req.Params.MaxTokens, defaultMaxTokens)
	}
	if len(req.Messages) != 1 || *req.Messages[0].Content[0].TextContent != "Write a haiku about rivers" {
		t.Error("input not forwarded as the user message")
	}
}

func TestInvokeValidation(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	svc, _ := newTestService(t, provider, testServiceOpts{})

	_, _, err := svc.Invoke(ctx, "user-1", &studio.InvokeRequest{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation for empty input", err)
	}
	if provider.calls != 0 {
		t.Error("provider must not be called for invalid requests")
	}
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{
		errs:      []error{fmt.Errorf("boom"), fmt.Errorf("boom again"), nil},
		responses: []*domainllm.GenerateResponse{nil, nil, textResponse("third time lucky")},
	}
	svc, _ := newTestService(t, provider, testServiceOpts{})

	resp, _, err := svc.Invoke(ctx, "user-1", &studio.InvokeRequest{Input: "hello"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if provider.calls != 3 {
		t.Errorf("provider calls = %d, want 3", provider.calls)
	}
	if resp.Text != "third time lucky" {
		t.Errorf("Text = %q, want the retried response", resp.Text)
	}
}

func TestGenerateGivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{
		errs: []error{fmt.Errorf("down"), fmt.Errorf("down"), fmt.Errorf("down")},
	}
	svc, _ := newTestService(t, provider, testServiceOpts{})

	_, _, err := svc.Invoke(ctx, "user-1", &studio.InvokeRequest{Input: "hello"})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream after exhausted retries", err)
	}
	if provider.calls != maxGenerateAttempts {
		t.Errorf("provider calls = %d, want %d", provider.calls, maxGenerateAttempts)
	}
}

func TestUserKeyTakesPrecedence(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	svc, getter := newTestService(t, provider, testServiceOpts{
		keySource: &fakeKeySource{keys: map[string]string{"lorem": "user-key-123"}},
	})

	if _, _, err := svc.Invoke(ctx, "user-1", &studio.InvokeRequest{Input: "hello"}); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if getter.lastKey != "user-key-123" {
		t.Errorf("provider key = %q, want the user's stored key", getter.lastKey)
	}
}

func TestGenerateStory(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{responses: []*domainllm.GenerateResponse{textResponse("Once upon a time…")}}
	svc, _ := newTestService(t, provider, testServiceOpts{})

	resp, _, err := svc.GenerateStory(ctx, "user-1", &studio.StoryRequest{
		Genre:     "mystery",
		Character: "a retired beekeeper",
		Setting:   "a lighthouse in winter",
	})
	if err != nil {
		t.Fatalf("GenerateStory() error = %v", err)
	}
	if resp.Story != "Once upon a time…" {
		t.Errorf("Story = %q", resp.Story)
	}

	prompt := *provider.requests[0].Messages[0].Content[0].TextContent
	for _, want := range []string{"mystery", "retired beekeeper", "lighthouse"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestSummarizeDocument(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{responses: []*domainllm.GenerateResponse{textResponse("A short summary.")}}
	svc, _ := newTestService(t, provider, testServiceOpts{
		docs: &fakeDocs{docs: map[string]*libModels.Document{
			"doc-1": {ID: "doc-1", WorkspaceID: "ws-1", Name: "report", Content: "Full report body text."},
		}},
	})

	resp, _, err := svc.Summarize(ctx, "user-1", &studio.SummaryRequest{
		DocumentID:  "doc-1",
		WorkspaceID: "ws-1",
		Style:       "tldr",
	})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if resp.Summary != "A short summary." {
		t.Errorf("Summary = %q", resp.Summary)
	}
	if resp.Source != "doc-1" {
		t.Errorf("Source = %q, want the document ID", resp.Source)
	}

	prompt := *provider.requests[0].Messages[0].Content[0].TextContent
	if !strings.Contains(prompt, "Full report body text.") {
		t.Error("document content not included in the prompt")
	}
	if !strings.Contains(prompt, "TL;DR") {
		t.Error("tldr style instruction missing from the prompt")
	}
}

func TestSummarizeValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeProvider{}, testServiceOpts{})

	tests := []struct {
		name string
		req  *studio.SummaryRequest
	}{
		{"neither text nor document", &studio.SummaryRequest{}},
		{"both text and document", &studio.SummaryRequest{Text: "x", DocumentID: "doc-1", WorkspaceID: "ws-1"}},
		{"document without workspace", &studio.SummaryRequest{DocumentID: "doc-1"}},
		{"unknown style", &studio.SummaryRequest{Text: "x", Style: "interpretive-dance"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := svc.Summarize(ctx, "user-1", tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestAnswerQuestionEmptyRetrieval(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	search := &fakeSearch{}
	svc, _ := newTestService(t, provider, testServiceOpts{search: search})

	resp, cached, err := svc.AnswerQuestion(ctx, "user-1", &studio.SearchRequest{
		WorkspaceID: "ws-1",
		Question:    "What does the dragon eat?",
	})
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}
	if cached {
		t.Error("empty retrieval must not be served from cache")
	}
	if provider.calls != 0 {
		t.Error("the model must not be asked when retrieval is empty")
	}
	if len(resp.Sources) != 0 {
		t.Errorf("Sources = %+v, want empty", resp.Sources)
	}
	if !strings.Contains(resp.Answer, "No relevant documents") {
		t.Errorf("Answer = %q, want the honest empty-retrieval answer", resp.Answer)
	}

	if search.lastReq.Limit != defaultTopK {
		t.Errorf("retrieval limit = %d, want default %d", search.lastReq.Limit, defaultTopK)
	}
}

func TestAnswerQuestion(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{responses: []*domainllm.GenerateResponse{textResponse("Dragons eat knights [1].")}}
	search := &fakeSearch{results: &libModels.SearchResults{
		Results: []libModels.SearchResult{
			{
				Document: libModels.Document{ID: "doc-1", Name: "bestiary", Content: "…dragons <b>eat</b> knights…"},
				Score:    0.9,
			},
			{
				Document: libModels.Document{ID: "doc-2", Name: "cookbook", Content: "…roast <b>knight</b>…"},
				Score:    0.4,
			},
		},
		TotalCount: 2,
	}}
	docs := &fakeDocs{docs: map[string]*libModels.Document{
		"doc-1": {ID: "doc-1", Name: "bestiary", Content: "The full bestiary entry about dragons."},
		"doc-2": {ID: "doc-2", Name: "cookbook", Content: "The full cookbook."},
	}}
	svc, _ := newTestService(t, provider, testServiceOpts{search: search, docs: docs})

	resp, _, err := svc.AnswerQuestion(ctx, "user-1", &studio.SearchRequest{
		WorkspaceID: "ws-1",
		Question:    "What do dragons eat?",
		TopK:        2,
	})
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}

	if resp.Answer != "Dragons eat knights [1]." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("Sources = %d, want 2", len(resp.Sources))
	}
	if resp.Sources[0].DocumentID != "doc-1" || resp.Sources[0].Snippet == "" {
		t.Errorf("Sources[0] = %+v, want doc-1 with the search snippet", resp.Sources[0])
	}

	prompt := *provider.requests[0].Messages[0].Content[0].TextContent
	if !strings.Contains(prompt, "The full bestiary entry") {
		t.Error("full document content not fed to synthesis")
	}
	if !strings.Contains(prompt, "What do dragons eat?") {
		t.Error("question missing from the synthesis prompt")
	}
}

func TestTruncateText(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := truncateText(long, 50)
	if len(got) > 60 {
		t.Errorf("truncated length = %d, want around the limit", len(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated text %q should end with an ellipsis", got)
	}
	if truncateText("short", 50) != "short" {
		t.Error("text under the limit must pass through unchanged")
	}
}
