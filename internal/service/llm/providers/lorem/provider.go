package lorem

import (
	"context"
	"fmt"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	"atelier/internal/domain/models/chat"
	domainllm "atelier/internal/domain/services/llm"
)

// Provider is a mock LLM provider that generates lorem ipsum text.
// Used for development and tests without real API keys.
//
// Model behavior is encoded in the name:
//   - lorem-fast:   ~30 words/second
//   - lorem-slow:   ~2 words/second
//   - lorem-cutoff: generates past the max_tokens budget and stops with
//     stop_reason "max_tokens"
type Provider struct {
	generator *loremgen.Lorem
}

// NewProvider creates a new lorem ipsum provider.
func NewProvider() *Provider {
	return &Provider{
		generator: loremgen.New(),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// SupportsModel returns true if the model name starts with "lorem-".
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// getStreamDelay returns the delay between words based on the model name.
func getStreamDelay(model string) time.Duration {
	if strings.Contains(model, "slow") {
		return 500 * time.Millisecond // 2 words/second
	}
	if strings.Contains(model, "fast") {
		return 33 * time.Millisecond // 30 words/second
	}
	return 100 * time.Millisecond // default: 10 words/second
}

// isCutoffModel returns true if the model should simulate a max_tokens stop.
func isCutoffModel(model string) bool {
	return strings.Contains(model, "cutoff")
}

// GenerateResponse generates a complete lorem ipsum response.
// Slow models simulate a blocking API call with a short delay.
func (p *Provider) GenerateResponse(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by lorem provider", req.Model)
	}

	params := req.Params
	if params == nil {
		params = &chat.RequestParams{}
	}
	maxTokens := params.GetMaxTokens(4096)

	if strings.Contains(req.Model, "slow") {
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	stopReason := "end_turn"
	targetWords := maxTokens
	if targetWords > 200 {
		// Keep mock responses readable; nobody wants 4096 words of lorem
		targetWords = 200
	}
	if isCutoffModel(req.Model) {
		stopReason = "max_tokens"
	}

	text := p.generateTextWords(targetWords)
	outputTokens := len(strings.Fields(text)) // word count as proxy

	return &domainllm.GenerateResponse{
		Content: []*chat.TurnBlock{
			{
				BlockType:   chat.BlockTypeText,
				TextContent: &text,
			},
		},
		Model:        req.Model,
		InputTokens:  p.estimateTokens(req.Messages),
		OutputTokens: outputTokens,
		StopReason:   stopReason,
		ResponseMetadata: map[string]interface{}{
			"mock":     true,
			"provider": "lorem",
		},
	}, nil
}

// StreamResponse generates a streaming lorem ipsum response, word by word.
// If thinking is enabled, a thinking block (with a mock signature) streams
// before the text block.
func (p *Provider) StreamResponse(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by lorem provider", req.Model)
	}

	params := req.Params
	if params == nil {
		params = &chat.RequestParams{}
	}
	maxTokens := params.GetMaxTokens(4096)
	thinkingEnabled := params.ThinkingEnabled != nil && *params.ThinkingEnabled

	eventChan := make(chan domainllm.StreamEvent, 10)

	go func() {
		defer close(eventChan)

		blockIndex := 0
		totalOutputTokens := 0
		stopReason := "end_turn"

		if thinkingEnabled {
			if err := p.streamThinkingBlock(ctx, eventChan, blockIndex, req.Model); err != nil {
				eventChan <- domainllm.StreamEvent{Error: err}
				return
			}
			totalOutputTokens += 10 // ~10 words of thinking
			blockIndex++
		}

		outputTokens, cutoff, err := p.streamTextBlock(ctx, eventChan, blockIndex, maxTokens-totalOutputTokens, req.Model)
		if err != nil {
			eventChan <- domainllm.StreamEvent{Error: err}
			return
		}
		totalOutputTokens += outputTokens
		if cutoff {
			stopReason = "max_tokens"
		}

		eventChan <- domainllm.StreamEvent{
			Metadata: &domainllm.StreamMetadata{
				Model:        req.Model,
				InputTokens:  p.estimateTokens(req.Messages),
				OutputTokens: totalOutputTokens,
				StopReason:   stopReason,
				ResponseMetadata: map[string]interface{}{
					"mock":     true,
					"provider": "lorem",
				},
			},
		}
	}()

	return eventChan, nil
}

// streamThinkingBlock streams a short thinking block followed by a mock
// signature delta, mirroring how Anthropic extended thinking arrives.
func (p *Provider) streamThinkingBlock(ctx context.Context, eventChan chan<- domainllm.StreamEvent, blockIndex int, model string) error {
	blockType := chat.BlockTypeThinking
	eventChan <- domainllm.StreamEvent{
		Delta: &chat.TurnBlockDelta{
			BlockIndex: blockIndex,
			BlockType:  &blockType,
			DeltaType:  chat.DeltaTypeThinking,
		},
	}

	words := strings.Fields(p.generator.Sentence(8, 12))
	delay := getStreamDelay(model)

	for _, word := range words {
		text := word + " "
		if err := p.sendDelta(ctx, eventChan, &chat.TurnBlockDelta{
			BlockIndex: blockIndex,
			DeltaType:  chat.DeltaTypeThinking,
			TextDelta:  &text,
		}, delay); err != nil {
			return err
		}
	}

	signature := "lorem-signature-v1"
	eventChan <- domainllm.StreamEvent{
		Delta: &chat.TurnBlockDelta{
			BlockIndex:     blockIndex,
			DeltaType:      chat.DeltaTypeSignature,
			SignatureDelta: &signature,
		},
	}

	return nil
}

// streamTextBlock streams a text block up to maxTokens words.
// Returns (word count, cutoff flag, error).
func (p *Provider) streamTextBlock(ctx context.Context, eventChan chan<- domainllm.StreamEvent, blockIndex int, maxTokens int, model string) (int, bool, error) {
	blockType := chat.BlockTypeText
	eventChan <- domainllm.StreamEvent{
		Delta: &chat.TurnBlockDelta{
			BlockIndex: blockIndex,
			BlockType:  &blockType,
			DeltaType:  chat.DeltaTypeText,
		},
	}

	targetWords := maxTokens
	if targetWords > 200 {
		targetWords = 200
	}
	if isCutoffModel(model) {
		// Generate 50% extra so the budget check below trips
		targetWords += targetWords / 2
	}

	words := strings.Fields(p.generateTextWords(targetWords))
	delay := getStreamDelay(model)
	budget := maxTokens
	if budget > 200 {
		budget = 200
	}

	wordsSent := 0
	for _, word := range words {
		if wordsSent >= budget {
			return wordsSent, true, nil
		}

		text := word + " "
		if err := p.sendDelta(ctx, eventChan, &chat.TurnBlockDelta{
			BlockIndex: blockIndex,
			DeltaType:  chat.DeltaTypeText,
			TextDelta:  &text,
		}, delay); err != nil {
			return wordsSent, false, err
		}
		wordsSent++
	}

	return wordsSent, false, nil
}

// sendDelta emits one delta and waits the inter-word delay, aborting promptly
// on context cancellation so interrupts do not hang on the sleep.
func (p *Provider) sendDelta(ctx context.Context, eventChan chan<- domainllm.StreamEvent, delta *chat.TurnBlockDelta, delay time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case eventChan <- domainllm.StreamEvent{Delta: delta}:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
	}

	return nil
}

// generateTextWords generates lorem ipsum text with approximately targetWords
// words, broken into paragraphs.
func (p *Provider) generateTextWords(targetWords int) string {
	var sb strings.Builder
	wordCount := 0

	for wordCount < targetWords {
		sentence := p.generator.Sentence(5, 15)
		sb.WriteString(sentence)
		sb.WriteString(" ")

		wordCount += len(strings.Fields(sentence))

		if wordCount%50 == 0 {
			sb.WriteString("\n\n")
		}
	}

	return strings.TrimSpace(sb.String())
}

// estimateTokens estimates the token count for a list of messages.
// Word count is close enough for a mock.
func (p *Provider) estimateTokens(messages []domainllm.Message) int {
	totalWords := 0
	for _, msg := range messages {
		for _, block := range msg.Content {
			if block.TextContent != nil {
				totalWords += len(strings.Fields(*block.TextContent))
			}
		}
	}
	return totalWords
}
