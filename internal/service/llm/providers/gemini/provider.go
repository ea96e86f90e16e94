package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"atelier/internal/domain/models/chat"
	domainllm "atelier/internal/domain/services/llm"
)

// Provider implements the LLMProvider interface for Google Gemini models via
// the unified genai SDK.
type Provider struct {
	client *genai.Client
}

// NewProvider creates a new Gemini provider with the given API key.
func NewProvider(apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Provider{client: client}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "gemini"
}

// SupportsModel returns true if this provider supports the given model.
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "gemini-")
}

// buildConfig maps request params onto the genai generation config.
func buildConfig(params *chat.RequestParams) (*genai.GenerateContentConfig, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(params.GetMaxTokens(4096)),
	}

	if params.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*params.Temperature))
	}

	if params.TopP != nil {
		config.TopP = genai.Ptr(float32(*params.TopP))
	}

	if params.TopK != nil {
		config.TopK = genai.Ptr(float32(*params.TopK))
	}

	if len(params.Stop) > 0 {
		config.StopSequences = params.Stop
	}

	if params.System != nil {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: *params.System}},
		}
	}

	if len(params.Tools) > 0 {
		tools, err := convertTools(params.Tools)
		if err != nil {
			return nil, err
		}
		config.Tools = tools
	}

	if params.ThinkingEnabled != nil && *params.ThinkingEnabled {
		budget := params.GetThinkingBudgetTokens()
		config.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(int32(budget)),
		}
	}

	return config, nil
}

// GenerateResponse generates a complete (non-streaming) response from Gemini.
func (p *Provider) GenerateResponse(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by Gemini provider", req.Model)
	}

	contents, err := convertToGeminiContents(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	params := req.Params
	if params == nil {
		params = &chat.RequestParams{}
	}
	config, err := buildConfig(params)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	return convertFromGeminiResponse(resp, req.Model)
}

// StreamResponse generates a streaming response from Gemini.
//
// Gemini chunks carry whole parts rather than typed deltas, so block index
// tracking lives here: consecutive parts of the same kind extend one block,
// and every function call is its own block.
func (p *Provider) StreamResponse(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by Gemini provider", req.Model)
	}

	contents, err := convertToGeminiContents(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	params := req.Params
	if params == nil {
		params = &chat.RequestParams{}
	}
	config, err := buildConfig(params)
	if err != nil {
		return nil, err
	}

	eventChan := make(chan domainllm.StreamEvent, 10)

	go func() {
		defer close(eventChan)

		state := &streamState{blockIndex: -1}
		var usage *genai.GenerateContentResponseUsageMetadata
		finishReason := genai.FinishReason("")

		for resp, err := range p.client.Models.GenerateContentStream(ctx, req.Model, contents, config) {
			if err != nil {
				eventChan <- domainllm.StreamEvent{
					Error: fmt.Errorf("gemini streaming error: %w", err),
				}
				return
			}

			if resp.UsageMetadata != nil {
				usage = resp.UsageMetadata
			}

			if len(resp.Candidates) == 0 {
				continue
			}
			candidate := resp.Candidates[0]
			if candidate.FinishReason != "" {
				finishReason = candidate.FinishReason
			}
			if candidate.Content == nil {
				continue
			}

			for _, part := range candidate.Content.Parts {
				for _, delta := range state.deltasForPart(part) {
					select {
					case <-ctx.Done():
						eventChan <- domainllm.StreamEvent{Error: ctx.Err()}
						return
					case eventChan <- domainllm.StreamEvent{Delta: delta}:
					}
				}
			}
		}

		metadata := &domainllm.StreamMetadata{
			Model:            req.Model,
			StopReason:       mapFinishReason(finishReason),
			ResponseMetadata: map[string]interface{}{},
		}
		if usage != nil {
			metadata.InputTokens = int(usage.PromptTokenCount)
			metadata.OutputTokens = int(usage.CandidatesTokenCount)
			if usage.ThoughtsTokenCount > 0 {
				metadata.ResponseMetadata["thoughts_token_count"] = int(usage.ThoughtsTokenCount)
			}
		}

		eventChan <- domainllm.StreamEvent{Metadata: metadata}
	}()

	return eventChan, nil
}

// streamState tracks block boundaries while converting Gemini parts.
type streamState struct {
	blockIndex  int
	currentKind string
}

// deltasForPart converts one genai part into zero or more block deltas.
func (s *streamState) deltasForPart(part *genai.Part) []*chat.TurnBlockDelta {
	switch {
	case part.FunctionCall != nil:
		s.blockIndex++
		s.currentKind = chat.BlockTypeToolUse

		blockType := chat.BlockTypeToolUse
		toolID := functionCallID(part.FunctionCall)
		toolName := part.FunctionCall.Name
		start := &chat.TurnBlockDelta{
			BlockIndex:   s.blockIndex,
			BlockType:    &blockType,
			DeltaType:    chat.DeltaTypeToolCallStart,
			ToolCallID:   &toolID,
			ToolCallName: &toolName,
		}

		// Arguments arrive whole; forward them as one JSON delta
		raw, err := json.Marshal(functionCallArgs(part.FunctionCall))
		if err != nil {
			return []*chat.TurnBlockDelta{start}
		}
		argsJSON := string(raw)
		return []*chat.TurnBlockDelta{start, {
			BlockIndex:     s.blockIndex,
			DeltaType:      chat.DeltaTypeInputJSON,
			InputJSONDelta: &argsJSON,
		}}

	case part.Thought:
		var deltas []*chat.TurnBlockDelta
		if s.currentKind != chat.BlockTypeThinking {
			s.blockIndex++
			s.currentKind = chat.BlockTypeThinking
			blockType := chat.BlockTypeThinking
			deltas = append(deltas, &chat.TurnBlockDelta{
				BlockIndex: s.blockIndex,
				BlockType:  &blockType,
				DeltaType:  chat.DeltaTypeThinking,
			})
		}
		if part.Text != "" {
			text := part.Text
			deltas = append(deltas, &chat.TurnBlockDelta{
				BlockIndex: s.blockIndex,
				DeltaType:  chat.DeltaTypeThinking,
				TextDelta:  &text,
			})
		}
		if len(part.ThoughtSignature) > 0 {
			signature := base64.StdEncoding.EncodeToString(part.ThoughtSignature)
			deltas = append(deltas, &chat.TurnBlockDelta{
				BlockIndex:     s.blockIndex,
				DeltaType:      chat.DeltaTypeSignature,
				SignatureDelta: &signature,
			})
		}
		return deltas

	case part.Text != "":
		var deltas []*chat.TurnBlockDelta
		if s.currentKind != chat.BlockTypeText {
			s.blockIndex++
			s.currentKind = chat.BlockTypeText
			blockType := chat.BlockTypeText
			deltas = append(deltas, &chat.TurnBlockDelta{
				BlockIndex: s.blockIndex,
				BlockType:  &blockType,
				DeltaType:  chat.DeltaTypeText,
			})
		}
		text := part.Text
		return append(deltas, &chat.TurnBlockDelta{
			BlockIndex: s.blockIndex,
			DeltaType:  chat.DeltaTypeText,
			TextDelta:  &text,
		})

	default:
		return nil
	}
}
