package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"atelier/internal/domain/models/chat"
	domainllm "atelier/internal/domain/services/llm"
)

// StreamResponse generates a streaming response from Claude.
// Returns a channel that emits StreamEvent as deltas arrive from the API.
func (p *Provider) StreamResponse(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by Anthropic provider", req.Model)
	}

	apiParams, err := p.buildMessageParams(req)
	if err != nil {
		return nil, err
	}

	eventChan := make(chan domainllm.StreamEvent, 10) // Buffered to prevent blocking

	go func() {
		defer close(eventChan)

		stream := p.client.Messages.NewStreaming(ctx, apiParams)

		// Accumulator for final message metadata
		message := anthropic.Message{}

		for stream.Next() {
			event := stream.Current()

			if err := message.Accumulate(event); err != nil {
				eventChan <- domainllm.StreamEvent{
					Error: fmt.Errorf("failed to accumulate message: %w", err),
				}
				return
			}

			streamEvent := transformStreamEvent(event)
			if streamEvent.Delta == nil {
				continue
			}

			select {
			case <-ctx.Done():
				eventChan <- domainllm.StreamEvent{
					Error: ctx.Err(),
				}
				return
			case eventChan <- streamEvent:
			}
		}

		if err := stream.Err(); err != nil {
			eventChan <- domainllm.StreamEvent{
				Error: fmt.Errorf("anthropic streaming error: %w", err),
			}
			return
		}

		// Final metadata from the accumulated message
		metadata := &domainllm.StreamMetadata{
			Model:        string(message.Model),
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
			StopReason:   string(message.StopReason),
		}

		responseMetadata := make(map[string]interface{})
		if message.StopSequence != "" {
			responseMetadata["stop_sequence"] = message.StopSequence
		}
		if message.Usage.CacheCreationInputTokens > 0 {
			responseMetadata["cache_creation_input_tokens"] = int(message.Usage.CacheCreationInputTokens)
		}
		if message.Usage.CacheReadInputTokens > 0 {
			responseMetadata["cache_read_input_tokens"] = int(message.Usage.CacheReadInputTokens)
		}
		metadata.ResponseMetadata = responseMetadata

		eventChan <- domainllm.StreamEvent{
			Metadata: metadata,
		}
	}()

	return eventChan, nil
}

// transformStreamEvent converts an Anthropic streaming event to a domain
// StreamEvent. Message-level events carry no delta; metadata is emitted once
// after the stream drains.
func transformStreamEvent(event anthropic.MessageStreamEventUnion) domainllm.StreamEvent {
	switch e := event.AsAny().(type) {
	case anthropic.ContentBlockStartEvent:
		blockType := string(e.ContentBlock.Type)
		delta := &chat.TurnBlockDelta{
			BlockIndex: int(e.Index),
			BlockType:  &blockType,
		}

		switch e.ContentBlock.Type {
		case "text":
			delta.DeltaType = chat.DeltaTypeText

		case "thinking":
			delta.DeltaType = chat.DeltaTypeThinking
			if e.ContentBlock.Signature != "" {
				signature := e.ContentBlock.Signature
				delta.SignatureDelta = &signature
			}

		case "tool_use":
			delta.DeltaType = chat.DeltaTypeToolCallStart
			if e.ContentBlock.ID != "" {
				toolID := e.ContentBlock.ID
				delta.ToolCallID = &toolID
			}
			if e.ContentBlock.Name != "" {
				toolName := e.ContentBlock.Name
				delta.ToolCallName = &toolName
			}
		}

		return domainllm.StreamEvent{Delta: delta}

	case anthropic.ContentBlockDeltaEvent:
		delta := &chat.TurnBlockDelta{
			BlockIndex: int(e.Index),
		}

		switch e.Delta.Type {
		case "text_delta":
			delta.DeltaType = chat.DeltaTypeText
			text := e.Delta.Text
			delta.TextDelta = &text

		case "thinking_delta":
			delta.DeltaType = chat.DeltaTypeThinking
			thinking := e.Delta.Thinking
			delta.TextDelta = &thinking

		case "signature_delta":
			delta.DeltaType = chat.DeltaTypeSignature
			signature := e.Delta.Signature
			delta.SignatureDelta = &signature

		case "input_json_delta":
			delta.DeltaType = chat.DeltaTypeInputJSON
			jsonDelta := e.Delta.PartialJSON
			delta.InputJSONDelta = &jsonDelta

		default:
			return domainllm.StreamEvent{}
		}

		return domainllm.StreamEvent{Delta: delta}

	// MessageStart, ContentBlockStop, MessageDelta, MessageStop: block
	// completion is handled by the accumulator on index change, and message
	// metadata comes from the accumulated message after the stream ends
	default:
		return domainllm.StreamEvent{}
	}
}
