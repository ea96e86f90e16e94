package openrouter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"atelier/internal/domain/models/chat"
	domainllm "atelier/internal/domain/services/llm"
)

// StreamResponse starts a streaming completion over SSE.
//
// Chat Completions chunks have no block boundary events; content kind is
// implied by which delta field is populated (reasoning, content, tool_calls).
// Block index tracking therefore lives here: consecutive deltas of one kind
// extend a block, a kind change opens the next one, and each tool_calls array
// index maps to its own block.
func (p *Provider) StreamResponse(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model cannot be empty")
	}

	payload, err := buildRequest(req, true)
	if err != nil {
		return nil, err
	}

	httpReq, err := p.newHTTPRequest(ctx, payload)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openrouter request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("openrouter API error (status %d): %s", resp.StatusCode, truncateBody(body))
	}

	events := make(chan domainllm.StreamEvent, 10)
	go p.consumeStream(ctx, resp.Body, req.Model, events)

	return events, nil
}

func (p *Provider) consumeStream(ctx context.Context, body io.ReadCloser, model string, events chan<- domainllm.StreamEvent) {
	defer close(events)
	defer func() { _ = body.Close() }()

	send := func(event domainllm.StreamEvent) bool {
		select {
		case events <- event:
			return true
		case <-ctx.Done():
			return false
		}
	}

	state := newStreamState()
	var finalUsage *usage
	finishReason := ""

	scanner := bufio.NewScanner(body)
	// A single chunk can carry a large tool-argument fragment; the default
	// 64KB token limit is not enough headroom.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		// Skips blank lines and ": OPENROUTER PROCESSING" comments.
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			break
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			send(domainllm.StreamEvent{Error: fmt.Errorf("failed to parse stream chunk: %w", err)})
			return
		}

		if chunk.Usage != nil {
			finalUsage = chunk.Usage
		}
		if len(chunk.Choices) == 0 {
			// The usage-only chunk at the end of the stream has no choices.
			continue
		}
		ch := chunk.Choices[0]
		if ch.FinishReason != nil && *ch.FinishReason != "" {
			finishReason = *ch.FinishReason
		}

		for _, delta := range state.deltasForChunk(ch.Delta) {
			if !send(domainllm.StreamEvent{Delta: delta}) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		// Cancellation surfaces as a read error on the body; the caller
		// already knows it cancelled.
		if ctx.Err() != nil {
			return
		}
		send(domainllm.StreamEvent{Error: fmt.Errorf("stream read failed: %w", err)})
		return
	}

	metadata := &domainllm.StreamMetadata{
		Model:            model,
		StopReason:       mapFinishReason(finishReason),
		ResponseMetadata: map[string]interface{}{},
	}
	if finalUsage != nil {
		metadata.InputTokens = finalUsage.PromptTokens
		metadata.OutputTokens = finalUsage.CompletionTokens
		if d := finalUsage.CompletionTokensDetails; d != nil && d.ReasoningTokens > 0 {
			metadata.ResponseMetadata["reasoning_tokens"] = d.ReasoningTokens
		}
	}
	send(domainllm.StreamEvent{Metadata: metadata})
}

// streamState assigns block indexes across a stream's chunks.
type streamState struct {
	blockIndex  int
	currentKind string
	// toolBlocks maps a tool_calls array index to its block index; argument
	// fragments arrive with the array index only.
	toolBlocks map[int]int
}

func newStreamState() *streamState {
	return &streamState{blockIndex: -1, toolBlocks: make(map[int]int)}
}

func (s *streamState) deltasForChunk(delta chunkDelta) []*chat.TurnBlockDelta {
	var out []*chat.TurnBlockDelta

	if delta.Reasoning != "" {
		text := delta.Reasoning
		d := &chat.TurnBlockDelta{DeltaType: chat.DeltaTypeThinking, TextDelta: &text}
		if s.currentKind != chat.BlockTypeThinking {
			s.blockIndex++
			s.currentKind = chat.BlockTypeThinking
			blockType := chat.BlockTypeThinking
			d.BlockType = &blockType
		}
		d.BlockIndex = s.blockIndex
		out = append(out, d)
	}

	if delta.Content != "" {
		text := delta.Content
		d := &chat.TurnBlockDelta{DeltaType: chat.DeltaTypeText, TextDelta: &text}
		if s.currentKind != chat.BlockTypeText {
			s.blockIndex++
			s.currentKind = chat.BlockTypeText
			blockType := chat.BlockTypeText
			d.BlockType = &blockType
		}
		d.BlockIndex = s.blockIndex
		out = append(out, d)
	}

	for _, call := range delta.ToolCalls {
		idx, started := s.toolBlocks[call.Index]
		if !started {
			s.blockIndex++
			idx = s.blockIndex
			s.toolBlocks[call.Index] = idx
			// Any text that follows a tool call starts a fresh block.
			s.currentKind = ""

			blockType := chat.BlockTypeToolUse
			id := call.ID
			name := call.Function.Name
			out = append(out, &chat.TurnBlockDelta{
				BlockIndex:   idx,
				BlockType:    &blockType,
				DeltaType:    chat.DeltaTypeToolCallStart,
				ToolCallID:   &id,
				ToolCallName: &name,
			})
		}
		if call.Function.Arguments != "" {
			args := call.Function.Arguments
			out = append(out, &chat.TurnBlockDelta{
				BlockIndex:     idx,
				DeltaType:      chat.DeltaTypeInputJSON,
				InputJSONDelta: &args,
			})
		}
	}

	return out
}
