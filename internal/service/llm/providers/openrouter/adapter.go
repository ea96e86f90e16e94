package openrouter

import (
	"encoding/json"
	"fmt"

	"atelier/internal/domain/models/chat"
	domainllm "atelier/internal/domain/services/llm"
)

// Wire types for the OpenAI-compatible Chat Completions API. Only the fields
// atelier reads or writes are declared; everything else passes through the
// JSON decoder untouched.

type chatCompletionRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	TopP          *float64       `json:"top_p,omitempty"`
	TopK          *int           `json:"top_k,omitempty"`
	Stop          []string       `json:"stop,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
	Tools         []toolSpec     `json:"tools,omitempty"`
	Reasoning     *reasoningSpec `json:"reasoning,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// reasoningSpec is OpenRouter's normalized reasoning control. MaxTokens maps
// onto Anthropic-style budgets; effort-based models get a translated value.
type reasoningSpec struct {
	MaxTokens int `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type toolSpec struct {
	Type     string               `json:"type"`
	Function chat.FunctionDetails `json:"function"`
}

type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage"`
}

type choice struct {
	Message      responseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

type responseMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Reasoning string     `json:"reasoning"`
	ToolCalls []toolCall `json:"tool_calls"`
}

type usage struct {
	PromptTokens            int                      `json:"prompt_tokens"`
	CompletionTokens        int                      `json:"completion_tokens"`
	TotalTokens             int                      `json:"total_tokens"`
	CompletionTokensDetails *completionTokensDetails `json:"completion_tokens_details"`
}

type completionTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

// Streaming chunk shapes. finish_reason is a pointer because intermediate
// chunks carry an explicit null.

type chatCompletionChunk struct {
	ID      string        `json:"id"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
	Usage   *usage        `json:"usage"`
}

type chunkChoice struct {
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

type chunkDelta struct {
	Content   string          `json:"content"`
	Reasoning string          `json:"reasoning"`
	ToolCalls []chunkToolCall `json:"tool_calls"`
}

type chunkToolCall struct {
	Index    int          `json:"index"`
	ID       string       `json:"id"`
	Function toolFunction `json:"function"`
}

// convertToChatMessages flattens domain messages into Chat Completions
// messages.
//
// Block mapping:
//   - text        → message content (concatenated per message)
//   - thinking    → dropped; the API does not accept reasoning on replay
//   - tool_use    → assistant tool_calls entries
//   - tool_result → a separate role:"tool" message per result
func convertToChatMessages(messages []domainllm.Message, system *string) ([]chatMessage, error) {
	result := make([]chatMessage, 0, len(messages)+1)

	if system != nil && *system != "" {
		result = append(result, chatMessage{Role: "system", Content: *system})
	}

	for i, msg := range messages {
		var content string
		var calls []toolCall
		var toolMessages []chatMessage

		for _, block := range msg.Content {
			switch block.BlockType {
			case chat.BlockTypeText:
				if block.TextContent == nil {
					return nil, fmt.Errorf("message %d: text block missing text_content", i)
				}
				if content != "" {
					content += "\n\n"
				}
				content += *block.TextContent

			case chat.BlockTypeThinking:
				continue

			case chat.BlockTypeToolUse:
				toolUseID, _ := block.Content["tool_use_id"].(string)
				toolName, _ := block.Content["tool_name"].(string)
				if toolUseID == "" || toolName == "" {
					return nil, fmt.Errorf("message %d: tool_use block missing tool_use_id or tool_name", i)
				}
				args := "{}"
				if input := block.Content["input"]; input != nil {
					encoded, err := json.Marshal(input)
					if err != nil {
						return nil, fmt.Errorf("message %d: failed to encode tool input: %w", i, err)
					}
					args = string(encoded)
				}
				calls = append(calls, toolCall{
					ID:       toolUseID,
					Type:     "function",
					Function: toolFunction{Name: toolName, Arguments: args},
				})

			case chat.BlockTypeToolResult:
				toolUseID, _ := block.Content["tool_use_id"].(string)
				if toolUseID == "" {
					return nil, fmt.Errorf("message %d: tool_result block missing tool_use_id", i)
				}
				text := ""
				if block.TextContent != nil {
					text = *block.TextContent
				}
				toolMessages = append(toolMessages, chatMessage{
					Role:       "tool",
					ToolCallID: toolUseID,
					Content:    text,
				})

			default:
				return nil, fmt.Errorf("message %d: unsupported block type %q", i, block.BlockType)
			}
		}

		// Tool results must immediately follow the assistant message that
		// requested them, so they are emitted before this message's own text.
		result = append(result, toolMessages...)

		if content != "" || len(calls) > 0 {
			result = append(result, chatMessage{
				Role:      msg.Role,
				Content:   content,
				ToolCalls: calls,
			})
		}
	}

	return result, nil
}

// convertTools resolves minimal name-only references and passes full
// definitions through. The domain format is already the Chat Completions
// format, so no schema translation happens here.
func convertTools(tools []chat.ToolDefinition) ([]toolSpec, error) {
	result := make([]toolSpec, 0, len(tools))

	for _, tool := range tools {
		fn := tool.Function
		if fn == nil {
			resolved := chat.ToolDefinitionByName(tool.Name)
			if resolved == nil || resolved.Function == nil {
				return nil, fmt.Errorf("unknown tool: %q", tool.Name)
			}
			fn = resolved.Function
		}
		result = append(result, toolSpec{Type: "function", Function: *fn})
	}

	return result, nil
}

// mapFinishReason normalizes Chat Completions finish reasons onto the stop
// reasons the rest of the system understands.
func mapFinishReason(reason string) string {
	switch reason {
	case "stop", "":
		return "end_turn"
	case "length":
		return "max_tokens"
	case "tool_calls":
		return "tool_use"
	default:
		return reason
	}
}

// convertFromChatCompletion converts a non-streaming completion into domain
// blocks: reasoning first, then text, then tool calls, mirroring the order
// the same content arrives in over SSE.
func convertFromChatCompletion(resp *chatCompletionResponse, model string) (*domainllm.GenerateResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openrouter returned no choices")
	}
	ch := resp.Choices[0]

	var blocks []*chat.TurnBlock
	sequence := 0

	appendBlock := func(blockType string, text *string, content map[string]interface{}) {
		blocks = append(blocks, &chat.TurnBlock{
			BlockType:   blockType,
			Sequence:    sequence,
			TextContent: text,
			Content:     content,
		})
		sequence++
	}

	if ch.Message.Reasoning != "" {
		reasoning := ch.Message.Reasoning
		appendBlock(chat.BlockTypeThinking, &reasoning, nil)
	}

	if ch.Message.Content != "" {
		text := ch.Message.Content
		appendBlock(chat.BlockTypeText, &text, nil)
	}

	for _, call := range ch.Message.ToolCalls {
		input := map[string]interface{}{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &input); err != nil {
				return nil, fmt.Errorf("failed to parse tool arguments for %q: %w", call.Function.Name, err)
			}
		}
		appendBlock(chat.BlockTypeToolUse, nil, map[string]interface{}{
			"tool_use_id": call.ID,
			"tool_name":   call.Function.Name,
			"input":       input,
		})
	}

	out := &domainllm.GenerateResponse{
		Content:          blocks,
		Model:            model,
		StopReason:       mapFinishReason(ch.FinishReason),
		ResponseMetadata: map[string]interface{}{},
	}
	if resp.Model != "" && resp.Model != model {
		out.ResponseMetadata["served_model"] = resp.Model
	}
	if resp.Usage != nil {
		out.InputTokens = resp.Usage.PromptTokens
		out.OutputTokens = resp.Usage.CompletionTokens
		if d := resp.Usage.CompletionTokensDetails; d != nil && d.ReasoningTokens > 0 {
			out.ResponseMetadata["reasoning_tokens"] = d.ReasoningTokens
		}
	}

	return out, nil
}
