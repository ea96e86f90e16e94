package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"atelier/internal/domain/models/chat"
	domainllm "atelier/internal/domain/services/llm"
)

// convertToAnthropicMessages converts domain messages to Anthropic SDK format.
//
// Block mapping:
//   - text        → text block
//   - thinking    → thinking block (signature restored from content JSONB)
//   - tool_use    → tool_use block (assistant messages)
//   - tool_result → tool_result block (user messages)
func convertToAnthropicMessages(messages []domainllm.Message) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(messages))

	for i, msg := range messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))

		for _, block := range msg.Content {
			switch block.BlockType {
			case chat.BlockTypeText:
				if block.TextContent == nil {
					return nil, fmt.Errorf("message %d: text block missing text_content", i)
				}
				blocks = append(blocks, anthropic.NewTextBlock(*block.TextContent))

			case chat.BlockTypeThinking:
				// Thinking blocks must round-trip with their signature or the
				// API rejects the conversation
				if block.TextContent == nil {
					continue
				}
				signature, _ := block.Content["signature"].(string)
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfThinking: &anthropic.ThinkingBlockParam{
						Signature: signature,
						Thinking:  *block.TextContent,
					},
				})

			case chat.BlockTypeToolUse:
				toolUseID, _ := block.Content["tool_use_id"].(string)
				toolName, _ := block.Content["tool_name"].(string)
				if toolUseID == "" || toolName == "" {
					return nil, fmt.Errorf("message %d: tool_use block missing tool_use_id or tool_name", i)
				}
				input := block.Content["input"]
				if input == nil {
					input = map[string]interface{}{}
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    toolUseID,
						Name:  toolName,
						Input: input,
					},
				})

			case chat.BlockTypeToolResult:
				toolUseID, _ := block.Content["tool_use_id"].(string)
				if toolUseID == "" {
					return nil, fmt.Errorf("message %d: tool_result block missing tool_use_id", i)
				}
				isError, _ := block.Content["is_error"].(bool)
				text := ""
				if block.TextContent != nil {
					text = *block.TextContent
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: toolUseID,
						IsError:   anthropic.Bool(isError),
						Content: []anthropic.ToolResultBlockParamContentUnion{
							{OfText: &anthropic.TextBlockParam{Text: text}},
						},
					},
				})
			}
		}

		if len(blocks) == 0 {
			continue
		}

		var message anthropic.MessageParam
		switch msg.Role {
		case "user":
			message = anthropic.NewUserMessage(blocks...)
		case "assistant":
			message = anthropic.NewAssistantMessage(blocks...)
		default:
			return nil, fmt.Errorf("message %d: unsupported role '%s'", i, msg.Role)
		}

		result = append(result, message)
	}

	return result, nil
}

// convertTools maps OpenAI-format tool definitions to Anthropic tool params.
// Minimal {"name": ...} references are resolved to their full schema first.
func convertTools(defs []chat.ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	tools := make([]anthropic.ToolUnionParam, 0, len(defs))

	for _, def := range defs {
		fn := def.Function
		if fn == nil {
			resolved := chat.ToolDefinitionByName(def.ToolName())
			if resolved == nil {
				return nil, fmt.Errorf("unknown tool: %q", def.ToolName())
			}
			fn = resolved.Function
		}

		toolParam := anthropic.ToolParam{
			Name: fn.Name,
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: fn.Parameters["properties"],
				Required:   toStringSlice(fn.Parameters["required"]),
			},
		}
		if fn.Description != "" {
			toolParam.Description = anthropic.String(fn.Description)
		}

		tools = append(tools, anthropic.ToolUnionParam{OfTool: &toolParam})
	}

	return tools, nil
}

// toStringSlice normalizes a schema "required" list. Built-in definitions use
// []string; custom definitions decoded from request JSON arrive as []interface{}.
func toStringSlice(v interface{}) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []interface{}:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// decodeToolInput converts the SDK's tool input payload to a plain map via a
// JSON round trip, which handles both raw-message and decoded forms.
func decodeToolInput(input interface{}) map[string]interface{} {
	raw, err := json.Marshal(input)
	if err != nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{})
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

// convertFromAnthropicResponse converts an Anthropic response to domain format.
func convertFromAnthropicResponse(msg *anthropic.Message) (*domainllm.GenerateResponse, error) {
	blocks := make([]*chat.TurnBlock, 0, len(msg.Content))

	for i, content := range msg.Content {
		switch content.Type {
		case "text":
			text := content.Text
			blocks = append(blocks, &chat.TurnBlock{
				BlockType:   chat.BlockTypeText,
				Sequence:    i,
				TextContent: &text,
			})

		case "thinking":
			thinking := content.Thinking
			contentMap := make(map[string]interface{})
			if content.Signature != "" {
				contentMap["signature"] = content.Signature
			}
			blocks = append(blocks, &chat.TurnBlock{
				BlockType:   chat.BlockTypeThinking,
				Sequence:    i,
				TextContent: &thinking,
				Content:     contentMap,
			})

		case "tool_use":
			blocks = append(blocks, &chat.TurnBlock{
				BlockType: chat.BlockTypeToolUse,
				Sequence:  i,
				Content: map[string]interface{}{
					"tool_use_id": content.ID,
					"tool_name":   content.Name,
					"input":       decodeToolInput(content.Input),
				},
			})

		// redacted_thinking and server tool blocks are dropped; nothing
		// downstream can render them
		default:
			continue
		}
	}

	responseMetadata := make(map[string]interface{})
	if msg.StopSequence != "" {
		responseMetadata["stop_sequence"] = msg.StopSequence
	}
	// Prompt-caching token counts, when the API reports them
	if msg.Usage.CacheCreationInputTokens > 0 {
		responseMetadata["cache_creation_input_tokens"] = int(msg.Usage.CacheCreationInputTokens)
	}
	if msg.Usage.CacheReadInputTokens > 0 {
		responseMetadata["cache_read_input_tokens"] = int(msg.Usage.CacheReadInputTokens)
	}

	return &domainllm.GenerateResponse{
		Content:          blocks,
		Model:            string(msg.Model),
		InputTokens:      int(msg.Usage.InputTokens),
		OutputTokens:     int(msg.Usage.OutputTokens),
		StopReason:       string(msg.StopReason),
		ResponseMetadata: responseMetadata,
	}, nil
}
