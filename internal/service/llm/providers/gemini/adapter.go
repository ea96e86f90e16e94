package gemini

import (
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"atelier/internal/domain/models/chat"
	domainllm "atelier/internal/domain/services/llm"
)

// convertToGeminiContents converts domain messages to genai Content.
//
// Role mapping: user → "user", assistant → "model". Block mapping:
//   - text        → text part
//   - thinking    → thought part (signature restored from content JSONB)
//   - tool_use    → function call part
//   - tool_result → function response part
func convertToGeminiContents(messages []domainllm.Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))

	for i, msg := range messages {
		var role genai.Role
		switch msg.Role {
		case "user":
			role = genai.RoleUser
		case "assistant":
			role = genai.RoleModel
		default:
			return nil, fmt.Errorf("message %d: unsupported role '%s'", i, msg.Role)
		}

		parts := make([]*genai.Part, 0, len(msg.Content))

		for _, block := range msg.Content {
			switch block.BlockType {
			case chat.BlockTypeText:
				if block.TextContent == nil {
					return nil, fmt.Errorf("message %d: text block missing text_content", i)
				}
				parts = append(parts, &genai.Part{Text: *block.TextContent})

			case chat.BlockTypeThinking:
				if block.TextContent == nil {
					continue
				}
				part := &genai.Part{Text: *block.TextContent, Thought: true}
				if sig, ok := block.Content["signature"].(string); ok && sig != "" {
					if raw, err := base64.StdEncoding.DecodeString(sig); err == nil {
						part.ThoughtSignature = raw
					}
				}
				parts = append(parts, part)

			case chat.BlockTypeToolUse:
				toolName, _ := block.Content["tool_name"].(string)
				if toolName == "" {
					return nil, fmt.Errorf("message %d: tool_use block missing tool_name", i)
				}
				toolUseID, _ := block.Content["tool_use_id"].(string)
				args, _ := block.Content["input"].(map[string]interface{})
				if args == nil {
					args = map[string]interface{}{}
				}
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   toolUseID,
						Name: toolName,
						Args: args,
					},
				})

			case chat.BlockTypeToolResult:
				toolName, _ := block.Content["tool_name"].(string)
				toolUseID, _ := block.Content["tool_use_id"].(string)
				text := ""
				if block.TextContent != nil {
					text = *block.TextContent
				}
				response := map[string]interface{}{"result": text}
				if isError, _ := block.Content["is_error"].(bool); isError {
					response = map[string]interface{}{"error": text}
				}
				parts = append(parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:       toolUseID,
						Name:     toolName,
						Response: response,
					},
				})
			}
		}

		if len(parts) == 0 {
			continue
		}

		contents = append(contents, &genai.Content{Role: string(role), Parts: parts})
	}

	return contents, nil
}

// convertTools maps OpenAI-format tool definitions to genai declarations.
func convertTools(defs []chat.ToolDefinition) ([]*genai.Tool, error) {
	declarations := make([]*genai.FunctionDeclaration, 0, len(defs))

	for _, def := range defs {
		fn := def.Function
		if fn == nil {
			resolved := chat.ToolDefinitionByName(def.ToolName())
			if resolved == nil {
				return nil, fmt.Errorf("unknown tool: %q", def.ToolName())
			}
			fn = resolved.Function
		}

		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        fn.Name,
			Description: fn.Description,
			Parameters:  convertSchema(fn.Parameters),
		})
	}

	return []*genai.Tool{{FunctionDeclarations: declarations}}, nil
}

// convertSchema maps the JSON-schema subset our tools use to genai.Schema.
func convertSchema(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{}

	if t, ok := schema["type"].(string); ok {
		switch t {
		case "object":
			out.Type = genai.TypeObject
		case "string":
			out.Type = genai.TypeString
		case "integer":
			out.Type = genai.TypeInteger
		case "number":
			out.Type = genai.TypeNumber
		case "boolean":
			out.Type = genai.TypeBoolean
		case "array":
			out.Type = genai.TypeArray
		}
	}

	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}

	switch enum := schema["enum"].(type) {
	case []string:
		out.Enum = enum
	case []interface{}:
		for _, v := range enum {
			if s, ok := v.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	}

	if props, ok := schema["properties"].(map[string]interface{}); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]interface{}); ok {
				out.Properties[name] = convertSchema(propMap)
			}
		}
	}

	switch required := schema["required"].(type) {
	case []string:
		out.Required = required
	case []interface{}:
		for _, v := range required {
			if s, ok := v.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}

	if items, ok := schema["items"].(map[string]interface{}); ok {
		out.Items = convertSchema(items)
	}

	return out
}

// mapFinishReason translates genai finish reasons to our stop reasons.
func mapFinishReason(reason genai.FinishReason) string {
	switch reason {
	case genai.FinishReasonStop:
		return "end_turn"
	case genai.FinishReasonMaxTokens:
		return "max_tokens"
	case "":
		return "end_turn"
	default:
		return string(reason)
	}
}

// convertFromGeminiResponse converts a complete generation to domain format.
func convertFromGeminiResponse(resp *genai.GenerateContentResponse, model string) (*domainllm.GenerateResponse, error) {
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	blocks := make([]*chat.TurnBlock, 0)

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				blocks = append(blocks, &chat.TurnBlock{
					BlockType: chat.BlockTypeToolUse,
					Sequence:  len(blocks),
					Content: map[string]interface{}{
						"tool_use_id": functionCallID(part.FunctionCall),
						"tool_name":   part.FunctionCall.Name,
						"input":       functionCallArgs(part.FunctionCall),
					},
				})

			case part.Thought:
				text := part.Text
				contentMap := make(map[string]interface{})
				if len(part.ThoughtSignature) > 0 {
					contentMap["signature"] = base64.StdEncoding.EncodeToString(part.ThoughtSignature)
				}
				block := &chat.TurnBlock{
					BlockType:   chat.BlockTypeThinking,
					Sequence:    len(blocks),
					TextContent: &text,
				}
				if len(contentMap) > 0 {
					block.Content = contentMap
				}
				blocks = append(blocks, block)

			case part.Text != "":
				text := part.Text
				blocks = append(blocks, &chat.TurnBlock{
					BlockType:   chat.BlockTypeText,
					Sequence:    len(blocks),
					TextContent: &text,
				})
			}
		}
	}

	response := &domainllm.GenerateResponse{
		Content:          blocks,
		Model:            model,
		StopReason:       mapFinishReason(candidate.FinishReason),
		ResponseMetadata: map[string]interface{}{},
	}

	if resp.UsageMetadata != nil {
		response.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		response.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		if resp.UsageMetadata.ThoughtsTokenCount > 0 {
			response.ResponseMetadata["thoughts_token_count"] = int(resp.UsageMetadata.ThoughtsTokenCount)
		}
	}

	return response, nil
}

// functionCallArgs returns a non-nil args map for a function call.
func functionCallArgs(fc *genai.FunctionCall) map[string]interface{} {
	if fc.Args == nil {
		return map[string]interface{}{}
	}
	return fc.Args
}

// functionCallID returns the call ID, synthesizing one when the API omits it.
// Tool results must reference an ID, so every call gets one.
func functionCallID(fc *genai.FunctionCall) string {
	if fc.ID != "" {
		return fc.ID
	}
	return "fc-" + uuid.NewString()
}
