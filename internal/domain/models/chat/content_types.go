package chat

import (
	"encoding/json"
	"fmt"
)

// Content type structs define the JSONB schema for each block type.
// These provide type safety and validation for the content field.

// ToolUseContent represents the content structure for tool_use blocks
type ToolUseContent struct {
	ToolUseID string                 `json:"tool_use_id"`
	ToolName  string                 `json:"tool_name"`
	Input     map[string]interface{} `json:"input"`
}

// ToolResultContent represents the content structure for tool_result blocks.
// The result text itself lives in the block's text_content column. ToolName
// is optional; providers that key results by function name (Gemini) need it.
type ToolResultContent struct {
	ToolUseID string `json:"tool_use_id"`
	ToolName  string `json:"tool_name,omitempty"`
	IsError   bool   `json:"is_error"`
}

// ThinkingContent represents the content structure for thinking blocks
// (optional provider signature)
type ThinkingContent struct {
	Signature *string `json:"signature,omitempty"`
}

// ValidateContent validates the content map against the expected schema for
// the given block type.
func ValidateContent(blockType string, content map[string]interface{}) error {
	if content == nil {
		switch blockType {
		case BlockTypeText, BlockTypeThinking:
			// Text never carries content; a thinking signature is optional.
			return nil
		case BlockTypeToolUse, BlockTypeToolResult:
			return fmt.Errorf("%s block requires content", blockType)
		default:
			return fmt.Errorf("unknown block type: %s", blockType)
		}
	}

	switch blockType {
	case BlockTypeText:
		return nil

	case BlockTypeThinking:
		return validateThinkingContent(content)

	case BlockTypeToolUse:
		return validateToolUseContent(content)

	case BlockTypeToolResult:
		return validateToolResultContent(content)

	default:
		return fmt.Errorf("unknown block type: %s", blockType)
	}
}

func validateThinkingContent(content map[string]interface{}) error {
	// No required fields, just check the shape decodes
	var thinking ThinkingContent
	return mapToStruct(content, &thinking)
}

func validateToolUseContent(content map[string]interface{}) error {
	var toolUse ToolUseContent
	if err := mapToStruct(content, &toolUse); err != nil {
		return fmt.Errorf("invalid tool_use content structure: %w", err)
	}

	if toolUse.ToolUseID == "" {
		return fmt.Errorf("tool_use_id is required")
	}
	if toolUse.ToolName == "" {
		return fmt.Errorf("tool_name is required")
	}
	if toolUse.Input == nil {
		return fmt.Errorf("input is required")
	}

	return nil
}

func validateToolResultContent(content map[string]interface{}) error {
	var toolResult ToolResultContent
	if err := mapToStruct(content, &toolResult); err != nil {
		return fmt.Errorf("invalid tool_result content structure: %w", err)
	}

	if toolResult.ToolUseID == "" {
		return fmt.Errorf("tool_use_id is required")
	}

	return nil
}

// mapToStruct converts a map to a struct through a JSON round trip, which
// applies the same field rules as the API boundary.
func mapToStruct(m map[string]interface{}, target interface{}) error {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal map: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal to struct: %w", err)
	}

	return nil
}
