package chat

import (
	"time"
)

// Block type constants
const (
	BlockTypeText       = "text"
	BlockTypeThinking   = "thinking"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

// TurnBlock is one ordered content block within a turn, accumulated from
// provider streaming deltas during generation.
//
// User blocks: text, tool_result
// Assistant blocks: text, thinking, tool_use
//
// Content stores block-type-specific structured data as JSONB:
//   - text: null (text lives in text_content)
//   - thinking: {"signature": "..."} (optional; text in text_content)
//   - tool_use: {"tool_use_id": "...", "tool_name": "...", "input": {...}}
//   - tool_result: {"tool_use_id": "...", "is_error": false}
type TurnBlock struct {
	ID          string                 `json:"id" db:"id"`
	TurnID      string                 `json:"turn_id" db:"turn_id"`
	BlockType   string                 `json:"block_type" db:"block_type"`
	Sequence    int                    `json:"sequence" db:"sequence"`
	TextContent *string                `json:"text_content,omitempty" db:"text_content"`
	Content     map[string]interface{} `json:"content,omitempty" db:"content"` // JSONB for type-specific data
	CreatedAt   time.Time              `json:"created_at" db:"created_at"`
}

// IsUserBlock returns true if this block type may appear on a user turn
func (tb *TurnBlock) IsUserBlock() bool {
	return tb.BlockType == BlockTypeText || tb.BlockType == BlockTypeToolResult
}

// IsAssistantBlock returns true if this block type may appear on an assistant turn
func (tb *TurnBlock) IsAssistantBlock() bool {
	return tb.BlockType == BlockTypeText ||
		tb.BlockType == BlockTypeThinking ||
		tb.BlockType == BlockTypeToolUse
}

// IsToolBlock returns true for tool_use and tool_result blocks
func (tb *TurnBlock) IsToolBlock() bool {
	return tb.BlockType == BlockTypeToolUse || tb.BlockType == BlockTypeToolResult
}
