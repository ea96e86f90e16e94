package chat

// Delta type constants for streaming events
const (
	DeltaTypeText          = "text_delta"       // Regular text content
	DeltaTypeThinking      = "thinking_delta"   // Thinking/reasoning text
	DeltaTypeSignature     = "signature_delta"  // Thinking signature (Anthropic extended thinking)
	DeltaTypeToolCallStart = "tool_call_start"  // Tool call initiated (name, id)
	DeltaTypeInputJSON     = "input_json_delta" // Incremental tool input JSON
)

// TurnBlockDelta is an incremental update to a turn block during streaming.
// Deltas are ephemeral: the accumulator folds them into TurnBlocks in memory
// and only complete blocks reach the database.
//
// Flow:
//  1. Provider streams its native events
//  2. Provider adapter converts them to TurnBlockDelta
//  3. BlockAccumulator accumulates; on block index change the finished block
//     is written as a TurnBlock
//  4. Each delta is also broadcast to SSE clients
//
// BlockType is set only on the first delta of a block, which doubles as the
// block_start signal; it is nil on subsequent deltas for the same block.
type TurnBlockDelta struct {
	// BlockIndex identifies which block this delta belongs to (0-indexed).
	// Matches the Sequence field in TurnBlock.
	BlockIndex int `json:"block_index"`

	// BlockType is "text", "thinking" or "tool_use"; set only on block start.
	BlockType *string `json:"block_type,omitempty"`

	// DeltaType is one of the DeltaType* constants.
	DeltaType string `json:"delta_type"`

	// TextDelta carries incremental text (text and thinking blocks).
	TextDelta *string `json:"text_delta,omitempty"`

	// SignatureDelta carries incremental thinking signature material.
	SignatureDelta *string `json:"signature_delta,omitempty"`

	// InputJSONDelta carries incremental JSON for tool input (tool_use blocks).
	InputJSONDelta *string `json:"input_json_delta,omitempty"`

	// ToolCallID and ToolCallName are set on tool_call_start.
	ToolCallID   *string `json:"tool_call_id,omitempty"`
	ToolCallName *string `json:"tool_call_name,omitempty"`
}

// IsTextDelta returns true if this delta carries text content
func (d *TurnBlockDelta) IsTextDelta() bool {
	return (d.DeltaType == DeltaTypeText || d.DeltaType == DeltaTypeThinking) && d.TextDelta != nil
}

// IsInputJSONDelta returns true if this delta carries tool input JSON
func (d *TurnBlockDelta) IsInputJSONDelta() bool {
	return d.DeltaType == DeltaTypeInputJSON && d.InputJSONDelta != nil
}

// IsBlockStart returns true if this delta opens a new block
func (d *TurnBlockDelta) IsBlockStart() bool {
	return d.BlockType != nil
}

// IsSignatureDelta returns true if this delta carries signature content
func (d *TurnBlockDelta) IsSignatureDelta() bool {
	return d.DeltaType == DeltaTypeSignature && d.SignatureDelta != nil
}
