package chat

import (
	"encoding/json"
	"fmt"
)

// SSE event type constants
const (
	SSEEventTurnStart    = "turn_start"    // Turn streaming has begun
	SSEEventBlockStart   = "block_start"   // New block started
	SSEEventBlockDelta   = "block_delta"   // Incremental block content
	SSEEventBlockStop    = "block_stop"    // Block finished
	SSEEventBlockCatchup = "block_catchup" // Replaying completed block (reconnection)
	SSEEventTurnComplete = "turn_complete" // Turn finished successfully
	SSEEventTurnError    = "turn_error"    // Turn encountered error
)

// TurnStartEvent signals that streaming has begun for a turn
type TurnStartEvent struct {
	TurnID string `json:"turn_id"`
	Model  string `json:"model"`
}

// BlockStartEvent signals that a new block has started
type BlockStartEvent struct {
	BlockIndex int     `json:"block_index"`
	BlockType  *string `json:"block_type,omitempty"`
}

// BlockDeltaEvent carries incremental content for the current block
type BlockDeltaEvent struct {
	BlockIndex     int     `json:"block_index"`
	DeltaType      string  `json:"delta_type"`
	TextDelta      *string `json:"text_delta,omitempty"`
	SignatureDelta *string `json:"signature_delta,omitempty"`
	JSONDelta      *string `json:"json_delta,omitempty"` // incremental tool input JSON
}

// BlockStopEvent signals that a block has finished
type BlockStopEvent struct {
	BlockIndex int `json:"block_index"`
}

// BlockCatchupEvent replays a completed block so reconnecting clients can
// rebuild state they missed.
type BlockCatchupEvent struct {
	Block TurnBlock `json:"block"`
}

// TurnCompleteEvent signals that the turn finished successfully
type TurnCompleteEvent struct {
	TurnID           string                 `json:"turn_id"`
	StopReason       string                 `json:"stop_reason"` // "end_turn", "max_tokens", "stop_sequence", "tool_use"
	InputTokens      int                    `json:"input_tokens"`
	OutputTokens     int                    `json:"output_tokens"`
	ResponseMetadata map[string]interface{} `json:"response_metadata,omitempty"`
}

// TurnErrorEvent signals that the turn encountered an error
type TurnErrorEvent struct {
	TurnID         string `json:"turn_id"`
	Error          string `json:"error"`
	IsCancelled    bool   `json:"is_cancelled,omitempty"`     // user interrupt, not a failure
	LastBlockIndex *int   `json:"last_block_index,omitempty"` // last successfully written block, if any
}

// FormatSSE renders one event in wire format:
//
//	event: event_name
//	data: {"field": "value"}
//	<blank line>
func FormatSSE(eventType string, data interface{}) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal SSE event data: %w", err)
	}

	return fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, string(jsonData)), nil
}

// NewTurnStartEvent creates a turn_start SSE event
func NewTurnStartEvent(turnID, model string) (string, error) {
	return FormatSSE(SSEEventTurnStart, TurnStartEvent{
		TurnID: turnID,
		Model:  model,
	})
}

// NewBlockStartEvent creates a block_start SSE event
func NewBlockStartEvent(blockIndex int, blockType *string) (string, error) {
	return FormatSSE(SSEEventBlockStart, BlockStartEvent{
		BlockIndex: blockIndex,
		BlockType:  blockType,
	})
}

// NewBlockDeltaEvent creates a block_delta SSE event from a streaming delta
func NewBlockDeltaEvent(delta *TurnBlockDelta) (string, error) {
	return FormatSSE(SSEEventBlockDelta, BlockDeltaEvent{
		BlockIndex:     delta.BlockIndex,
		DeltaType:      delta.DeltaType,
		TextDelta:      delta.TextDelta,
		SignatureDelta: delta.SignatureDelta,
		JSONDelta:      delta.InputJSONDelta,
	})
}

// NewBlockStopEvent creates a block_stop SSE event
func NewBlockStopEvent(blockIndex int) (string, error) {
	return FormatSSE(SSEEventBlockStop, BlockStopEvent{
		BlockIndex: blockIndex,
	})
}

// NewBlockCatchupEvent creates a block_catchup SSE event
func NewBlockCatchupEvent(block *TurnBlock) (string, error) {
	return FormatSSE(SSEEventBlockCatchup, BlockCatchupEvent{
		Block: *block,
	})
}

// NewTurnCompleteEvent creates a turn_complete SSE event
func NewTurnCompleteEvent(turnID, stopReason string, inputTokens, outputTokens int, metadata map[string]interface{}) (string, error) {
	return FormatSSE(SSEEventTurnComplete, TurnCompleteEvent{
		TurnID:           turnID,
		StopReason:       stopReason,
		InputTokens:      inputTokens,
		OutputTokens:     outputTokens,
		ResponseMetadata: metadata,
	})
}

// NewTurnErrorEvent creates a turn_error SSE event
func NewTurnErrorEvent(turnID, errorMsg string, lastBlockIndex *int) (string, error) {
	return FormatSSE(SSEEventTurnError, TurnErrorEvent{
		TurnID:         turnID,
		Error:          errorMsg,
		LastBlockIndex: lastBlockIndex,
	})
}

// NewTurnCancelledEvent creates a turn_error SSE event flagged as a cancellation
func NewTurnCancelledEvent(turnID string, lastBlockIndex *int) (string, error) {
	return FormatSSE(SSEEventTurnError, TurnErrorEvent{
		TurnID:         turnID,
		Error:          "generation interrupted",
		IsCancelled:    true,
		LastBlockIndex: lastBlockIndex,
	})
}
