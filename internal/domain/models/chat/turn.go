package chat

import (
	"time"
)

// Turn roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn statuses
const (
	TurnStatusPending   = "pending"
	TurnStatusStreaming = "streaming"
	TurnStatusComplete  = "complete"
	TurnStatusCancelled = "cancelled"
	TurnStatusError     = "error"
)

// Stop reasons, normalized across providers.
const (
	StopReasonEndTurn   = "end_turn"
	StopReasonMaxTokens = "max_tokens"
	StopReasonToolUse   = "tool_use"
)

// Turn represents a single turn in a conversation (user or assistant).
// Turns form a tree via prev_turn_id so conversations can branch; the
// "sender" of a message maps onto Role.
type Turn struct {
	ID           string     `json:"id" db:"id"`
	ChatID       string     `json:"chat_id" db:"chat_id"`
	PrevTurnID   *string    `json:"prev_turn_id,omitempty" db:"prev_turn_id"`
	Role         string     `json:"role" db:"role"`
	SystemPrompt *string    `json:"system_prompt,omitempty" db:"system_prompt"`
	Status       string     `json:"status" db:"status"`
	Error        *string    `json:"error,omitempty" db:"error"`
	Model        *string    `json:"model,omitempty" db:"model"` // model used for assistant turns
	InputTokens  *int       `json:"input_tokens,omitempty" db:"input_tokens"`
	OutputTokens *int       `json:"output_tokens,omitempty" db:"output_tokens"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	// RequestParams captures the sampling parameters the turn was requested
	// with (temperature, max_tokens, thinking budget). JSONB.
	RequestParams map[string]interface{} `json:"request_params,omitempty" db:"request_params"`

	// StopReason records why generation ended ("end_turn", "max_tokens",
	// "stop_sequence", "tool_use"). Assistant turns only.
	StopReason *string `json:"stop_reason,omitempty" db:"stop_reason"`

	// ResponseMetadata carries provider extras (cache token counts, thinking
	// tokens, provider request IDs). JSONB.
	ResponseMetadata map[string]interface{} `json:"response_metadata,omitempty" db:"response_metadata"`

	// Loaded on demand, not a column
	Blocks []TurnBlock `json:"blocks,omitempty"`

	// SiblingIDs lists alternative branches sharing this turn's prev_turn_id,
	// populated by paginated reads. Not a column.
	SiblingIDs []string `json:"sibling_ids,omitempty"`
}

// IsTerminal reports whether the turn has reached a final status.
func (t *Turn) IsTerminal() bool {
	switch t.Status {
	case TurnStatusComplete, TurnStatusCancelled, TurnStatusError:
		return true
	}
	return false
}

// TokenUsage is the per-turn usage surface.
type TokenUsage struct {
	TurnID       string `json:"turn_id"`
	Model        string `json:"model,omitempty"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}
