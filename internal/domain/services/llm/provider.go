package llm

import (
	"context"

	"atelier/internal/domain/models/chat"
)

// LLMProvider is the contract every model provider implements.
// The abstraction keeps the streaming orchestrator and the studio service
// independent of any vendor SDK; providers translate between these types and
// their wire formats.
type LLMProvider interface {
	// GenerateResponse performs a blocking completion and returns the full
	// response. Used by studio endpoints and internal tooling.
	GenerateResponse(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// StreamResponse starts a streaming completion. The returned channel
	// yields block deltas as they arrive and closes after a final metadata
	// event (or an error event). The provider stops streaming when ctx is
	// cancelled.
	StreamResponse(ctx context.Context, req *GenerateRequest) (<-chan StreamEvent, error)

	// Name returns the provider name (e.g., "anthropic", "gemini")
	Name() string

	// SupportsModel returns true if the provider supports the given model.
	SupportsModel(model string) bool
}

// GenerateRequest contains the parameters for a generation request.
type GenerateRequest struct {
	// Messages contains the conversation history, oldest first.
	Messages []Message `json:"messages"`

	// Model is the bare model identifier (e.g., "claude-haiku-4-5-20251001")
	Model string `json:"model"`

	// Params carries the sampling parameters (temperature, max_tokens,
	// thinking settings, tools). Providers extract what they support.
	Params *chat.RequestParams `json:"params,omitempty"`
}

// Message represents a single message in the conversation.
type Message struct {
	// Role is either "user" or "assistant"
	Role string `json:"role"`

	// Content is the list of blocks for this message
	Content []*chat.TurnBlock `json:"content"`
}

// GenerateResponse contains a provider's complete response.
type GenerateResponse struct {
	// Content is the list of blocks returned by the provider
	Content []*chat.TurnBlock

	// Model is the model that was used (may differ from request if aliased)
	Model string

	InputTokens  int
	OutputTokens int

	// StopReason indicates why generation stopped (e.g., "end_turn", "max_tokens")
	StopReason string

	// ResponseMetadata contains provider-specific response data, e.g.
	// stop_sequence or cache token counts. Persisted as JSONB on the turn.
	ResponseMetadata map[string]interface{}
}

// StreamEvent is one item on a provider stream. Exactly one of the fields is
// set; empty events are legal and ignored by consumers.
type StreamEvent struct {
	// Delta is an incremental block update.
	Delta *chat.TurnBlockDelta

	// Metadata arrives once, after the last delta.
	Metadata *StreamMetadata

	// Error terminates the stream.
	Error error
}

// StreamMetadata is the final accounting for a completed stream.
type StreamMetadata struct {
	Model            string
	InputTokens      int
	OutputTokens     int
	StopReason       string
	ResponseMetadata map[string]interface{}
}
