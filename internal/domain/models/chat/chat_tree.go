package chat

import "time"

// TurnTreeNode is a lightweight node in the chat's turn tree.
// Only identity and parent linkage are included; clients that need
// full turns should use pagination.
type TurnTreeNode struct {
	ID         string  `json:"id"`
	PrevTurnID *string `json:"prev_turn_id,omitempty"`
}

// ChatTree is the full branch structure of a chat in depth-first order.
// UpdatedAt reflects the chat row and lets clients validate cached trees.
type ChatTree struct {
	Turns     []TurnTreeNode `json:"turns"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// PaginatedTurnsResponse is a window of turns along the active path,
// with blocks and sibling IDs nested into each turn.
type PaginatedTurnsResponse struct {
	Turns         []Turn `json:"turns"`
	HasMoreBefore bool   `json:"has_more_before"`
	HasMoreAfter  bool   `json:"has_more_after"`
}
