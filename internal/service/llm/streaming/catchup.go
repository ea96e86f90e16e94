package streaming

import (
	"context"
	"fmt"

	"atelier/internal/domain/models/chat"
)

// CatchupEvents replays a turn from the database as SSE event strings.
//
// Used when an SSE client connects and no live executor exists: the turn
// finished and was evicted from the registry, or generation ran on another
// process. Live turns replay through TurnExecutor.HandleReconnection
// instead, which also covers the in-memory partial block.
func (s *Service) CatchupEvents(ctx context.Context, turn *chat.Turn) ([]string, error) {
	blocks, err := s.turnRepo.GetTurnBlocks(ctx, turn.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get turn blocks: %w", err)
	}

	events := make([]string, 0, len(blocks)+1)
	for i := range blocks {
		event, err := chat.NewBlockCatchupEvent(&blocks[i])
		if err != nil {
			return nil, fmt.Errorf("failed to build catchup event: %w", err)
		}
		events = append(events, event)
	}

	terminal, err := s.terminalEvent(turn)
	if err != nil {
		return nil, err
	}
	if terminal != "" {
		events = append(events, terminal)
	}

	return events, nil
}

// terminalEvent builds the closing event for a replayed turn.
func (s *Service) terminalEvent(turn *chat.Turn) (string, error) {
	switch turn.Status {
	case chat.TurnStatusComplete:
		stopReason := ""
		if turn.StopReason != nil {
			stopReason = *turn.StopReason
		}
		inputTokens, outputTokens := 0, 0
		if turn.InputTokens != nil {
			inputTokens = *turn.InputTokens
		}
		if turn.OutputTokens != nil {
			outputTokens = *turn.OutputTokens
		}
		return chat.NewTurnCompleteEvent(turn.ID, stopReason, inputTokens, outputTokens, turn.ResponseMetadata)

	case chat.TurnStatusError:
		errorMsg := "generation failed"
		if turn.Error != nil && *turn.Error != "" {
			errorMsg = *turn.Error
		}
		return chat.NewTurnErrorEvent(turn.ID, errorMsg, nil)

	case chat.TurnStatusCancelled:
		return chat.NewTurnCancelledEvent(turn.ID, nil)

	default:
		// Pending or streaming with no executor: generation died with the
		// process that ran it. Tell the client instead of leaving the
		// stream open forever.
		return chat.NewTurnErrorEvent(turn.ID, "generation did not complete", nil)
	}
}
