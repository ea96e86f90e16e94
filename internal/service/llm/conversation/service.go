// Package conversation loads turn history and converts it into provider
// messages.
package conversation

import (
	"context"

	"atelier/internal/domain/models/chat"
	chatRepo "atelier/internal/domain/repositories/chat"
)

// Service handles conversation history and navigation reads.
type Service struct {
	chatRepo      chatRepo.ChatRepository
	turnReader    chatRepo.TurnReader
	turnNavigator chatRepo.TurnNavigator
}

// NewService creates a new conversation service.
func NewService(
	chats chatRepo.ChatRepository,
	turnReader chatRepo.TurnReader,
	turnNavigator chatRepo.TurnNavigator,
) *Service {
	return &Service{
		chatRepo:      chats,
		turnReader:    turnReader,
		turnNavigator: turnNavigator,
	}
}

// GetTurnPath retrieves the conversation path from the root to a turn, with
// blocks attached. Blocks load in one batch query rather than per turn.
// Scoped to the user: a turn in someone else's chat reads as not found.
func (s *Service) GetTurnPath(ctx context.Context, turnID, userID string) ([]chat.Turn, error) {
	if err := s.authorizeTurn(ctx, turnID, userID); err != nil {
		return nil, err
	}

	turns, err := s.turnNavigator.GetTurnPath(ctx, turnID)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return turns, nil
	}

	turnIDs := make([]string, len(turns))
	for i, turn := range turns {
		turnIDs[i] = turn.ID
	}

	blocksByTurn, err := s.turnReader.GetTurnBlocksForTurns(ctx, turnIDs)
	if err != nil {
		return nil, err
	}

	for i := range turns {
		if blocks, ok := blocksByTurn[turns[i].ID]; ok {
			turns[i].Blocks = blocks
		} else {
			turns[i].Blocks = []chat.TurnBlock{}
		}
	}

	return turns, nil
}

// GetTurnSiblings retrieves all sibling turns (including self) with blocks.
// Scoped to the user like GetTurnPath.
func (s *Service) GetTurnSiblings(ctx context.Context, turnID, userID string) ([]chat.Turn, error) {
	if err := s.authorizeTurn(ctx, turnID, userID); err != nil {
		return nil, err
	}
	return s.turnNavigator.GetTurnSiblings(ctx, turnID)
}

// authorizeTurn resolves a turn to its chat and checks the chat belongs to
// the user. The user-scoped chat lookup returns not-found for foreign chats,
// so callers never learn whether the turn exists.
func (s *Service) authorizeTurn(ctx context.Context, turnID, userID string) error {
	turn, err := s.turnReader.GetTurn(ctx, turnID)
	if err != nil {
		return err
	}
	if _, err := s.chatRepo.GetChat(ctx, turn.ChatID, userID); err != nil {
		return err
	}
	return nil
}

// GetTurnWithBlocks retrieves one turn with its persisted blocks attached.
// Clients use it to fetch completed content before attaching to the SSE
// stream of an in-flight turn.
func (s *Service) GetTurnWithBlocks(ctx context.Context, turnID, userID string) (*chat.Turn, error) {
	if err := s.authorizeTurn(ctx, turnID, userID); err != nil {
		return nil, err
	}

	turn, err := s.turnReader.GetTurn(ctx, turnID)
	if err != nil {
		return nil, err
	}

	blocks, err := s.turnReader.GetTurnBlocks(ctx, turnID)
	if err != nil {
		return nil, err
	}
	turn.Blocks = blocks

	return turn, nil
}

// GetTurnTokenUsage reports the recorded token counts for a turn. Turns that
// have not completed report zeros.
func (s *Service) GetTurnTokenUsage(ctx context.Context, turnID, userID string) (*chat.TokenUsage, error) {
	if err := s.authorizeTurn(ctx, turnID, userID); err != nil {
		return nil, err
	}

	turn, err := s.turnReader.GetTurn(ctx, turnID)
	if err != nil {
		return nil, err
	}

	usage := &chat.TokenUsage{TurnID: turn.ID}
	if turn.Model != nil {
		usage.Model = *turn.Model
	}
	if turn.InputTokens != nil {
		usage.InputTokens = *turn.InputTokens
	}
	if turn.OutputTokens != nil {
		usage.OutputTokens = *turn.OutputTokens
	}

	return usage, nil
}

// GetChatTree retrieves the lightweight tree structure for cache validation.
func (s *Service) GetChatTree(ctx context.Context, chatID, userID string) (*chat.ChatTree, error) {
	return s.chatRepo.GetChatTree(ctx, chatID, userID)
}

// GetPaginatedTurns retrieves turns and blocks along a conversation path.
func (s *Service) GetPaginatedTurns(ctx context.Context, chatID, userID string, fromTurnID *string, limit int, direction string, updateLastViewed bool) (*chat.PaginatedTurnsResponse, error) {
	return s.turnNavigator.GetPaginatedTurns(ctx, chatID, userID, fromTurnID, limit, direction, updateLastViewed)
}
