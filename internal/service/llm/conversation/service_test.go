package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"atelier/internal/domain"
	"atelier/internal/domain/models/chat"
	chatRepo "atelier/internal/domain/repositories/chat"
)

// Fakes embed the repository interfaces so only the methods a test exercises
// need implementations; anything else panics loudly.

type fakeChatRepo struct {
	chatRepo.ChatRepository
	chats map[string]string // chatID → owning userID
}

func (f *fakeChatRepo) GetChat(ctx context.Context, chatID, userID string) (*chat.Chat, error) {
	owner, ok := f.chats[chatID]
	if !ok || owner != userID {
		return nil, domain.ErrNotFound
	}
	return &chat.Chat{ID: chatID, UserID: userID}, nil
}

type fakeTurnReader struct {
	chatRepo.TurnReader
	turns  map[string]*chat.Turn
	blocks map[string][]chat.TurnBlock
}

func (f *fakeTurnReader) GetTurn(ctx context.Context, turnID string) (*chat.Turn, error) {
	turn, ok := f.turns[turnID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *turn
	return &copied, nil
}

func (f *fakeTurnReader) GetTurnBlocks(ctx context.Context, turnID string) ([]chat.TurnBlock, error) {
	return f.blocks[turnID], nil
}

func (f *fakeTurnReader) GetTurnBlocksForTurns(ctx context.Context, turnIDs []string) (map[string][]chat.TurnBlock, error) {
	out := make(map[string][]chat.TurnBlock)
	for _, id := range turnIDs {
		if blocks, ok := f.blocks[id]; ok {
			out[id] = blocks
		}
	}
	return out, nil
}

type fakeTurnNavigator struct {
	chatRepo.TurnNavigator
	paths map[string][]chat.Turn
}

func (f *fakeTurnNavigator) GetTurnPath(ctx context.Context, turnID string) ([]chat.Turn, error) {
	return f.paths[turnID], nil
}

func textBlock(turnID string, seq int, text string) chat.TurnBlock {
	return chat.TurnBlock{
		TurnID:      turnID,
		BlockType:   chat.BlockTypeText,
		Sequence:    seq,
		TextContent: &text,
	}
}

func newTestService(chats *fakeChatRepo, reader *fakeTurnReader, nav *fakeTurnNavigator) *Service {
	if nav == nil {
		nav = &fakeTurnNavigator{}
	}
	return NewService(chats, reader, nav)
}

func TestGetTurnWithBlocks(t *testing.T) {
	chats := &fakeChatRepo{chats: map[string]string{"chat-1": "user-1"}}
	reader := &fakeTurnReader{
		turns: map[string]*chat.Turn{
			"turn-1": {ID: "turn-1", ChatID: "chat-1", Role: "assistant", Status: chat.TurnStatusComplete},
		},
		blocks: map[string][]chat.TurnBlock{
			"turn-1": {
				textBlock("turn-1", 0, "thinking about it"),
				textBlock("turn-1", 1, "the answer"),
			},
		},
	}
	svc := newTestService(chats, reader, nil)

	turn, err := svc.GetTurnWithBlocks(context.Background(), "turn-1", "user-1")
	if err != nil {
		t.Fatalf("GetTurnWithBlocks() error = %v", err)
	}

	want := &chat.Turn{
		ID:     "turn-1",
		ChatID: "chat-1",
		Role:   "assistant",
		Status: chat.TurnStatusComplete,
		Blocks: reader.blocks["turn-1"],
	}
	if diff := cmp.Diff(want, turn); diff != "" {
		t.Errorf("turn mismatch (-want +got):\n%s", diff)
	}
}

func TestGetTurnWithBlocksForeignUser(t *testing.T) {
	chats := &fakeChatRepo{chats: map[string]string{"chat-1": "user-1"}}
	reader := &fakeTurnReader{
		turns: map[string]*chat.Turn{
			"turn-1": {ID: "turn-1", ChatID: "chat-1"},
		},
	}
	svc := newTestService(chats, reader, nil)

	_, err := svc.GetTurnWithBlocks(context.Background(), "turn-1", "intruder")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("foreign user error = %v, want ErrNotFound", err)
	}
}

func TestGetTurnTokenUsage(t *testing.T) {
	chats := &fakeChatRepo{chats: map[string]string{"chat-1": "user-1"}}
	reader := &fakeTurnReader{
		turns: map[string]*chat.Turn{
			"done": {
				ID: "done", ChatID: "chat-1",
				Model:        strPtr("claude-haiku-4-5-20251001"),
				InputTokens:  intPtr(120),
				OutputTokens: intPtr(350),
			},
			"pending": {ID: "pending", ChatID: "chat-1"},
		},
	}
	svc := newTestService(chats, reader, nil)

	tests := []struct {
		name   string
		turnID string
		want   *chat.TokenUsage
	}{
		{
			name:   "completed turn reports counts",
			turnID: "done",
			want: &chat.TokenUsage{
				TurnID:       "done",
				Model:        "claude-haiku-4-5-20251001",
				InputTokens:  120,
				OutputTokens: 350,
			},
		},
		{
			name:   "pending turn reports zeros",
			turnID: "pending",
			want:   &chat.TokenUsage{TurnID: "pending"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usage, err := svc.GetTurnTokenUsage(context.Background(), tt.turnID, "user-1")
			if err != nil {
				t.Fatalf("GetTurnTokenUsage() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, usage); diff != "" {
				t.Errorf("usage mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetTurnPathAttachesBlocks(t *testing.T) {
	chats := &fakeChatRepo{chats: map[string]string{"chat-1": "user-1"}}
	reader := &fakeTurnReader{
		turns: map[string]*chat.Turn{
			"leaf": {ID: "leaf", ChatID: "chat-1"},
		},
		blocks: map[string][]chat.TurnBlock{
			"root": {textBlock("root", 0, "hello")},
			// leaf has no persisted blocks yet
		},
	}
	nav := &fakeTurnNavigator{
		paths: map[string][]chat.Turn{
			"leaf": {
				{ID: "root", ChatID: "chat-1"},
				{ID: "leaf", ChatID: "chat-1"},
			},
		},
	}
	svc := newTestService(chats, reader, nav)

	turns, err := svc.GetTurnPath(context.Background(), "leaf", "user-1")
	if err != nil {
		t.Fatalf("GetTurnPath() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("path length = %d, want 2", len(turns))
	}
	if len(turns[0].Blocks) != 1 {
		t.Errorf("root blocks = %d, want 1", len(turns[0].Blocks))
	}
	if turns[1].Blocks == nil || len(turns[1].Blocks) != 0 {
		t.Errorf("leaf blocks = %v, want empty non-nil slice", turns[1].Blocks)
	}
}
