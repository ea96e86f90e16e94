package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"atelier/internal/domain/models/chat"
	chatRepo "atelier/internal/domain/repositories/chat"
)

// fakeTurnStore records block writes and serves persisted blocks. Embedding
// the interface keeps the fake small; unimplemented methods panic loudly.
type fakeTurnStore struct {
	chatRepo.TurnRepository
	created  []chat.TurnBlock
	upserted []chat.TurnBlock
	blocks   []chat.TurnBlock
}

func (f *fakeTurnStore) CreateTurnBlock(ctx context.Context, block *chat.TurnBlock) error {
	f.created = append(f.created, *block)
	return nil
}

func (f *fakeTurnStore) UpsertPartialTextBlock(ctx context.Context, block *chat.TurnBlock) error {
	f.upserted = append(f.upserted, *block)
	return nil
}

func (f *fakeTurnStore) GetTurnBlocks(ctx context.Context, turnID string) ([]chat.TurnBlock, error) {
	return f.blocks, nil
}

func (f *fakeTurnStore) UpdateTurnStatus(ctx context.Context, turnID, status string, turn *chat.Turn) error {
	return nil
}

func startDelta(index int, blockType, deltaType string) *chat.TurnBlockDelta {
	return &chat.TurnBlockDelta{
		BlockIndex: index,
		BlockType:  &blockType,
		DeltaType:  deltaType,
	}
}

func textDelta(index int, text string) *chat.TurnBlockDelta {
	return &chat.TurnBlockDelta{
		BlockIndex: index,
		DeltaType:  chat.DeltaTypeText,
		TextDelta:  &text,
	}
}

func TestBlockAccumulatorInterleavedBlocks(t *testing.T) {
	store := &fakeTurnStore{}
	acc := NewBlockAccumulator("turn-1", store)
	ctx := context.Background()

	// Text block at index 0, two deltas
	first := startDelta(0, chat.BlockTypeText, chat.DeltaTypeText)
	first.TextDelta = strPtrOf("Once")
	if flushed, err := acc.ProcessDelta(ctx, first); err != nil || flushed != nil {
		t.Fatalf("first delta: flushed=%v err=%v", flushed, err)
	}
	if flushed, err := acc.ProcessDelta(ctx, textDelta(0, " upon a time")); err != nil || flushed != nil {
		t.Fatalf("second delta: flushed=%v err=%v", flushed, err)
	}

	// Thinking block at index 1 flushes the text block
	thinkStart := startDelta(1, chat.BlockTypeThinking, chat.DeltaTypeThinking)
	thinkStart.TextDelta = strPtrOf("weighing options")
	flushed, err := acc.ProcessDelta(ctx, thinkStart)
	if err != nil {
		t.Fatalf("thinking start: %v", err)
	}
	wantText := &chat.TurnBlock{
		TurnID:      "turn-1",
		BlockType:   chat.BlockTypeText,
		Sequence:    0,
		TextContent: strPtrOf("Once upon a time"),
	}
	if diff := cmp.Diff(wantText, flushed); diff != "" {
		t.Errorf("text block mismatch (-want +got):\n%s", diff)
	}

	sig := &chat.TurnBlockDelta{
		BlockIndex:     1,
		DeltaType:      chat.DeltaTypeSignature,
		SignatureDelta: strPtrOf("sig-abc"),
	}
	if _, err := acc.ProcessDelta(ctx, sig); err != nil {
		t.Fatalf("signature delta: %v", err)
	}

	// Tool block at index 2 flushes the thinking block
	toolStart := startDelta(2, chat.BlockTypeToolUse, chat.DeltaTypeToolCallStart)
	toolStart.ToolCallID = strPtrOf("toolu_01")
	toolStart.ToolCallName = strPtrOf("search_library")
	flushed, err = acc.ProcessDelta(ctx, toolStart)
	if err != nil {
		t.Fatalf("tool start: %v", err)
	}
	wantThinking := &chat.TurnBlock{
		TurnID:      "turn-1",
		BlockType:   chat.BlockTypeThinking,
		Sequence:    1,
		TextContent: strPtrOf("weighing options"),
		Content:     map[string]interface{}{"signature": "sig-abc"},
	}
	if diff := cmp.Diff(wantThinking, flushed); diff != "" {
		t.Errorf("thinking block mismatch (-want +got):\n%s", diff)
	}

	// Tool input JSON arrives in fragments and must parse once assembled
	for _, fragment := range []string{`{"que`, `ry":"dragons"}`} {
		d := &chat.TurnBlockDelta{
			BlockIndex:     2,
			DeltaType:      chat.DeltaTypeInputJSON,
			InputJSONDelta: strPtrOf(fragment),
		}
		if _, err := acc.ProcessDelta(ctx, d); err != nil {
			t.Fatalf("input json delta: %v", err)
		}
	}

	final, err := acc.Finalize(ctx)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	wantTool := &chat.TurnBlock{
		TurnID:    "turn-1",
		BlockType: chat.BlockTypeToolUse,
		Sequence:  2,
		Content: map[string]interface{}{
			"tool_use_id": "toolu_01",
			"tool_name":   "search_library",
			"input":       map[string]interface{}{"query": "dragons"},
		},
	}
	if diff := cmp.Diff(wantTool, final); diff != "" {
		t.Errorf("tool block mismatch (-want +got):\n%s", diff)
	}

	if len(store.created) != 3 {
		t.Errorf("created blocks = %d, want 3", len(store.created))
	}
	if len(store.upserted) != 0 {
		t.Errorf("partial upserts = %d, want 0", len(store.upserted))
	}
	if got := acc.GetLastWrittenSequence(); got != 2 {
		t.Errorf("last written sequence = %d, want 2", got)
	}

	// A second Finalize must not write the tool block twice
	if again, err := acc.Finalize(ctx); err != nil || again != nil {
		t.Errorf("repeated Finalize: block=%v err=%v", again, err)
	}
}

func TestBlockAccumulatorPartialFlush(t *testing.T) {
	store := &fakeTurnStore{}
	acc := NewBlockAccumulator("turn-1", store)
	ctx := context.Background()

	first := startDelta(0, chat.BlockTypeText, chat.DeltaTypeText)
	first.TextDelta = strPtrOf(strings.Repeat("a", 1500))
	if _, err := acc.ProcessDelta(ctx, first); err != nil {
		t.Fatalf("first delta: %v", err)
	}
	if len(store.upserted) != 0 {
		t.Fatalf("flushed below threshold: %d upserts", len(store.upserted))
	}

	// Crossing the threshold upserts the in-progress row
	if _, err := acc.ProcessDelta(ctx, textDelta(0, strings.Repeat("b", 600))); err != nil {
		t.Fatalf("second delta: %v", err)
	}
	if len(store.upserted) != 1 {
		t.Fatalf("upserts after threshold = %d, want 1", len(store.upserted))
	}

	// The final flush reuses the upsert path so the partial row is finished
	// in place rather than inserted again.
	final, err := acc.Finalize(ctx)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if final == nil || final.TextContent == nil || len(*final.TextContent) != 2100 {
		t.Fatalf("final block = %+v, want 2100 runes of text", final)
	}
	if len(store.created) != 0 {
		t.Errorf("direct inserts = %d, want 0", len(store.created))
	}
	if len(store.upserted) != 2 {
		t.Errorf("upserts = %d, want 2", len(store.upserted))
	}
}

func TestBlockAccumulatorZeroArgumentTool(t *testing.T) {
	store := &fakeTurnStore{}
	acc := NewBlockAccumulator("turn-1", store)
	ctx := context.Background()

	toolStart := startDelta(0, chat.BlockTypeToolUse, chat.DeltaTypeToolCallStart)
	toolStart.ToolCallID = strPtrOf("toolu_02")
	toolStart.ToolCallName = strPtrOf("list_documents")
	if _, err := acc.ProcessDelta(ctx, toolStart); err != nil {
		t.Fatalf("tool start: %v", err)
	}

	final, err := acc.Finalize(ctx)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	input, ok := final.Content["input"].(map[string]interface{})
	if !ok || len(input) != 0 {
		t.Errorf("zero-argument tool input = %v, want empty object", final.Content["input"])
	}
}

func strPtrOf(s string) *string { return &s }
