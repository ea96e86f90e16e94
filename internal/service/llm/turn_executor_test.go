package llm

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"atelier/internal/domain/models/chat"
	domainllm "atelier/internal/domain/services/llm"
)

func newTestExecutor(store *fakeTurnStore) *TurnExecutor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTurnExecutor(context.Background(), "turn-1", "lorem-fast", store, nil, nil, nil, logger)
}

// drainClient reads events until the channel closes, returning what was
// received. Fails the test if the channel never closes.
func drainClient(t *testing.T, events <-chan string) []string {
	t.Helper()

	var got []string
	timeout := time.After(time.Second)
	for {
		select {
		case event, open := <-events:
			if !open {
				return got
			}
			got = append(got, event)
		case <-timeout:
			t.Fatal("client channel never closed")
		}
	}
}

// A client attaching to a retained executor after cancellation receives
// catchup plus the terminal event, and the handler's RemoveClient afterwards
// must be a harmless no-op rather than a second close.
func TestReconnectAfterCancellationThenRemove(t *testing.T) {
	store := &fakeTurnStore{
		blocks: []chat.TurnBlock{
			{TurnID: "turn-1", BlockType: chat.BlockTypeText, Sequence: 0, TextContent: strPtrOf("partial answer")},
		},
	}
	exec := newTestExecutor(store)
	exec.Interrupt()

	events := exec.AddClient("client-1")
	if err := exec.HandleReconnection(context.Background(), "client-1"); err != nil {
		t.Fatalf("HandleReconnection() error = %v", err)
	}

	got := drainClient(t, events)
	if len(got) != 2 {
		t.Fatalf("events = %d, want catchup + terminal", len(got))
	}
	if !strings.Contains(got[0], "block_catchup") {
		t.Errorf("first event = %q, want block_catchup", got[0])
	}
	if !strings.Contains(got[1], "generation interrupted") {
		t.Errorf("terminal event = %q, want cancellation", got[1])
	}

	// Stream handlers always remove their client on the way out
	exec.RemoveClient("client-1")
	exec.RemoveClient("client-1")
}

func TestReconnectAfterCompletion(t *testing.T) {
	store := &fakeTurnStore{}
	exec := newTestExecutor(store)
	exec.statusMu.Lock()
	exec.status = chat.TurnStatusComplete
	exec.statusMu.Unlock()
	exec.metadataMu.Lock()
	exec.metadata = &domainllm.StreamMetadata{StopReason: chat.StopReasonEndTurn, InputTokens: 10, OutputTokens: 25}
	exec.metadataMu.Unlock()

	events := exec.AddClient("client-1")
	if err := exec.HandleReconnection(context.Background(), "client-1"); err != nil {
		t.Fatalf("HandleReconnection() error = %v", err)
	}

	got := drainClient(t, events)
	if len(got) != 1 || !strings.Contains(got[0], "turn_complete") {
		t.Errorf("events = %v, want a single turn_complete", got)
	}

	exec.RemoveClient("client-1")
}

// Catchup for a client that was already closed out (the executor finished
// and closed every channel mid-catchup) stops cleanly instead of sending on
// a closed channel.
func TestReconnectAfterClientsClosed(t *testing.T) {
	store := &fakeTurnStore{
		blocks: []chat.TurnBlock{
			{TurnID: "turn-1", BlockType: chat.BlockTypeText, Sequence: 0, TextContent: strPtrOf("done")},
		},
	}
	exec := newTestExecutor(store)
	exec.Interrupt()

	exec.AddClient("client-1")
	exec.closeAllClients()

	if err := exec.HandleReconnection(context.Background(), "client-1"); err != nil {
		t.Fatalf("HandleReconnection() after close error = %v", err)
	}

	exec.RemoveClient("client-1")
}
