package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"
)

// fakeTool is a configurable ToolExecutor for registry tests.
type fakeTool struct {
	name     string
	delay    time.Duration
	failWith error
	mu       sync.Mutex
	calls    int
}

func (f *fakeTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.failWith != nil {
		return nil, f.failWith
	}

	return map[string]interface{}{
		"tool":  f.name,
		"input": input,
	}, nil
}

func (f *fakeTool) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestToolRegistry_RegisterAndGet(t *testing.T) {
	registry := NewToolRegistry()
	tool := &fakeTool{name: "view_document"}

	registry.Register("view_document", tool)

	if got := registry.Get("view_document"); got != tool {
		t.Errorf("Get returned %v, want registered instance", got)
	}
	if got := registry.Get("unregistered"); got != nil {
		t.Errorf("Get for unregistered name returned %v, want nil", got)
	}
}

func TestToolRegistry_Names(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register("view_document", &fakeTool{name: "view_document"})
	registry.Register("search_documents", &fakeTool{name: "search_documents"})

	names := registry.Names()
	sort.Strings(names)

	want := []string{"search_documents", "view_document"}
	if len(names) != len(want) {
		t.Fatalf("Names returned %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestToolRegistry_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		registry := NewToolRegistry()
		registry.Register("view_document", &fakeTool{name: "view_document"})

		result := registry.Execute(ctx, ToolCall{
			ID:    "call_1",
			Name:  "view_document",
			Input: map[string]interface{}{"path": "/notes.md"},
		})

		if result.IsError {
			t.Fatalf("unexpected error: %v", result.Error)
		}
		if result.ID != "call_1" {
			t.Errorf("result ID = %q, want call_1", result.ID)
		}
		if result.Result == nil {
			t.Error("expected non-nil result payload")
		}
	})

	t.Run("tool not found", func(t *testing.T) {
		registry := NewToolRegistry()

		result := registry.Execute(ctx, ToolCall{ID: "call_2", Name: "no_such_tool"})

		if !result.IsError || result.Error == nil {
			t.Fatal("expected error result for unregistered tool")
		}
		if result.ID != "call_2" {
			t.Errorf("result ID = %q, want call_2", result.ID)
		}
	})

	t.Run("executor failure becomes error result", func(t *testing.T) {
		registry := NewToolRegistry()
		registry.Register("flaky", &fakeTool{name: "flaky", failWith: errors.New("boom")})

		result := registry.Execute(ctx, ToolCall{ID: "call_3", Name: "flaky"})

		if !result.IsError || result.Error == nil {
			t.Fatal("expected error result for failing executor")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		registry := NewToolRegistry()
		registry.Register("slow", &fakeTool{name: "slow", delay: 500 * time.Millisecond})

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		result := registry.Execute(cancelled, ToolCall{ID: "call_4", Name: "slow"})

		if !result.IsError {
			t.Fatal("expected error result for cancelled context")
		}
		if !errors.Is(result.Error, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", result.Error)
		}
	})
}

func TestToolRegistry_ExecuteParallel(t *testing.T) {
	t.Run("no calls", func(t *testing.T) {
		registry := NewToolRegistry()
		if results := registry.ExecuteParallel(context.Background(), nil); len(results) != 0 {
			t.Errorf("got %d results, want 0", len(results))
		}
	})

	t.Run("results keep call order", func(t *testing.T) {
		registry := NewToolRegistry()

		// Stagger delays so completion order differs from call order.
		delays := []time.Duration{50 * time.Millisecond, 10 * time.Millisecond, 100 * time.Millisecond}
		for i, delay := range delays {
			name := fmt.Sprintf("tool_%d", i)
			registry.Register(name, &fakeTool{name: name, delay: delay})
		}

		calls := []ToolCall{
			{ID: "call_0", Name: "tool_0"},
			{ID: "call_1", Name: "tool_1"},
			{ID: "call_2", Name: "tool_2"},
		}

		results := registry.ExecuteParallel(context.Background(), calls)
		if len(results) != 3 {
			t.Fatalf("got %d results, want 3", len(results))
		}
		for i, result := range results {
			if want := fmt.Sprintf("call_%d", i); result.ID != want {
				t.Errorf("result %d ID = %q, want %q", i, result.ID, want)
			}
			if result.IsError {
				t.Errorf("result %d errored: %v", i, result.Error)
			}
			payload, ok := result.Result.(map[string]interface{})
			if !ok {
				t.Errorf("result %d payload is %T, want map", i, result.Result)
				continue
			}
			if want := fmt.Sprintf("tool_%d", i); payload["tool"] != want {
				t.Errorf("result %d ran %v, want %s", i, payload["tool"], want)
			}
		}
	})

	t.Run("calls run concurrently", func(t *testing.T) {
		registry := NewToolRegistry()
		calls := make([]ToolCall, 3)
		for i := range calls {
			name := fmt.Sprintf("tool_%d", i)
			registry.Register(name, &fakeTool{name: name, delay: 100 * time.Millisecond})
			calls[i] = ToolCall{ID: fmt.Sprintf("call_%d", i), Name: name}
		}

		start := time.Now()
		results := registry.ExecuteParallel(context.Background(), calls)
		elapsed := time.Since(start)

		// Serial execution would need ~300ms.
		if elapsed > 250*time.Millisecond {
			t.Errorf("parallel execution took %v, want well under serial time", elapsed)
		}
		for i, result := range results {
			if result.IsError {
				t.Errorf("result %d errored: %v", i, result.Error)
			}
		}
	})

	t.Run("cancellation marks all results", func(t *testing.T) {
		registry := NewToolRegistry()
		calls := make([]ToolCall, 3)
		for i := range calls {
			name := fmt.Sprintf("tool_%d", i)
			registry.Register(name, &fakeTool{name: name, delay: 500 * time.Millisecond})
			calls[i] = ToolCall{ID: fmt.Sprintf("call_%d", i), Name: name}
		}

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		for i, result := range registry.ExecuteParallel(cancelled, calls) {
			if !result.IsError {
				t.Errorf("result %d should carry a cancellation error", i)
			}
			if result.Error != nil && !errors.Is(result.Error, context.Canceled) {
				t.Errorf("result %d error = %v, want context.Canceled", i, result.Error)
			}
		}
	})

	t.Run("mixed outcomes", func(t *testing.T) {
		registry := NewToolRegistry()
		registry.Register("ok", &fakeTool{name: "ok"})
		registry.Register("broken", &fakeTool{name: "broken", failWith: errors.New("boom")})

		results := registry.ExecuteParallel(context.Background(), []ToolCall{
			{ID: "call_0", Name: "ok"},
			{ID: "call_1", Name: "broken"},
			{ID: "call_2", Name: "missing"},
			{ID: "call_3", Name: "ok"},
		})

		wantErr := []bool{false, true, true, false}
		for i, result := range results {
			if result.IsError != wantErr[i] {
				t.Errorf("result %d IsError = %v, want %v (err: %v)", i, result.IsError, wantErr[i], result.Error)
			}
		}
	})

	t.Run("many concurrent calls on one executor", func(t *testing.T) {
		registry := NewToolRegistry()
		tool := &fakeTool{name: "shared"}
		registry.Register("shared", tool)

		const n = 100
		calls := make([]ToolCall, n)
		for i := range calls {
			calls[i] = ToolCall{
				ID:    fmt.Sprintf("call_%d", i),
				Name:  "shared",
				Input: map[string]interface{}{"index": i},
			}
		}

		results := registry.ExecuteParallel(context.Background(), calls)
		if len(results) != n {
			t.Fatalf("got %d results, want %d", len(results), n)
		}
		for i, result := range results {
			if result.IsError {
				t.Errorf("result %d errored: %v", i, result.Error)
			}
		}
		if got := tool.callCount(); got != n {
			t.Errorf("executor ran %d times, want %d", got, n)
		}
	})
}

func TestToolRegistry_ConcurrentRegisterAndGet(t *testing.T) {
	registry := NewToolRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(index int) {
			defer wg.Done()
			name := fmt.Sprintf("tool_%d", index)
			registry.Register(name, &fakeTool{name: name})
		}(i)
		go func(index int) {
			defer wg.Done()
			_ = registry.Get(fmt.Sprintf("tool_%d", index))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		if registry.Get(fmt.Sprintf("tool_%d", i)) == nil {
			t.Errorf("tool_%d missing after concurrent registration", i)
		}
	}
}
