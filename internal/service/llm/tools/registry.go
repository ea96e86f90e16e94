package tools

import (
	"context"
	"fmt"
	"sync"
)

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID    string                 `json:"id"`    // tool_use_id from the provider
	Name  string                 `json:"name"`  // registered tool name
	Input map[string]interface{} `json:"input"` // tool parameters
}

// ToolResult is the outcome of one tool execution. Result holds the raw
// structured output; Error/IsError mark failures. Failed tools produce error
// results, never abort the turn.
type ToolResult struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Result  interface{} `json:"result"`
	Error   error       `json:"error"`
	IsError bool        `json:"is_error"`
}

// ToolRegistry maps tool names to executors and runs tool calls.
// Thread-safe; a registry is built per request with the request's workspace
// scope baked into each executor.
type ToolRegistry struct {
	mu        sync.RWMutex
	executors map[string]ToolExecutor
}

// NewToolRegistry creates an empty tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		executors: make(map[string]ToolExecutor),
	}
}

// Register adds a tool executor, replacing any existing one with the same name.
func (r *ToolRegistry) Register(name string, executor ToolExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[name] = executor
}

// Get retrieves a tool executor by name, or nil if not registered.
func (r *ToolRegistry) Get(name string) ToolExecutor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.executors[name]
}

// Names returns the registered tool names (unordered).
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	return names
}

// Execute runs a single tool call. Missing tools and execution failures come
// back as error results so the model can see what went wrong.
func (r *ToolRegistry) Execute(ctx context.Context, call ToolCall) ToolResult {
	executor := r.Get(call.Name)
	if executor == nil {
		return ToolResult{
			ID:      call.ID,
			Name:    call.Name,
			Error:   fmt.Errorf("tool not found: %s", call.Name),
			IsError: true,
		}
	}

	result, err := executor.Execute(ctx, call.Input)
	if err != nil {
		return ToolResult{
			ID:      call.ID,
			Name:    call.Name,
			Error:   err,
			IsError: true,
		}
	}

	return ToolResult{
		ID:     call.ID,
		Name:   call.Name,
		Result: result,
	}
}

// ExecuteParallel runs tool calls concurrently and returns results in call
// order. Cancellation marks not-yet-started calls as errors.
func (r *ToolRegistry) ExecuteParallel(ctx context.Context, calls []ToolCall) []ToolResult {
	if len(calls) == 0 {
		return []ToolResult{}
	}

	results := make([]ToolResult, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(index int, toolCall ToolCall) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[index] = ToolResult{
					ID:      toolCall.ID,
					Name:    toolCall.Name,
					Error:   ctx.Err(),
					IsError: true,
				}
				return
			default:
			}

			results[index] = r.Execute(ctx, toolCall)
		}(i, call)
	}

	wg.Wait()

	return results
}
