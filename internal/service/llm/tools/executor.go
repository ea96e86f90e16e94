package tools

import "context"

// ToolExecutor runs one tool. Implementations must be safe for concurrent
// use and respect context cancellation.
type ToolExecutor interface {
	// Execute runs the tool with the parameters the model supplied. The
	// returned value must be JSON-serializable (maps, slices, primitives).
	// Recoverable problems (bad path, no match) should come back as error
	// payloads in the result, not as Go errors; errors are for failures the
	// model cannot act on.
	Execute(ctx context.Context, input map[string]interface{}) (interface{}, error)
}
