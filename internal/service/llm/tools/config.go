package tools

// ToolConfig centralizes the limits shared by the tool implementations.
// Limits mirror the ranges advertised in the tool definitions so the model
// never sees a parameter accepted and then silently clamped further.
type ToolConfig struct {
	// MaxContentSize caps document content returned by view_document, in
	// bytes. Oversized documents are truncated with a marker.
	MaxContentSize int

	SearchDefaultLimit int
	SearchMaxLimit     int

	TreeDefaultDepth int
	TreeMaxDepth     int

	WebSearchDefaultLimit int
	WebSearchMaxLimit     int
}

// DefaultToolConfig returns the default tool configuration.
func DefaultToolConfig() *ToolConfig {
	return &ToolConfig{
		MaxContentSize: 20000, // ~5k tokens

		SearchDefaultLimit: 5,
		SearchMaxLimit:     20,

		TreeDefaultDepth: 2,
		TreeMaxDepth:     5,

		WebSearchDefaultLimit: 5,
		WebSearchMaxLimit:     10,
	}
}
