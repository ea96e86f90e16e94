package setup

import (
	"io"
	"log/slog"
	"testing"

	"atelier/internal/capabilities"
	"atelier/internal/config"
	"atelier/internal/service/llm"
)

// Wiring the full service graph also exercises the package boundaries:
// this package depends on both llm and llm/streaming, and neither may
// depend back on it.
func TestNewWiresAllServices(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		DefaultProvider: "lorem",
		DefaultModel:    "lorem-fast",
	}

	providerRegistry, err := llm.SetupProviders(cfg, logger)
	if err != nil {
		t.Fatalf("SetupProviders() error = %v", err)
	}

	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		t.Fatalf("capabilities.NewRegistry() error = %v", err)
	}

	services, err := New(
		nil, // chats
		nil, // turns
		nil, // workspaceRepo
		nil, // documentRepo
		nil, // folderRepo
		providerRegistry,
		nil, // keySource
		cfg,
		nil, // txManager
		capabilityRegistry,
		logger,
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if services.Chat == nil {
		t.Error("Chat service not wired")
	}
	if services.Conversation == nil {
		t.Error("Conversation service not wired")
	}
	if services.Streaming == nil {
		t.Error("Streaming service not wired")
	}
}
