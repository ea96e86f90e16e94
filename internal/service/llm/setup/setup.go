// Package setup wires the chat service graph. It lives outside package llm
// so it can depend on both the executor layer and the streaming service
// without creating an import cycle between them.
package setup

import (
	"log/slog"

	"atelier/internal/capabilities"
	"atelier/internal/config"
	"atelier/internal/domain/repositories"
	chatRepo "atelier/internal/domain/repositories/chat"
	libraryRepo "atelier/internal/domain/repositories/library"
	"atelier/internal/service/llm"
	"atelier/internal/service/llm/chat"
	"atelier/internal/service/llm/conversation"
	"atelier/internal/service/llm/formatting"
	"atelier/internal/service/llm/streaming"
	"atelier/internal/service/llm/tools"
	"atelier/internal/service/llm/tools/external"
)

// Services holds all chat-related services
type Services struct {
	Chat         *chat.Service
	Conversation *conversation.Service
	Streaming    *streaming.Service
}

// New initializes all chat services with proper dependency injection.
// keySource may be nil when user-supplied provider keys are disabled; tools
// fall back to read-only library access when no web search key is configured.
func New(
	chats chatRepo.ChatRepository,
	turns chatRepo.TurnRepository,
	workspaceRepo libraryRepo.WorkspaceRepository,
	documentRepo libraryRepo.DocumentRepository,
	folderRepo libraryRepo.FolderRepository,
	providerRegistry *llm.ProviderRegistry,
	keySource streaming.ProviderKeySource,
	cfg *config.Config,
	txManager repositories.TransactionManager,
	capabilityRegistry *capabilities.Registry,
	logger *slog.Logger,
) (*Services, error) {
	// Global executor registry: holds live generations so SSE clients can
	// attach from any request, with periodic cleanup of finished entries.
	executors := llm.GetGlobalRegistry()

	resolver := llm.NewModelResolver(capabilityRegistry, cfg.DefaultProvider, cfg.DefaultModel)

	// Formatters render raw tool results into the text providers see.
	// The default registry covers the built-in library tools.
	formatters := formatting.NewDefaultRegistry()

	messageBuilder := conversation.NewMessageBuilderService(
		formatters,
		capabilityRegistry,
		logger,
	)

	chatService := chat.NewService(
		chats,
		workspaceRepo,
		logger,
	)

	conversationService := conversation.NewService(
		chats,
		turns, // TurnReader
		turns, // TurnNavigator (same repo implements both)
	)

	systemPromptResolver := streaming.NewSystemPromptResolver(
		workspaceRepo,
		logger,
	)

	// Web search rides on Tavily when a key is configured; otherwise the
	// tool registry simply never offers web_search.
	var searchClient external.SearchClient
	if cfg.TavilyAPIKey != "" {
		searchClient = external.NewTavilyClient(cfg.TavilyAPIKey)
		logger.Info("web search tool available", "provider", "tavily")
	}

	// Tool registries are built per turn because every tool is scoped to
	// the workspace the chat lives in.
	toolFactory := func(workspaceID string) *tools.ToolRegistry {
		return tools.NewToolRegistryBuilder().
			WithLibraryTools(workspaceID, documentRepo, folderRepo).
			WithEditTool(workspaceID, documentRepo, folderRepo).
			WithWebSearch(searchClient).
			Build()
	}

	streamingService := streaming.NewService(
		turns,
		chats,
		providerRegistry,
		keySource,
		resolver,
		executors,
		messageBuilder,
		toolFactory,
		formatters,
		cfg,
		txManager,
		systemPromptResolver,
		logger,
	)

	return &Services{
		Chat:         chatService,
		Conversation: conversationService,
		Streaming:    streamingService,
	}, nil
}
