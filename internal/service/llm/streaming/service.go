// Package streaming orchestrates turn creation and live generation: it
// persists the user turn, spins up a TurnExecutor for the assistant turn and
// hands SSE access over to connected clients.
package streaming

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"atelier/internal/config"
	"atelier/internal/domain"
	"atelier/internal/domain/models/chat"
	"atelier/internal/domain/repositories"
	chatRepo "atelier/internal/domain/repositories/chat"
	domainllm "atelier/internal/domain/services/llm"
	"atelier/internal/service/llm"
	"atelier/internal/service/llm/conversation"
	"atelier/internal/service/llm/formatting"
	"atelier/internal/service/llm/tools"
)

// ChatReader loads a chat for ownership validation and workspace scoping.
type ChatReader interface {
	GetChat(ctx context.Context, chatID, userID string) (*chat.Chat, error)
}

// ProviderGetter hands out provider instances by name.
type ProviderGetter interface {
	GetProvider(provider string) (domainllm.LLMProvider, error)
	GetProviderWithKey(provider, apiKey string) (domainllm.LLMProvider, error)
}

// ProviderKeySource looks up a user's stored API key for a provider.
// Implementations return "" when the user has no key stored for it.
type ProviderKeySource interface {
	KeyForProvider(ctx context.Context, userID, provider string) (string, error)
}

// SystemPromptResolver combines the request's system prompt with workspace
// context.
type SystemPromptResolver interface {
	Resolve(ctx context.Context, workspaceID, userID string, userSystem *string) (*string, error)
}

// ToolRegistryFactory builds a workspace-scoped tool registry for one turn.
type ToolRegistryFactory func(workspaceID string) *tools.ToolRegistry

// TurnBlockInput is one content block supplied by the client.
type TurnBlockInput struct {
	BlockType   string                 `json:"block_type"`
	TextContent *string                `json:"text_content,omitempty"`
	Content     map[string]interface{} `json:"content,omitempty"`
}

// CreateTurnRequest is the payload for creating a user turn.
type CreateTurnRequest struct {
	ChatID        string                 `json:"-"`
	UserID        string                 `json:"-"`
	PrevTurnID    *string                `json:"prev_turn_id,omitempty"`
	Role          string                 `json:"role"`
	TurnBlocks    []TurnBlockInput       `json:"turn_blocks"`
	RequestParams map[string]interface{} `json:"request_params,omitempty"`
}

// CreateTurnResponse returns both created turns and the SSE stream URL.
type CreateTurnResponse struct {
	UserTurn      *chat.Turn `json:"user_turn"`
	AssistantTurn *chat.Turn `json:"assistant_turn"`
	StreamURL     string     `json:"stream_url"`
}

// Service handles turn creation and streaming orchestration.
type Service struct {
	turnRepo       chatRepo.TurnRepository
	chats          ChatReader
	providers      ProviderGetter
	keySource      ProviderKeySource // nil disables user key lookup
	resolver       *llm.ModelResolver
	executors      *llm.TurnExecutorRegistry
	messageBuilder *conversation.MessageBuilderService
	toolFactory    ToolRegistryFactory // nil disables tools
	formatters     *formatting.FormatterRegistry
	config         *config.Config
	txManager      repositories.TransactionManager
	prompts        SystemPromptResolver
	logger         *slog.Logger
}

// NewService creates a new streaming service.
func NewService(
	turnRepo chatRepo.TurnRepository,
	chats ChatReader,
	providers ProviderGetter,
	keySource ProviderKeySource,
	resolver *llm.ModelResolver,
	executors *llm.TurnExecutorRegistry,
	messageBuilder *conversation.MessageBuilderService,
	toolFactory ToolRegistryFactory,
	formatters *formatting.FormatterRegistry,
	cfg *config.Config,
	txManager repositories.TransactionManager,
	prompts SystemPromptResolver,
	logger *slog.Logger,
) *Service {
	return &Service{
		turnRepo:       turnRepo,
		chats:          chats,
		providers:      providers,
		keySource:      keySource,
		resolver:       resolver,
		executors:      executors,
		messageBuilder: messageBuilder,
		toolFactory:    toolFactory,
		formatters:     formatters,
		config:         cfg,
		txManager:      txManager,
		prompts:        prompts,
		logger:         logger,
	}
}

// CreateTurn creates a user turn plus a pending assistant turn in one
// transaction, then starts background generation. The response carries both
// turns and the SSE URL the client should connect to.
func (s *Service) CreateTurn(ctx context.Context, req *CreateTurnRequest) (*CreateTurnResponse, error) {
	// Clients send "" when starting from the chat root
	if req.PrevTurnID != nil && *req.PrevTurnID == "" {
		req.PrevTurnID = nil
	}

	if err := s.validateCreateTurnRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// One lookup validates ownership and yields the workspace for tools
	chatRecord, err := s.chats.GetChat(ctx, req.ChatID, req.UserID)
	if err != nil {
		return nil, err
	}

	requestParams := req.RequestParams
	if requestParams == nil {
		requestParams = make(map[string]interface{})
	}

	if err := chat.ValidateRequestParams(requestParams); err != nil {
		return nil, err
	}
	params, err := chat.GetRequestParamStruct(requestParams)
	if err != nil {
		return nil, err
	}

	modelStr := ""
	if params.Model != nil {
		modelStr = *params.Model
	}
	explicitProvider := ""
	if params.Provider != nil {
		explicitProvider = *params.Provider
	}
	resolved, err := s.resolver.Resolve(modelStr, explicitProvider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	toolRegistry, err := s.prepareTools(params, chatRecord.WorkspaceID)
	if err != nil {
		return nil, err
	}

	systemPrompt, err := s.prompts.Resolve(ctx, chatRecord.WorkspaceID, req.UserID, params.System)
	if err != nil {
		s.logger.Error("failed to resolve system prompt", "error", err, "chat_id", req.ChatID)
		return nil, err
	}
	params.System = systemPrompt

	var userTurn, assistantTurn *chat.Turn
	now := time.Now()

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		userTurn = &chat.Turn{
			ChatID:     req.ChatID,
			PrevTurnID: req.PrevTurnID,
			Role:       chat.RoleUser,
			Status:     chat.TurnStatusComplete, // user turns have nothing to stream
			CreatedAt:  now,
		}
		if err := s.turnRepo.CreateTurn(txCtx, userTurn); err != nil {
			return err
		}

		blocks := make([]chat.TurnBlock, len(req.TurnBlocks))
		for i, in := range req.TurnBlocks {
			blocks[i] = chat.TurnBlock{
				TurnID:      userTurn.ID,
				BlockType:   in.BlockType,
				Sequence:    i,
				TextContent: in.TextContent,
				Content:     in.Content,
				CreatedAt:   now,
			}
		}
		if err := s.turnRepo.CreateTurnBlocks(txCtx, blocks); err != nil {
			return err
		}
		userTurn.Blocks = blocks

		assistantTurn = &chat.Turn{
			ChatID:        req.ChatID,
			PrevTurnID:    &userTurn.ID,
			Role:          chat.RoleAssistant,
			Status:        chat.TurnStatusPending,
			Model:         &resolved.Model,
			SystemPrompt:  systemPrompt,
			RequestParams: requestParams,
			CreatedAt:     time.Now(),
		}
		if err := s.turnRepo.CreateTurn(txCtx, assistantTurn); err != nil {
			return fmt.Errorf("failed to create assistant turn: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("turn pair created",
		"chat_id", req.ChatID,
		"user_turn_id", userTurn.ID,
		"assistant_turn_id", assistantTurn.ID,
		"model", resolved.Model,
		"provider", resolved.Provider,
		"tools", len(params.Tools),
	)

	provider, err := s.providerForUser(ctx, req.UserID, resolved.Provider)
	if err != nil {
		s.logger.Error("failed to get provider",
			"error", err,
			"provider", resolved.Provider,
			"assistant_turn_id", assistantTurn.ID,
		)
		if updateErr := s.turnRepo.UpdateTurnError(ctx, assistantTurn.ID, fmt.Sprintf("failed to get provider: %v", err)); updateErr != nil {
			s.logger.Error("failed to update turn error", "error", updateErr)
		}
		return nil, fmt.Errorf("failed to get provider %q: %w", resolved.Provider, err)
	}

	// The executor must be registered before the response returns, or an
	// immediately connecting SSE client races it.
	executor := llm.NewTurnExecutor(ctx, assistantTurn.ID, resolved.Model, s.turnRepo, provider, toolRegistry, s.formatters, s.logger)
	if !s.executors.Register(assistantTurn.ID, executor) {
		return nil, fmt.Errorf("executor already registered for turn %s", assistantTurn.ID)
	}

	// Generation outlives the HTTP request that started it.
	go s.startGeneration(context.WithoutCancel(ctx), userTurn.ID, resolved.Model, executor, params)

	return &CreateTurnResponse{
		UserTurn:      userTurn,
		AssistantTurn: assistantTurn,
		StreamURL:     fmt.Sprintf("/api/v1/turns/%s/stream", assistantTurn.ID),
	}, nil
}

// startGeneration loads conversation history, builds the provider request
// and starts the executor. Runs in a background goroutine; failures are
// routed through the executor so connected SSE clients hear about them.
func (s *Service) startGeneration(ctx context.Context, userTurnID, model string, executor *llm.TurnExecutor, params *chat.RequestParams) {
	path, err := s.turnRepo.GetTurnPath(ctx, userTurnID)
	if err != nil {
		s.logger.Error("failed to get turn path", "error", err, "user_turn_id", userTurnID)
		executor.Fail(fmt.Errorf("failed to load conversation history: %w", err))
		return
	}

	turnIDs := make([]string, len(path))
	for i := range path {
		turnIDs[i] = path[i].ID
	}
	blocksByTurn, err := s.turnRepo.GetTurnBlocksForTurns(ctx, turnIDs)
	if err != nil {
		s.logger.Error("failed to get turn blocks", "error", err, "user_turn_id", userTurnID)
		executor.Fail(fmt.Errorf("failed to load turn blocks: %w", err))
		return
	}
	for i := range path {
		path[i].Blocks = blocksByTurn[path[i].ID]
	}

	messages, err := s.messageBuilder.BuildMessages(ctx, path)
	if err != nil {
		s.logger.Error("failed to build messages", "error", err, "user_turn_id", userTurnID)
		executor.Fail(fmt.Errorf("failed to build messages: %w", err))
		return
	}

	executor.Start(&domainllm.GenerateRequest{
		Messages: messages,
		Model:    model,
		Params:   params,
	})

	s.logger.Info("generation started",
		"user_turn_id", userTurnID,
		"model", model,
		"history_turns", len(path),
	)
}

// InterruptTurn cancels in-flight generation for a turn the user owns.
// Partial content is flushed and the turn marked cancelled.
func (s *Service) InterruptTurn(ctx context.Context, turnID, userID string) error {
	turn, err := s.GetOwnedTurn(ctx, turnID, userID)
	if err != nil {
		return err
	}

	if executor := s.executors.Get(turnID); executor != nil {
		executor.Interrupt()
		s.logger.Info("turn interrupted", "turn_id", turnID)
		return nil
	}

	// No live executor. A pending or streaming row here is an orphan from a
	// crashed process; close it out directly.
	switch turn.Status {
	case chat.TurnStatusPending, chat.TurnStatusStreaming:
		return s.turnRepo.UpdateTurnStatus(ctx, turnID, chat.TurnStatusCancelled, nil)
	default:
		return &domain.ValidationError{Message: "turn is not streaming"}
	}
}

// GetOwnedTurn loads a turn and verifies the chat it belongs to is owned by
// the user. Used by the SSE, interrupt and debug endpoints.
func (s *Service) GetOwnedTurn(ctx context.Context, turnID, userID string) (*chat.Turn, error) {
	turn, err := s.turnRepo.GetTurn(ctx, turnID)
	if err != nil {
		return nil, err
	}
	if _, err := s.chats.GetChat(ctx, turn.ChatID, userID); err != nil {
		return nil, err
	}
	return turn, nil
}

// Executor returns the live executor for a turn, or nil when generation has
// finished and been evicted, or ran on another process.
func (s *Service) Executor(turnID string) *llm.TurnExecutor {
	return s.executors.Get(turnID)
}

// prepareTools resolves the request's tool list in place and builds the
// executor registry scoped to the chat's workspace. Returns nil when no
// tools were requested, which disables the tool loop for the turn.
func (s *Service) prepareTools(params *chat.RequestParams, workspaceID string) (*tools.ToolRegistry, error) {
	if len(params.Tools) == 0 {
		return nil, nil
	}
	if !s.config.ToolsEnabled {
		return nil, &domain.ValidationError{Message: "tools are disabled in this environment"}
	}
	if s.toolFactory == nil {
		return nil, &domain.ValidationError{Message: "tools are not configured"}
	}

	// Minimal {"name": ...} references resolve to full schemas; full custom
	// definitions pass through untouched.
	for i := range params.Tools {
		if params.Tools[i].Function != nil {
			continue
		}
		def := chat.ToolDefinitionByName(params.Tools[i].Name)
		if def == nil {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown tool: %q", params.Tools[i].Name)}
		}
		params.Tools[i] = *def
	}

	return s.toolFactory(workspaceID), nil
}

// providerForUser returns the provider instance for a turn. A key the user
// stored for the provider takes precedence over the service key.
func (s *Service) providerForUser(ctx context.Context, userID, provider string) (domainllm.LLMProvider, error) {
	if s.keySource != nil {
		key, err := s.keySource.KeyForProvider(ctx, userID, provider)
		if err != nil {
			return nil, fmt.Errorf("failed to load provider key: %w", err)
		}
		if key != "" {
			return s.providers.GetProviderWithKey(provider, key)
		}
	}
	return s.providers.GetProvider(provider)
}

// Validation

func (s *Service) validateCreateTurnRequest(req *CreateTurnRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.ChatID, validation.Required),
		validation.Field(&req.Role,
			validation.Required,
			// Assistant turns are created internally, never by clients
			validation.In(chat.RoleUser),
		),
		validation.Field(&req.TurnBlocks,
			validation.Required,
			validation.Each(validation.By(validateTurnBlock)),
		),
	)
}

func validateTurnBlock(value interface{}) error {
	block, ok := value.(TurnBlockInput)
	if !ok {
		return fmt.Errorf("invalid content block type")
	}

	// Clients send message text only; tool and thinking blocks are produced
	// by the assistant side.
	if block.BlockType != chat.BlockTypeText {
		return fmt.Errorf("block_type must be %q", chat.BlockTypeText)
	}
	if block.TextContent == nil || *block.TextContent == "" {
		return fmt.Errorf("text_content is required")
	}
	return nil
}
