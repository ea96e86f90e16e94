package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"atelier/internal/capabilities"
	"atelier/internal/domain/models/chat"
	domainllm "atelier/internal/domain/services/llm"
	"atelier/internal/service/llm/formatting"
)

// MessageBuilderService converts stored turns into provider messages.
// It is a pure conversion layer: the caller loads the turn path and its
// blocks before calling in.
type MessageBuilderService struct {
	formatterRegistry  *formatting.FormatterRegistry
	capabilityRegistry *capabilities.Registry
	logger             *slog.Logger
}

// NewMessageBuilderService creates a new MessageBuilderService.
func NewMessageBuilderService(
	formatterRegistry *formatting.FormatterRegistry,
	capabilityRegistry *capabilities.Registry,
	logger *slog.Logger,
) *MessageBuilderService {
	return &MessageBuilderService{
		formatterRegistry:  formatterRegistry,
		capabilityRegistry: capabilityRegistry,
		logger:             logger,
	}
}

// BuildMessages converts a turn path (ordered oldest to newest, blocks
// already loaded) into messages suitable for provider requests.
func (mb *MessageBuilderService) BuildMessages(
	ctx context.Context,
	path []chat.Turn,
) ([]domainllm.Message, error) {
	messages := make([]domainllm.Message, 0, len(path))

	for _, turn := range path {
		switch turn.Role {
		case chat.RoleUser, chat.RoleAssistant:
		default:
			return nil, fmt.Errorf("unsupported turn role: %s", turn.Role)
		}

		if len(turn.Blocks) == 0 {
			mb.logger.Warn("skipping turn with no content blocks", "turn_id", turn.ID)
			continue
		}

		blocks := mb.sanitizeTurnBlocks(turn)
		if len(blocks) == 0 {
			mb.logger.Warn("skipping turn after sanitizing blocks", "turn_id", turn.ID)
			continue
		}

		messages = append(messages, mb.splitTurnMessages(turn.Role, blocks)...)
	}

	if err := mb.injectTokenLimitWarningIfNeeded(path, &messages); err != nil {
		// History still works without the warning.
		mb.logger.Warn("failed to inject token limit warning", "error", err)
	}

	return messages, nil
}

// splitTurnMessages converts one turn's blocks into provider messages.
// Assistant turns that ran tools store tool_result blocks inline after the
// tool_use blocks that requested them, but providers expect results on the
// user role, so a mixed turn becomes alternating assistant and user
// messages, matching the request shape the live tool loop sends.
func (mb *MessageBuilderService) splitTurnMessages(turnRole string, blocks []chat.TurnBlock) []domainllm.Message {
	var messages []domainllm.Message

	var current []*chat.TurnBlock
	currentRole := ""

	flush := func() {
		if len(current) > 0 {
			messages = append(messages, domainllm.Message{Role: currentRole, Content: current})
			current = nil
		}
	}

	for i := range blocks {
		role := turnRole
		if turnRole == chat.RoleAssistant && blocks[i].BlockType == chat.BlockTypeToolResult {
			role = chat.RoleUser
		}

		if blocks[i].BlockType == chat.BlockTypeToolResult {
			mb.formatToolResultBlock(&blocks[i])
		}

		if role != currentRole {
			flush()
			currentRole = role
		}
		current = append(current, &blocks[i])
	}
	flush()

	return messages
}

// formatToolResultBlock re-renders a tool_result block's provider text from
// the raw result kept in Content. Rendering on message build rather than at
// storage time means formatter changes reach old history too. The block
// points into the sanitized copy, so the stored block is untouched.
func (mb *MessageBuilderService) formatToolResultBlock(block *chat.TurnBlock) {
	if mb.formatterRegistry == nil || block.Content == nil {
		return
	}
	if isErr, _ := block.Content["is_error"].(bool); isErr {
		// Error text was written at execution time and has no formatter.
		return
	}

	toolName, ok := block.Content["tool_name"].(string)
	if !ok || toolName == "" {
		return
	}
	result, ok := block.Content["result"]
	if !ok {
		return
	}

	text := formatting.RenderText(mb.formatterRegistry.Format(toolName, result))
	block.TextContent = &text
}

// sanitizeTurnBlocks repairs dangling tool_use blocks in a turn. A stream
// interrupted mid round can leave a tool_use with no tool_result, which
// providers reject on replay, so a synthetic error result is injected right
// after it. Returns a fresh slice; the turn's own blocks are not modified.
func (mb *MessageBuilderService) sanitizeTurnBlocks(turn chat.Turn) []chat.TurnBlock {
	var blocks []chat.TurnBlock

	for i, block := range turn.Blocks {
		blocks = append(blocks, block)

		if block.BlockType != chat.BlockTypeToolUse {
			continue
		}

		toolUseID, _ := block.Content["tool_use_id"].(string)
		hasResult := false
		for j := i + 1; j < len(turn.Blocks); j++ {
			if turn.Blocks[j].BlockType != chat.BlockTypeToolResult {
				continue
			}
			if resultID, _ := turn.Blocks[j].Content["tool_use_id"].(string); resultID == toolUseID {
				hasResult = true
				break
			}
		}
		if hasResult {
			continue
		}

		toolName, _ := block.Content["tool_name"].(string)
		mb.logger.Warn("injecting error tool_result for dangling tool_use block",
			"turn_id", turn.ID,
			"block_sequence", block.Sequence,
			"tool_name", toolName)

		errText := "Tool execution was interrupted"
		blocks = append(blocks, chat.TurnBlock{
			TurnID:      turn.ID,
			BlockType:   chat.BlockTypeToolResult,
			Sequence:    block.Sequence + 1,
			TextContent: &errText,
			Content: map[string]interface{}{
				"tool_use_id": toolUseID,
				"tool_name":   toolName,
				"is_error":    true,
				"error":       errText,
			},
		})
	}

	return blocks
}

// injectTokenLimitWarningIfNeeded appends a user message warning when the
// last assistant turn used more than 75% of the model's context window.
func (mb *MessageBuilderService) injectTokenLimitWarningIfNeeded(path []chat.Turn, messages *[]domainllm.Message) error {
	var last *chat.Turn
	for i := len(path) - 1; i >= 0; i-- {
		if path[i].Role == chat.RoleAssistant {
			last = &path[i]
			break
		}
	}
	if last == nil {
		return nil
	}
	if last.InputTokens == nil || last.OutputTokens == nil {
		return nil
	}
	if last.Model == nil || *last.Model == "" {
		return nil
	}

	totalTokens := *last.InputTokens + *last.OutputTokens

	provider := "anthropic"
	if p, ok := last.RequestParams["provider"].(string); ok && p != "" {
		provider = p
	}

	modelCap, err := mb.capabilityRegistry.GetModelCapabilities(provider, *last.Model)
	if err != nil {
		// Unknown model, no window to warn against.
		return nil
	}
	if modelCap.ContextWindow <= 0 {
		return nil
	}

	usagePercent := float64(totalTokens) / float64(modelCap.ContextWindow) * 100
	if usagePercent <= 75 {
		return nil
	}

	warningText := fmt.Sprintf("Note: You're approaching the context limit (%.1f%% used, %d/%d tokens). Consider wrapping up.", usagePercent, totalTokens, modelCap.ContextWindow)
	*messages = append(*messages, domainllm.Message{
		Role: chat.RoleUser,
		Content: []*chat.TurnBlock{{
			BlockType:   chat.BlockTypeText,
			TextContent: &warningText,
		}},
	})

	mb.logger.Info("injected token limit warning",
		"usage_percent", usagePercent,
		"total_tokens", totalTokens,
		"context_window", modelCap.ContextWindow,
	)

	return nil
}
