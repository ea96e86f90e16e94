package streaming

// debug.go - helpers for building generation requests without executing them.
// Used by debug HTTP endpoints (dev environment only) to inspect the payload
// a turn would send to the provider adapter.

import (
	"context"
	"encoding/json"
	"fmt"

	"atelier/internal/domain"
	"atelier/internal/domain/models/chat"
	domainllm "atelier/internal/domain/services/llm"
)

// BuildDebugRequest builds the request a hypothetical CreateTurn would hand
// to the provider adapter, without creating turns or contacting the
// provider. It mirrors CreateTurn and startGeneration: validation, param
// parsing, model resolution, tool resolution, system prompt resolution,
// history loading and message building.
//
// The result is the adapter-level GenerateRequest as a generic JSON map, not
// the provider's wire format.
func (s *Service) BuildDebugRequest(ctx context.Context, req *CreateTurnRequest) (map[string]interface{}, error) {
	if req.PrevTurnID != nil && *req.PrevTurnID == "" {
		req.PrevTurnID = nil
	}

	if err := s.validateCreateTurnRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

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

	// Resolves minimal tool references in place; the registry itself is not
	// needed for a dry run.
	if _, err := s.prepareTools(params, chatRecord.WorkspaceID); err != nil {
		return nil, err
	}

	systemPrompt, err := s.prompts.Resolve(ctx, chatRecord.WorkspaceID, req.UserID, params.System)
	if err != nil {
		return nil, err
	}
	params.System = systemPrompt

	// Conversation history up to the attach point
	var path []chat.Turn
	if req.PrevTurnID != nil {
		path, err = s.turnRepo.GetTurnPath(ctx, *req.PrevTurnID)
		if err != nil {
			return nil, fmt.Errorf("failed to get turn path: %w", err)
		}

		turnIDs := make([]string, len(path))
		for i := range path {
			turnIDs[i] = path[i].ID
		}
		blocksByTurn, err := s.turnRepo.GetTurnBlocksForTurns(ctx, turnIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to get turn blocks: %w", err)
		}
		for i := range path {
			path[i].Blocks = blocksByTurn[path[i].ID]
		}
	}

	messages, err := s.messageBuilder.BuildMessages(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to build messages: %w", err)
	}

	// The hypothetical new user message
	if len(req.TurnBlocks) > 0 {
		blocks := make([]*chat.TurnBlock, len(req.TurnBlocks))
		for i, in := range req.TurnBlocks {
			blocks[i] = &chat.TurnBlock{
				BlockType:   in.BlockType,
				Sequence:    i,
				TextContent: in.TextContent,
				Content:     in.Content,
			}
		}
		messages = append(messages, domainllm.Message{
			Role:    chat.RoleUser,
			Content: blocks,
		})
	}

	generateReq := &domainllm.GenerateRequest{
		Messages: messages,
		Model:    resolved.Model,
		Params:   params,
	}

	raw, err := json.Marshal(generateReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}

	// Routing information the GenerateRequest itself does not carry
	result["provider"] = resolved.Provider

	return result, nil
}
