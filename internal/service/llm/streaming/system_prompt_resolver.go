package streaming

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	libraryRepo "atelier/internal/domain/repositories/library"
)

// systemPromptResolver combines the request's system prompt with the
// workspace prompt. Implements SystemPromptResolver.
type systemPromptResolver struct {
	workspaceRepo libraryRepo.WorkspaceRepository
	logger        *slog.Logger
}

// NewSystemPromptResolver creates a resolver backed by the workspace store.
func NewSystemPromptResolver(
	workspaceRepo libraryRepo.WorkspaceRepository,
	logger *slog.Logger,
) SystemPromptResolver {
	return &systemPromptResolver{
		workspaceRepo: workspaceRepo,
		logger:        logger,
	}
}

// Resolve concatenates the per-request system prompt with the workspace's
// standing prompt, request first. Returns nil when neither is set so the
// provider receives no system message at all.
func (r *systemPromptResolver) Resolve(
	ctx context.Context,
	workspaceID string,
	userID string,
	userSystem *string,
) (*string, error) {
	var parts []string

	if userSystem != nil && *userSystem != "" {
		parts = append(parts, *userSystem)
	}

	workspace, err := r.workspaceRepo.GetByID(ctx, workspaceID, userID)
	if err != nil {
		return nil, fmt.Errorf("load workspace: %w", err)
	}
	if workspace.SystemPrompt != nil && *workspace.SystemPrompt != "" {
		parts = append(parts, *workspace.SystemPrompt)
	}

	if len(parts) == 0 {
		return nil, nil
	}

	result := strings.Join(parts, "\n\n")
	r.logger.Debug("system prompt resolved",
		"workspace_id", workspaceID,
		"parts", len(parts),
		"length", len(result),
	)
	return &result, nil
}
