package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"atelier/internal/config"
	"atelier/internal/domain"
	models "atelier/internal/domain/models/library"
	libraryRepo "atelier/internal/domain/repositories/library"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// WorkspaceService handles workspace business logic
type WorkspaceService struct {
	workspaceRepo libraryRepo.WorkspaceRepository
	logger        *slog.Logger
}

// NewWorkspaceService creates a new workspace service
func NewWorkspaceService(
	workspaceRepo libraryRepo.WorkspaceRepository,
	logger *slog.Logger,
) *WorkspaceService {
	return &WorkspaceService{
		workspaceRepo: workspaceRepo,
		logger:        logger,
	}
}

// CreateWorkspaceRequest represents a request to create a workspace
type CreateWorkspaceRequest struct {
	UserID       string  `json:"-"` // Set by handler from auth context
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	SystemPrompt *string `json:"system_prompt,omitempty"` // Prepended to chat system prompts in this workspace
}

// UpdateWorkspaceRequest represents a request to update a workspace.
// nil fields are left unchanged; an empty string clears description or
// system prompt.
type UpdateWorkspaceRequest struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	SystemPrompt *string `json:"system_prompt,omitempty"`
}

// CreateWorkspace creates a new workspace
func (s *WorkspaceService) CreateWorkspace(ctx context.Context, req *CreateWorkspaceRequest) (*models.Workspace, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	workspace := &models.Workspace{
		UserID:       req.UserID,
		Name:         strings.TrimSpace(req.Name),
		Description:  normalizeOptionalText(req.Description),
		SystemPrompt: normalizeOptionalText(req.SystemPrompt),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.workspaceRepo.Create(ctx, workspace); err != nil {
		return nil, err
	}

	s.logger.Info("workspace created",
		"id", workspace.ID,
		"name", workspace.Name,
		"user_id", req.UserID,
	)

	return workspace, nil
}

// GetWorkspace retrieves a workspace by ID
func (s *WorkspaceService) GetWorkspace(ctx context.Context, id, userID string) (*models.Workspace, error) {
	return s.workspaceRepo.GetByID(ctx, id, userID)
}

// ListWorkspaces retrieves all workspaces for a user
func (s *WorkspaceService) ListWorkspaces(ctx context.Context, userID string) ([]models.Workspace, error) {
	return s.workspaceRepo.List(ctx, userID)
}

// UpdateWorkspace updates a workspace's name, description, or system prompt
func (s *WorkspaceService) UpdateWorkspace(ctx context.Context, id, userID string, req *UpdateWorkspaceRequest) (*models.Workspace, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	workspace, err := s.workspaceRepo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		workspace.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		workspace.Description = normalizeOptionalText(req.Description)
	}
	if req.SystemPrompt != nil {
		workspace.SystemPrompt = normalizeOptionalText(req.SystemPrompt)
	}
	workspace.UpdatedAt = time.Now()

	if err := s.workspaceRepo.Update(ctx, workspace); err != nil {
		return nil, err
	}

	s.logger.Info("workspace updated",
		"id", workspace.ID,
		"name", workspace.Name,
		"user_id", userID,
	)

	return workspace, nil
}

// DeleteWorkspace soft-deletes a workspace and returns the deleted row
// with deleted_at set
func (s *WorkspaceService) DeleteWorkspace(ctx context.Context, id, userID string) (*models.Workspace, error) {
	workspace, err := s.workspaceRepo.Delete(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("workspace deleted",
		"id", id,
		"user_id", userID,
	)

	return workspace, nil
}

// validateCreateRequest validates a create workspace request
func (s *WorkspaceService) validateCreateRequest(req *CreateWorkspaceRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxWorkspaceNameLength),
			validation.By(validateWorkspaceName),
		),
	)
}

// validateUpdateRequest validates an update workspace request
func (s *WorkspaceService) validateUpdateRequest(req *UpdateWorkspaceRequest) error {
	if req.Name == nil && req.Description == nil && req.SystemPrompt == nil {
		return fmt.Errorf("at least one field must be provided")
	}

	if req.Name != nil {
		return validation.ValidateStruct(req,
			validation.Field(&req.Name,
				validation.Required,
				validation.Length(1, config.MaxWorkspaceNameLength),
				validation.By(validateWorkspaceName),
			),
		)
	}

	return nil
}

// validateWorkspaceName rejects names that are empty after trimming.
// ozzo indirects pointer fields before calling rules, so value is the
// dereferenced string for both create and update requests.
func validateWorkspaceName(value interface{}) error {
	name, ok := value.(string)
	if !ok {
		return fmt.Errorf("name must be a string")
	}

	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}

	return nil
}

// normalizeOptionalText trims an optional text field and collapses empty
// values to nil so clearing and never-set read the same from the database.
func normalizeOptionalText(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
