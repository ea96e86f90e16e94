package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"atelier/internal/config"
	"atelier/internal/domain"
	chatModels "atelier/internal/domain/models/chat"
	chatRepo "atelier/internal/domain/repositories/chat"
	libraryRepo "atelier/internal/domain/repositories/library"
)

// Service handles chat session management (CRUD operations).
// Turn creation and streaming live in the streaming service; history
// navigation lives in the conversation service.
type Service struct {
	chats      chatRepo.ChatRepository
	workspaces libraryRepo.WorkspaceRepository
	logger     *slog.Logger
}

// NewService creates a new chat CRUD service
func NewService(
	chats chatRepo.ChatRepository,
	workspaces libraryRepo.WorkspaceRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		chats:      chats,
		workspaces: workspaces,
		logger:     logger,
	}
}

// CreateChatRequest is the DTO for creating a new chat
type CreateChatRequest struct {
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"-"` // Set by handler from auth context
	Title       string `json:"title"`
}

// UpdateChatRequest is the DTO for updating a chat
type UpdateChatRequest struct {
	Title string `json:"title"`
}

// CreateChat creates a new chat session
func (s *Service) CreateChat(ctx context.Context, req *CreateChatRequest) (*chatModels.Chat, error) {
	if err := s.validateCreateChatRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	// Verify workspace exists and user has access
	_, err := s.workspaces.GetByID(ctx, req.WorkspaceID, req.UserID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)

	chat := &chatModels.Chat{
		WorkspaceID: req.WorkspaceID,
		UserID:      req.UserID,
		Title:       title,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.chats.CreateChat(ctx, chat); err != nil {
		return nil, err
	}

	s.logger.Info("chat created",
		"id", chat.ID,
		"title", chat.Title,
		"workspace_id", req.WorkspaceID,
		"user_id", req.UserID,
	)

	return chat, nil
}

// GetChat retrieves a chat by ID
func (s *Service) GetChat(ctx context.Context, chatID, userID string) (*chatModels.Chat, error) {
	return s.chats.GetChat(ctx, chatID, userID)
}

// ListChats retrieves all chats for a workspace
func (s *Service) ListChats(ctx context.Context, workspaceID, userID string) ([]chatModels.Chat, error) {
	// Verify workspace exists and user has access
	_, err := s.workspaces.GetByID(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}

	return s.chats.ListChatsByWorkspace(ctx, workspaceID, userID)
}

// UpdateChat updates a chat's title
func (s *Service) UpdateChat(ctx context.Context, chatID, userID string, req *UpdateChatRequest) (*chatModels.Chat, error) {
	if err := s.validateUpdateChatRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	chat, err := s.chats.GetChat(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	chat.Title = strings.TrimSpace(req.Title)
	chat.UpdatedAt = time.Now()

	if err := s.chats.UpdateChat(ctx, chat); err != nil {
		return nil, err
	}

	s.logger.Info("chat updated",
		"id", chat.ID,
		"title", chat.Title,
		"user_id", userID,
	)

	return chat, nil
}

// DeleteChat soft-deletes a chat and returns the deleted row
func (s *Service) DeleteChat(ctx context.Context, chatID, userID string) (*chatModels.Chat, error) {
	deletedChat, err := s.chats.DeleteChat(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("chat deleted",
		"id", chatID,
		"user_id", userID,
	)

	return deletedChat, nil
}

// Validation methods

func (s *Service) validateCreateChatRequest(req *CreateChatRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.WorkspaceID, validation.Required),
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxChatTitleLength),
		),
	)
}

func (s *Service) validateUpdateChatRequest(req *UpdateChatRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxChatTitleLength),
		),
	)
}
