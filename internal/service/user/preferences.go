// Package user implements the account-scoped settings services: the
// namespaced preferences document and the sealed provider API keys.
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"atelier/internal/domain/models"
	"atelier/internal/domain/repositories"
)

// PreferencesService manages the per-user preferences document. All
// preferences live in one JSONB column with namespaced structure; updates
// replace whole namespaces (RFC 7396 style: absent namespaces stay, explicit
// null clears).
type PreferencesService struct {
	prefsRepo repositories.UserPreferencesRepository
	logger    *slog.Logger
}

// NewPreferencesService creates a user preferences service.
func NewPreferencesService(
	prefsRepo repositories.UserPreferencesRepository,
	logger *slog.Logger,
) *PreferencesService {
	return &PreferencesService{
		prefsRepo: prefsRepo,
		logger:    logger,
	}
}

// defaultPreferences returns the namespaced defaults served to users who
// have not stored anything yet.
func (s *PreferencesService) defaultPreferences(userID uuid.UUID) *models.UserPreferences {
	now := time.Now()
	return &models.UserPreferences{
		UserID: userID,
		Preferences: models.JSONMap{
			"models": map[string]interface{}{
				"favorites": []models.ProviderModel{},
				"default":   nil,
			},
			"ui": map[string]interface{}{
				"theme": "light",
			},
			"system_instructions": nil,
			"notifications":       map[string]interface{}{},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GetPreferences retrieves preferences for a user. Users who never stored
// anything get the defaults, not an error.
func (s *PreferencesService) GetPreferences(ctx context.Context, userID uuid.UUID) (*models.UserPreferences, error) {
	prefs, err := s.prefsRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	if prefs == nil {
		s.logger.Debug("no preferences found, returning defaults", "user_id", userID)
		prefs = s.defaultPreferences(userID)
	}

	return prefs, nil
}

// UpdatePreferences applies a partial update: only the namespaces present in
// the request change, each as a whole. SystemInstructions is tri-state so an
// explicit null clears it while an absent field leaves it alone.
func (s *PreferencesService) UpdatePreferences(ctx context.Context, userID uuid.UUID, req *models.UpdatePreferencesRequest) (*models.UserPreferences, error) {
	existing, err := s.prefsRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get existing preferences: %w", err)
	}

	if existing == nil {
		existing = s.defaultPreferences(userID)
	}
	if existing.Preferences == nil {
		existing.Preferences = models.JSONMap{}
	}

	if req.Models != nil {
		if err := existing.SetModels(req.Models); err != nil {
			return nil, fmt.Errorf("update models namespace: %w", err)
		}
	}

	if req.UI != nil {
		if err := existing.SetUI(req.UI); err != nil {
			return nil, fmt.Errorf("update ui namespace: %w", err)
		}
	}

	if req.SystemInstructions.Present {
		existing.SetSystemInstructions(req.SystemInstructions.Value)
	}

	if req.Notifications != nil {
		if err := existing.SetNotifications(req.Notifications); err != nil {
			return nil, fmt.Errorf("update notifications namespace: %w", err)
		}
	}

	existing.UpdatedAt = time.Now()

	if err := s.prefsRepo.Upsert(ctx, existing); err != nil {
		return nil, fmt.Errorf("upsert preferences: %w", err)
	}

	s.logger.Info("user preferences updated",
		"user_id", userID,
		"has_models", req.Models != nil,
		"has_ui", req.UI != nil,
		"has_system_instructions", req.SystemInstructions.Present,
		"has_notifications", req.Notifications != nil,
	)

	return existing, nil
}
