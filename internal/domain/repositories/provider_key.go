package repositories

import (
	"context"

	"github.com/google/uuid"

	"atelier/internal/domain/models"
)

// ProviderKeyRepository defines the interface for stored provider API keys.
// Key material is persisted encrypted; callers never see plaintext from here.
type ProviderKeyRepository interface {
	// Upsert stores an encrypted key for (user, provider), replacing any
	// existing row for the same pair
	Upsert(ctx context.Context, key *models.ProviderKey) error

	// GetByUserAndProvider retrieves the encrypted key for a provider
	// Returns domain.ErrNotFound if the user has no key for this provider
	GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*models.ProviderKey, error)

	// ListByUser retrieves all stored keys for a user, ordered by provider
	// Returns empty slice if the user has no keys
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ProviderKey, error)

	// Delete removes a stored key
	// Returns domain.ErrNotFound if the user has no key for this provider
	Delete(ctx context.Context, userID uuid.UUID, provider string) error
}
