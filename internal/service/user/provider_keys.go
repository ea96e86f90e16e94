package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"atelier/internal/domain"
	"atelier/internal/domain/models"
	"atelier/internal/domain/repositories"
	"atelier/internal/secrets"
)

// keyedProviders are the providers users may store API keys for. Lorem is
// the offline mock and takes no key.
var keyedProviders = map[string]bool{
	"anthropic":  true,
	"gemini":     true,
	"openrouter": true,
}

const maxAPIKeyLength = 4096

// ProviderKeyService stores and resolves user-supplied provider API keys.
// Keys are sealed before they reach the repository; plaintext exists in
// memory only between request parsing and sealing, or between opening and
// provider dispatch. It is never logged.
type ProviderKeyService struct {
	keys   repositories.ProviderKeyRepository
	box    *secrets.Box
	logger *slog.Logger
}

// NewProviderKeyService creates a provider key service.
func NewProviderKeyService(
	keys repositories.ProviderKeyRepository,
	box *secrets.Box,
	logger *slog.Logger,
) *ProviderKeyService {
	return &ProviderKeyService{
		keys:   keys,
		box:    box,
		logger: logger,
	}
}

// StoreKey seals and upserts a key for (user, provider). Storing again for
// the same provider replaces the previous key.
func (s *ProviderKeyService) StoreKey(ctx context.Context, userID uuid.UUID, provider, apiKey string) (*models.ProviderKeySummary, error) {
	if !keyedProviders[provider] {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrValidation, provider)
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: api_key must not be empty", domain.ErrValidation)
	}
	if len(apiKey) > maxAPIKeyLength {
		return nil, fmt.Errorf("%w: api_key exceeds %d bytes", domain.ErrValidation, maxAPIKeyLength)
	}

	plaintext := []byte(apiKey)
	defer secrets.Wipe(plaintext)

	sealed, err := s.box.Seal(plaintext)
	if err != nil {
		return nil, fmt.Errorf("seal provider key: %w", err)
	}

	now := time.Now()
	key := &models.ProviderKey{
		UserID:      userID,
		Provider:    provider,
		Ciphertext:  sealed.Ciphertext,
		Nonce:       sealed.Nonce,
		Salt:        sealed.Salt,
		Fingerprint: secrets.Fingerprint(plaintext),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.keys.Upsert(ctx, key); err != nil {
		return nil, fmt.Errorf("store provider key: %w", err)
	}

	s.logger.Info("provider key stored",
		"user_id", userID,
		"provider", provider,
		"fingerprint", key.Fingerprint,
	)

	summary := key.Summary()
	return &summary, nil
}

// ListKeys returns redacted summaries for all of the user's stored keys.
func (s *ProviderKeyService) ListKeys(ctx context.Context, userID uuid.UUID) ([]models.ProviderKeySummary, error) {
	keys, err := s.keys.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list provider keys: %w", err)
	}

	summaries := make([]models.ProviderKeySummary, len(keys))
	for i := range keys {
		summaries[i] = keys[i].Summary()
	}
	return summaries, nil
}

// DeleteKey removes the stored key for (user, provider).
func (s *ProviderKeyService) DeleteKey(ctx context.Context, userID uuid.UUID, provider string) error {
	if !keyedProviders[provider] {
		return fmt.Errorf("%w: unknown provider %q", domain.ErrValidation, provider)
	}

	if err := s.keys.Delete(ctx, userID, provider); err != nil {
		return err
	}

	s.logger.Info("provider key deleted", "user_id", userID, "provider", provider)
	return nil
}

// KeyForProvider returns the user's plaintext key for a provider, or "" so
// callers fall back to the service key. This is the ProviderKeySource the
// streaming and studio services consume.
//
// A stored key that no longer opens (rotated master secret, corrupted row)
// is an error: silently billing the service account when the user expects
// their own key would be worse than failing the request.
func (s *ProviderKeyService) KeyForProvider(ctx context.Context, userID, provider string) (string, error) {
	if !keyedProviders[provider] {
		return "", nil
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		// Dev-mode pseudo users have no stored keys.
		return "", nil
	}

	key, err := s.keys.GetByUserAndProvider(ctx, uid, provider)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("load provider key: %w", err)
	}

	plaintext, err := s.box.Open(&secrets.Sealed{
		Ciphertext: key.Ciphertext,
		Nonce:      key.Nonce,
		Salt:       key.Salt,
	})
	if err != nil {
		s.logger.Error("stored provider key failed to open",
			"user_id", userID,
			"provider", provider,
			"fingerprint", key.Fingerprint,
			"error", err,
		)
		return "", fmt.Errorf("open provider key for %s: %w", provider, err)
	}

	apiKey := string(plaintext)
	secrets.Wipe(plaintext)
	return apiKey, nil
}
