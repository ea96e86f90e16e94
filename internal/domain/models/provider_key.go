package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderKey is a user-supplied API key for a model provider, stored sealed.
// Ciphertext, nonce and salt are opaque to everything outside the secrets
// package; the plaintext key exists in memory only while a request that needs
// it is being prepared.
type ProviderKey struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Provider    string    `json:"provider" db:"provider"` // "anthropic", "gemini", "openrouter"
	Ciphertext  []byte    `json:"-" db:"ciphertext"`
	Nonce       []byte    `json:"-" db:"nonce"`
	Salt        []byte    `json:"-" db:"salt"`
	Fingerprint string    `json:"fingerprint" db:"fingerprint"` // sha256 hex of the plaintext, for display
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ProviderKeySummary is the redacted listing shape. The key itself is never
// returned once stored.
type ProviderKeySummary struct {
	Provider    string    `json:"provider"`
	Fingerprint string    `json:"fingerprint"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summary strips the sealed material for list responses.
func (k *ProviderKey) Summary() ProviderKeySummary {
	return ProviderKeySummary{
		Provider:    k.Provider,
		Fingerprint: k.Fingerprint,
		UpdatedAt:   k.UpdatedAt,
	}
}
