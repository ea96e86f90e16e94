package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"atelier/internal/domain"
	"atelier/internal/domain/models"
	"atelier/internal/domain/repositories"
)

// PostgresProviderKeyRepository implements the ProviderKeyRepository interface
type PostgresProviderKeyRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewProviderKeyRepository creates a new PostgresProviderKeyRepository
func NewProviderKeyRepository(config *RepositoryConfig) repositories.ProviderKeyRepository {
	return &PostgresProviderKeyRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Upsert stores an encrypted key for (user, provider), replacing any existing row
func (r *PostgresProviderKeyRepository) Upsert(ctx context.Context, key *models.ProviderKey) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, provider, ciphertext, nonce, salt, fingerprint, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			ciphertext = EXCLUDED.ciphertext,
			nonce = EXCLUDED.nonce,
			salt = EXCLUDED.salt,
			fingerprint = EXCLUDED.fingerprint,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`, r.tables.ProviderKeys)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		key.UserID,
		key.Provider,
		key.Ciphertext,
		key.Nonce,
		key.Salt,
		key.Fingerprint,
		key.CreatedAt,
		key.UpdatedAt,
	).Scan(&key.ID, &key.CreatedAt, &key.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert provider key: %w", err)
	}

	return nil
}

// GetByUserAndProvider retrieves the encrypted key for a provider
func (r *PostgresProviderKeyRepository) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*models.ProviderKey, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, provider, ciphertext, nonce, salt, fingerprint, created_at, updated_at
		FROM %s
		WHERE user_id = $1 AND provider = $2
	`, r.tables.ProviderKeys)

	var key models.ProviderKey
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, userID, provider).Scan(
		&key.ID,
		&key.UserID,
		&key.Provider,
		&key.Ciphertext,
		&key.Nonce,
		&key.Salt,
		&key.Fingerprint,
		&key.CreatedAt,
		&key.UpdatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("provider key for %s: %w", provider, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get provider key: %w", err)
	}

	return &key, nil
}

// ListByUser retrieves all stored keys for a user, ordered by provider
func (r *PostgresProviderKeyRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ProviderKey, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, provider, ciphertext, nonce, salt, fingerprint, created_at, updated_at
		FROM %s
		WHERE user_id = $1
		ORDER BY provider ASC
	`, r.tables.ProviderKeys)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list provider keys: %w", err)
	}
	defer rows.Close()

	var keys []models.ProviderKey
	for rows.Next() {
		var key models.ProviderKey
		err := rows.Scan(
			&key.ID,
			&key.UserID,
			&key.Provider,
			&key.Ciphertext,
			&key.Nonce,
			&key.Salt,
			&key.Fingerprint,
			&key.CreatedAt,
			&key.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan provider key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provider keys: %w", err)
	}

	// Return empty slice instead of nil if no keys
	if keys == nil {
		keys = []models.ProviderKey{}
	}

	return keys, nil
}

// Delete removes a stored key
func (r *PostgresProviderKeyRepository) Delete(ctx context.Context, userID uuid.UUID, provider string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = $1 AND provider = $2
	`, r.tables.ProviderKeys)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, userID, provider)
	if err != nil {
		return fmt.Errorf("delete provider key: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("provider key for %s: %w", provider, domain.ErrNotFound)
	}

	return nil
}
