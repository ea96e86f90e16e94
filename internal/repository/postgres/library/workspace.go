package library

import (
	"context"
	"fmt"

	"atelier/internal/domain"
	models "atelier/internal/domain/models/library"
	libraryRepo "atelier/internal/domain/repositories/library"

	"atelier/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresWorkspaceRepository implements the WorkspaceRepository interface
type PostgresWorkspaceRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewWorkspaceRepository creates a new workspace repository
func NewWorkspaceRepository(config *postgres.RepositoryConfig) libraryRepo.WorkspaceRepository {
	return &PostgresWorkspaceRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new workspace
func (r *PostgresWorkspaceRepository) Create(ctx context.Context, workspace *models.Workspace) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, name, description, system_prompt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, r.tables.Workspaces)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		workspace.UserID,
		workspace.Name,
		workspace.Description,
		workspace.SystemPrompt,
		workspace.CreatedAt,
		workspace.UpdatedAt,
	).Scan(&workspace.ID, &workspace.CreatedAt, &workspace.UpdatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			// Query for the existing workspace to get its ID
			existingID, queryErr := r.getExistingWorkspaceID(ctx, workspace.UserID, workspace.Name)
			if queryErr != nil {
				// Fallback to generic conflict error if we can't find the existing workspace
				return fmt.Errorf("workspace '%s' already exists: %w", workspace.Name, domain.ErrConflict)
			}

			// Return structured conflict error with resource ID
			return &domain.ConflictError{
				Message:      fmt.Sprintf("workspace '%s' already exists", workspace.Name),
				ResourceType: "workspace",
				ResourceID:   existingID,
			}
		}
		return fmt.Errorf("create workspace: %w", err)
	}

	return nil
}

// GetByID retrieves a workspace by ID
func (r *PostgresWorkspaceRepository) GetByID(ctx context.Context, id, userID string) (*models.Workspace, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, name, description, system_prompt, created_at, updated_at
		FROM %s
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, r.tables.Workspaces)

	var workspace models.Workspace
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id, userID).Scan(
		&workspace.ID,
		&workspace.UserID,
		&workspace.Name,
		&workspace.Description,
		&workspace.SystemPrompt,
		&workspace.CreatedAt,
		&workspace.UpdatedAt,
	)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get workspace: %w", err)
	}

	return &workspace, nil
}

// List retrieves all workspaces for a user, ordered by updated_at DESC
func (r *PostgresWorkspaceRepository) List(ctx context.Context, userID string) ([]models.Workspace, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, name, description, system_prompt, created_at, updated_at
		FROM %s
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY updated_at DESC
	`, r.tables.Workspaces)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []models.Workspace
	for rows.Next() {
		var workspace models.Workspace
		err := rows.Scan(
			&workspace.ID,
			&workspace.UserID,
			&workspace.Name,
			&workspace.Description,
			&workspace.SystemPrompt,
			&workspace.CreatedAt,
			&workspace.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		workspaces = append(workspaces, workspace)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workspaces: %w", err)
	}

	// Return empty slice instead of nil if no workspaces
	if workspaces == nil {
		workspaces = []models.Workspace{}
	}

	return workspaces, nil
}

// Update updates a workspace's name, description, system prompt and updated_at timestamp
func (r *PostgresWorkspaceRepository) Update(ctx context.Context, workspace *models.Workspace) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, description = $2, system_prompt = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6
	`, r.tables.Workspaces)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		workspace.Name,
		workspace.Description,
		workspace.SystemPrompt,
		workspace.UpdatedAt,
		workspace.ID,
		workspace.UserID,
	)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			// Query for the existing workspace to get its ID
			existingID, queryErr := r.getExistingWorkspaceID(ctx, workspace.UserID, workspace.Name)
			if queryErr != nil {
				// Fallback to generic conflict error if we can't find the existing workspace
				return fmt.Errorf("workspace name '%s' already exists: %w", workspace.Name, domain.ErrConflict)
			}

			// Return structured conflict error with resource ID
			return &domain.ConflictError{
				Message:      fmt.Sprintf("workspace name '%s' already exists", workspace.Name),
				ResourceType: "workspace",
				ResourceID:   existingID,
			}
		}
		return fmt.Errorf("update workspace: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("workspace %s: %w", workspace.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete soft-deletes a workspace by setting deleted_at timestamp and returns the deleted workspace
func (r *PostgresWorkspaceRepository) Delete(ctx context.Context, id, userID string) (*models.Workspace, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING id, user_id, name, description, system_prompt, created_at, updated_at, deleted_at
	`, r.tables.Workspaces)

	var workspace models.Workspace
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id, userID).Scan(
		&workspace.ID,
		&workspace.UserID,
		&workspace.Name,
		&workspace.Description,
		&workspace.SystemPrompt,
		&workspace.CreatedAt,
		&workspace.UpdatedAt,
		&workspace.DeletedAt,
	)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("delete workspace: %w", err)
	}

	return &workspace, nil
}

// getExistingWorkspaceID queries for an existing workspace by user_id and name
// Returns the workspace ID if found, error otherwise
func (r *PostgresWorkspaceRepository) getExistingWorkspaceID(ctx context.Context, userID, name string) (string, error) {
	query := fmt.Sprintf(`
		SELECT id
		FROM %s
		WHERE user_id = $1 AND name = $2 AND deleted_at IS NULL
	`, r.tables.Workspaces)

	var id string
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, userID, name).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("get existing workspace ID: %w", err)
	}

	return id, nil
}
