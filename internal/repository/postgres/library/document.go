package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"atelier/internal/domain"
	models "atelier/internal/domain/models/library"
	libraryRepo "atelier/internal/domain/repositories/library"

	"atelier/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// docColumns is the full column list every single-document query selects.
// Scan order must match scanDocument.
const docColumns = "id, workspace_id, folder_id, name, content, source, word_count, created_at, updated_at"

// docMetaColumns omits content and created_at for listings, where shipping
// whole document bodies would be wasteful.
const docMetaColumns = "id, workspace_id, folder_id, name, source, word_count, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(
		&doc.ID,
		&doc.WorkspaceID,
		&doc.FolderID,
		&doc.Name,
		&doc.Content,
		&doc.Source,
		&doc.WordCount,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func scanDocumentMeta(row rowScanner) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(
		&doc.ID,
		&doc.WorkspaceID,
		&doc.FolderID,
		&doc.Name,
		&doc.Source,
		&doc.WordCount,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *postgres.RepositoryConfig) libraryRepo.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new document. A unique-constraint violation maps to a
// ConflictError carrying the existing document's ID so clients can offer an
// overwrite.
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (workspace_id, folder_id, name, content, source, word_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.WorkspaceID,
		doc.FolderID,
		doc.Name,
		doc.Content,
		doc.Source,
		doc.WordCount,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return r.duplicateDocumentError(ctx, doc)
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// duplicateDocumentError builds the conflict error for a name collision.
// When the colliding row cannot be resolved, a plain ErrConflict still tells
// the caller what happened.
func (r *PostgresDocumentRepository) duplicateDocumentError(ctx context.Context, doc *models.Document) error {
	existingID, err := r.lookupDocumentID(ctx, doc.WorkspaceID, doc.FolderID, doc.Name)
	if err != nil {
		return fmt.Errorf("document '%s' already exists in this location: %w", doc.Name, domain.ErrConflict)
	}

	return &domain.ConflictError{
		Message:      fmt.Sprintf("document '%s' already exists in this location", doc.Name),
		ResourceType: "document",
		ResourceID:   existingID,
	}
}

// GetByID retrieves a document. An empty workspaceID skips the workspace
// scope; internal callers (import, seeding) use that form.
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id, workspaceID string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND deleted_at IS NULL
	`, docColumns, r.tables.Documents)
	args := []interface{}{id}

	if workspaceID != "" {
		query += ` AND workspace_id = $2`
		args = append(args, workspaceID)
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return doc, nil
}

// GetByPath resolves a slash-separated path like "notes/chapter-1.md": every
// segment but the last names a folder, walked from the workspace root.
func (r *PostgresDocumentRepository) GetByPath(ctx context.Context, path string, workspaceID string) (*models.Document, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 {
		return nil, fmt.Errorf("invalid path: %w", domain.ErrNotFound)
	}

	docName := parts[len(parts)-1]

	var folderID *string
	for _, folderName := range parts[:len(parts)-1] {
		folder, err := r.findFolderByName(ctx, workspaceID, folderID, folderName)
		if err != nil {
			return nil, fmt.Errorf("folder '%s' not found: %w", folderName, err)
		}
		folderID = &folder.ID
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE workspace_id = $1 AND name = $2 AND deleted_at IS NULL
	`, docColumns, r.tables.Documents)
	args := []interface{}{workspaceID, docName}

	if folderID != nil {
		query += ` AND folder_id = $3`
		args = append(args, *folderID)
	} else {
		query += ` AND folder_id IS NULL`
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("document at path '%s': %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document by path: %w", err)
	}

	return doc, nil
}

// findFolderByName resolves one path segment: a folder with this name under
// parentID, or at the workspace root when parentID is nil.
func (r *PostgresDocumentRepository) findFolderByName(ctx context.Context, workspaceID string, parentID *string, name string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT id, workspace_id, parent_id, name, created_at, updated_at
		FROM %s
		WHERE workspace_id = $1 AND name = $2
	`, r.tables.Folders)
	args := []interface{}{workspaceID, name}

	if parentID != nil {
		query += ` AND parent_id = $3`
		args = append(args, *parentID)
	} else {
		query += ` AND parent_id IS NULL`
	}

	var folder models.Folder
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, args...).Scan(
		&folder.ID,
		&folder.WorkspaceID,
		&folder.ParentID,
		&folder.Name,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("folder '%s': %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find folder by name: %w", err)
	}

	return &folder, nil
}

// Update rewrites a document's mutable fields. Renames and moves can collide
// with an existing name, which maps to ConflictError like Create.
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET folder_id = $1, name = $2, content = $3, source = $4, word_count = $5, updated_at = $6
		WHERE id = $7 AND deleted_at IS NULL
	`, r.tables.Documents)
	args := []interface{}{
		doc.FolderID,
		doc.Name,
		doc.Content,
		doc.Source,
		doc.WordCount,
		doc.UpdatedAt,
		doc.ID,
	}

	if doc.WorkspaceID != "" {
		query += ` AND workspace_id = $8`
		args = append(args, doc.WorkspaceID)
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return r.duplicateDocumentError(ctx, doc)
		}
		return fmt.Errorf("update document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete soft-deletes a document by setting deleted_at.
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id, workspaceID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Documents)
	args := []interface{}{id}

	if workspaceID != "" {
		query += ` AND workspace_id = $2`
		args = append(args, workspaceID)
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// DeleteAllByWorkspace soft-deletes every live document in a workspace.
func (r *PostgresDocumentRepository) DeleteAllByWorkspace(ctx context.Context, workspaceID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW()
		WHERE workspace_id = $1 AND deleted_at IS NULL
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, workspaceID); err != nil {
		return fmt.Errorf("delete all documents: %w", err)
	}

	return nil
}

// ListByFolder lists document metadata in one folder; nil folderID means the
// workspace root.
func (r *PostgresDocumentRepository) ListByFolder(ctx context.Context, folderID *string, workspaceID string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE workspace_id = $1 AND deleted_at IS NULL
	`, docMetaColumns, r.tables.Documents)
	args := []interface{}{workspaceID}

	if folderID != nil {
		query += ` AND folder_id = $2`
		args = append(args, *folderID)
	} else {
		query += ` AND folder_id IS NULL`
	}
	query += ` ORDER BY name ASC`

	return r.listMetadata(ctx, query, args, "list documents in folder")
}

// GetAllMetadataByWorkspace lists metadata for every live document in a
// workspace, most recently edited first.
func (r *PostgresDocumentRepository) GetAllMetadataByWorkspace(ctx context.Context, workspaceID string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE workspace_id = $1 AND deleted_at IS NULL
		ORDER BY updated_at DESC
	`, docMetaColumns, r.tables.Documents)

	return r.listMetadata(ctx, query, []interface{}{workspaceID}, "get all document metadata")
}

func (r *PostgresDocumentRepository) listMetadata(ctx context.Context, query string, args []interface{}, op string) ([]models.Document, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	documents := []models.Document{}
	for rows.Next() {
		doc, err := scanDocumentMeta(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return documents, nil
}

// GetPath computes the display path of a document: its folder chain joined
// with slashes, then the document name.
func (r *PostgresDocumentRepository) GetPath(ctx context.Context, doc *models.Document) (string, error) {
	if doc.FolderID == nil {
		return doc.Name, nil
	}

	// Walk from the document's folder up to the root, prepending each
	// parent's name.
	query := fmt.Sprintf(`
		WITH RECURSIVE folder_path AS (
			SELECT id, name, parent_id, name::text AS path
			FROM %s
			WHERE id = $1 AND workspace_id = $2
			UNION ALL
			SELECT f.id, f.name, f.parent_id, f.name || '/' || fp.path
			FROM %s f
			JOIN folder_path fp ON f.id = fp.parent_id
		)
		SELECT path FROM folder_path WHERE parent_id IS NULL
	`, r.tables.Folders, r.tables.Folders)

	var folderPath string
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, *doc.FolderID, doc.WorkspaceID).Scan(&folderPath)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			// Orphaned folder reference; the bare name is still useful
			return doc.Name, nil
		}
		return "", fmt.Errorf("get folder path: %w", err)
	}

	return folderPath + "/" + doc.Name, nil
}

// lookupDocumentID finds the live document occupying a (workspace, folder,
// name) slot. Used to attach the existing ID to conflict errors.
func (r *PostgresDocumentRepository) lookupDocumentID(ctx context.Context, workspaceID string, folderID *string, name string) (string, error) {
	query := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE workspace_id = $1 AND name = $2 AND deleted_at IS NULL
	`, r.tables.Documents)
	args := []interface{}{workspaceID, name}

	if folderID != nil {
		query += ` AND folder_id = $3`
		args = append(args, *folderID)
	} else {
		query += ` AND folder_id IS NULL`
	}

	var id string
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return "", fmt.Errorf("get existing document ID: %w", err)
	}

	return id, nil
}

// SearchDocuments dispatches a search to the strategy named in the options.
// Only full-text search is implemented; the vector strategy is reserved.
func (r *PostgresDocumentRepository) SearchDocuments(ctx context.Context, options *models.SearchOptions) (*models.SearchResults, error) {
	options.ApplyDefaults()
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search options: %w", err)
	}

	switch options.Strategy {
	case models.SearchStrategyFullText:
		return r.fullTextSearch(ctx, options)
	case models.SearchStrategyVector:
		return nil, fmt.Errorf("vector search not yet implemented")
	default:
		return nil, fmt.Errorf("unknown search strategy: %s", options.Strategy)
	}
}

// searchPredicates builds the per-field match conditions and rank terms for
// a full-text query. $1 is the language, $2 the user query; name matches
// rank double so title hits surface above body hits.
func searchPredicates(fields []models.SearchField) (whereClause, rankExpression string) {
	var conditions []string
	var ranks []string

	for _, field := range fields {
		switch field {
		case models.SearchFieldName:
			conditions = append(conditions,
				"to_tsvector($1, name) @@ websearch_to_tsquery($1, $2)")
			ranks = append(ranks,
				"ts_rank(to_tsvector($1, name), websearch_to_tsquery($1, $2)) * 2.0")
		case models.SearchFieldContent:
			conditions = append(conditions,
				"to_tsvector($1, content) @@ websearch_to_tsquery($1, $2)")
			ranks = append(ranks,
				"ts_rank(to_tsvector($1, content), websearch_to_tsquery($1, $2))")
		}
	}

	// A document matches when any requested field matches; its score is the
	// sum over fields.
	return strings.Join(conditions, " OR "), strings.Join(ranks, " + ")
}

// scopeFilters appends the optional workspace and folder restrictions,
// continuing the placeholder numbering from startIndex.
func scopeFilters(opts *models.SearchOptions, args []interface{}, startIndex int) (string, []interface{}, int) {
	var clause string
	idx := startIndex

	if opts.WorkspaceID != "" {
		clause += fmt.Sprintf(` AND workspace_id = $%d`, idx)
		args = append(args, opts.WorkspaceID)
		idx++
	}
	if opts.FolderID != nil {
		clause += fmt.Sprintf(` AND folder_id = $%d`, idx)
		args = append(args, *opts.FolderID)
		idx++
	}

	return clause, args, idx
}

// fullTextSearch runs Postgres full-text search with websearch query syntax
// (quoted phrases, OR, leading minus) and returns ranked, paginated results.
// Instead of full content each hit carries a ts_headline snippet around the
// best match.
func (r *PostgresDocumentRepository) fullTextSearch(ctx context.Context, opts *models.SearchOptions) (*models.SearchResults, error) {
	whereClause, rankExpression := searchPredicates(opts.Fields)

	query := fmt.Sprintf(`
		SELECT id, workspace_id, folder_id, name,
		       ts_headline($1, content, websearch_to_tsquery($1, $2),
		                   'MaxWords=50, MinWords=20, MaxFragments=1') AS content,
		       source, word_count, created_at, updated_at,
		       (%s) AS rank_score
		FROM %s
		WHERE deleted_at IS NULL
		  AND (%s)
	`, rankExpression, r.tables.Documents, whereClause)

	args := []interface{}{opts.Language, opts.Query}
	scope, args, paramIndex := scopeFilters(opts, args, 3)
	query += scope

	query += fmt.Sprintf(` ORDER BY rank_score DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, opts.Limit, opts.Offset)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("full-text search query failed: %w", err)
	}
	defer rows.Close()

	searchResults := []models.SearchResult{}
	for rows.Next() {
		var doc models.Document
		var score float64

		err := rows.Scan(
			&doc.ID,
			&doc.WorkspaceID,
			&doc.FolderID,
			&doc.Name,
			&doc.Content,
			&doc.Source,
			&doc.WordCount,
			&doc.CreatedAt,
			&doc.UpdatedAt,
			&score,
		)
		if err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}

		searchResults = append(searchResults, models.SearchResult{
			Document: doc,
			Score:    score,
			Metadata: map[string]interface{}{
				"rank_method": "ts_rank",
				"language":    opts.Language,
			},
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}

	// Total match count drives the pagination metadata
	totalCount, err := r.countTotalMatches(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("count total matches: %w", err)
	}

	return models.NewSearchResults(searchResults, totalCount, opts), nil
}

// countTotalMatches counts matches for the same predicates without the
// limit/offset window.
func (r *PostgresDocumentRepository) countTotalMatches(ctx context.Context, opts *models.SearchOptions) (int, error) {
	whereClause, _ := searchPredicates(opts.Fields)

	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s
		WHERE deleted_at IS NULL
		  AND (%s)
	`, r.tables.Documents, whereClause)

	args := []interface{}{opts.Language, opts.Query}
	scope, args, _ := scopeFilters(opts, args, 3)
	query += scope

	var total int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}

	return total, nil
}
