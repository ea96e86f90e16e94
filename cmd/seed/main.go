package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"atelier/internal/auth"
	"atelier/internal/config"
	"atelier/internal/repository/postgres"
	postgresLibrary "atelier/internal/repository/postgres/library"
	"atelier/internal/seed"
	librarySvc "atelier/internal/service/library"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// Fallback identity when no Supabase admin credentials are configured. The
// JWT verifier will not accept tokens for it, but the data is browsable
// through psql and the debug tooling.
const defaultSeedUserID = "00000000-0000-0000-0000-000000000001"

const seedWorkspaceID = "33333333-3333-3333-3333-333333333333"

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed fixtures")
	clearData := flag.Bool("clear-data", false, "Clear seeded data (keep schema)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *clearData {
		log.Printf("🧹 Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	userID := resolveSeedUser(ctx, cfg)

	if *clearData {
		log.Println("🧹 Clearing seeded workspace data...")
		if err := clearWorkspaceData(ctx, pool, tables, seedWorkspaceID); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared successfully")
		return
	}

	// Ensure the seed workspace exists
	if err := ensureWorkspace(ctx, pool, tables, seedWorkspaceID, userID); err != nil {
		log.Fatalf("Failed to ensure workspace: %v", err)
	}

	// Create repositories and services; documents go through the service
	// layer so path notation, word counts and FTS all behave like the API
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	workspaceRepo := postgresLibrary.NewWorkspaceRepository(repoConfig)
	docRepo := postgresLibrary.NewDocumentRepository(repoConfig)
	folderRepo := postgresLibrary.NewFolderRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	contentAnalyzer := librarySvc.NewContentAnalyzer()
	pathResolver := librarySvc.NewPathResolver(folderRepo, txManager)
	validator := librarySvc.NewResourceValidator(workspaceRepo, folderRepo)
	docService := librarySvc.NewDocumentService(docRepo, folderRepo, contentAnalyzer, pathResolver, validator, logger)

	// Clear existing data so the fixtures land in a known state
	log.Println("⚠️  Clearing existing documents and folders...")
	if err := clearWorkspaceData(ctx, pool, tables, seedWorkspaceID); err != nil {
		log.Printf("Warning: Could not clear data: %v", err)
	}

	log.Println("📝 Seeding documents with folder structure...")
	documents := seedDocuments(seedWorkspaceID, userID)
	for i, req := range documents {
		doc, err := docService.CreateDocument(ctx, req)
		if err != nil {
			log.Printf("❌ Failed to create document '%s': %v", req.Name, err)
			continue
		}
		log.Printf("✅ Created document %d/%d: %s (ID: %s, Words: %d)",
			i+1, len(documents), req.Name, doc.ID, doc.WordCount)
	}

	log.Println("💬 Seeding sample chat with branching turns...")
	chatSeeder := seed.NewChatSeeder(pool, tables, logger)
	if err := chatSeeder.SeedChatData(ctx, seedWorkspaceID, userID); err != nil {
		log.Printf("Warning: Could not seed chat data: %v", err)
	}

	log.Println("🎉 Seeding complete!")
}

// resolveSeedUser provisions a confirmed dev account through the Supabase
// Admin API when service credentials are configured, otherwise falls back
// to SEED_USER_ID (or a fixed placeholder).
func resolveSeedUser(ctx context.Context, cfg *config.Config) string {
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		email := envOr("SEED_USER_EMAIL", "dev@atelier.local")
		password := envOr("SEED_USER_PASSWORD", "atelier-dev-password")

		admin := auth.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseKey)
		userID, err := admin.GetOrCreateUser(ctx, email, password)
		if err != nil {
			log.Printf("Warning: Could not provision seed user via admin API: %v", err)
		} else {
			log.Printf("👤 Seed user ready: %s (ID: %s)", email, userID)
			return userID
		}
	}
	return envOr("SEED_USER_ID", defaultSeedUserID)
}

// ensureWorkspace creates the seed workspace if it doesn't exist
func ensureWorkspace(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, workspaceID, userID string) error {
	query := `
		INSERT INTO ` + tables.Workspaces + ` (id, user_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := pool.Exec(ctx, query, workspaceID, userID, "Sample Workspace",
		"Seeded workspace with example documents and a chat", time.Now())
	return err
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	// Enable UUID extension
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`); err != nil {
		return err
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + tables.Workspaces + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			system_prompt TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Folders + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			workspace_id UUID NOT NULL REFERENCES ` + tables.Workspaces + `(id) ON DELETE CASCADE,
			parent_id UUID REFERENCES ` + tables.Folders + `(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(workspace_id, parent_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Documents + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			workspace_id UUID NOT NULL REFERENCES ` + tables.Workspaces + `(id) ON DELETE CASCADE,
			folder_id UUID REFERENCES ` + tables.Folders + `(id) ON DELETE SET NULL,
			name TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT 'markdown',
			word_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Chats + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			workspace_id UUID NOT NULL REFERENCES ` + tables.Workspaces + `(id) ON DELETE CASCADE,
			user_id UUID NOT NULL,
			title TEXT NOT NULL,
			last_viewed_turn_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Turns + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			chat_id UUID NOT NULL REFERENCES ` + tables.Chats + `(id) ON DELETE CASCADE,
			prev_turn_id UUID REFERENCES ` + tables.Turns + `(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			system_prompt TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			error TEXT,
			model TEXT,
			input_tokens INTEGER,
			output_tokens INTEGER,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ,
			request_params JSONB,
			stop_reason TEXT,
			response_metadata JSONB
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.TurnBlocks + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			turn_id UUID NOT NULL REFERENCES ` + tables.Turns + `(id) ON DELETE CASCADE,
			block_type TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			text_content TEXT,
			content JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(turn_id, sequence)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.UserPreferences + ` (
			user_id UUID PRIMARY KEY,
			preferences JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.ProviderKeys + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL,
			provider TEXT NOT NULL,
			ciphertext BYTEA NOT NULL,
			nonce BYTEA NOT NULL,
			salt BYTEA NOT NULL,
			fingerprint TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(user_id, provider)
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	// Indexes. Uniqueness on names is partial: soft-deleted rows must not
	// block reuse, and NULL folder_id/parent_id needs its own index since
	// composite UNIQUE treats NULLs as distinct.
	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `workspaces_user_name ON ` + tables.Workspaces + `(user_id, name) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_workspace_parent ON ` + tables.Folders + `(workspace_id, parent_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_root_unique ON ` + tables.Folders + `(workspace_id, name) WHERE parent_id IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_workspace_id ON ` + tables.Documents + `(workspace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_workspace_folder ON ` + tables.Documents + `(workspace_id, folder_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_name_unique ON ` + tables.Documents + `(workspace_id, folder_id, name) WHERE deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_root_name_unique ON ` + tables.Documents + `(workspace_id, name) WHERE folder_id IS NULL AND deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_content_fts ON ` + tables.Documents + ` USING GIN (to_tsvector('english', content))`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_name_fts ON ` + tables.Documents + ` USING GIN (to_tsvector('english', name))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `chats_workspace_title ON ` + tables.Chats + `(workspace_id, title) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `turns_chat_id ON ` + tables.Turns + `(chat_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `turns_prev_turn ON ` + tables.Turns + `(prev_turn_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `turn_blocks_turn_id ON ` + tables.TurnBlocks + `(turn_id, sequence)`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.TurnBlocks,
		tables.Turns,
		tables.Chats,
		tables.Documents,
		tables.Folders,
		tables.Workspaces,
		tables.UserPreferences,
		tables.ProviderKeys,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}

	return nil
}

// clearWorkspaceData removes chats, documents and folders for the seed
// workspace. Turns and blocks go with their chat via ON DELETE CASCADE.
func clearWorkspaceData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, workspaceID string) error {
	deletes := []string{
		"DELETE FROM " + tables.Chats + " WHERE workspace_id = $1",
		"DELETE FROM " + tables.Documents + " WHERE workspace_id = $1",
		"DELETE FROM " + tables.Folders + " WHERE workspace_id = $1",
	}
	for _, stmt := range deletes {
		if _, err := pool.Exec(ctx, stmt, workspaceID); err != nil {
			return err
		}
	}
	return nil
}

// seedDocuments returns the fixture documents. Names use path notation so
// the service layer builds the folder hierarchy.
func seedDocuments(workspaceID, userID string) []*librarySvc.CreateDocumentRequest {
	docs := []struct {
		name    string
		content string
	}{
		{
			name: "chapters/chapter-1.md",
			content: `# The Beginning

The morning sun cast long shadows across the cobblestone streets of Eldergrove. **Aria** stood at the window of her small apartment, watching the city wake. Today was the day everything would change.

She had received the letter three days ago, an invitation to the Academy of Arcane Arts. *Only the most gifted are chosen*, the letter had said. But Aria knew the truth: she wasn't gifted at all.
`,
		},
		{
			name: "chapters/chapter-2.md",
			content: `# The Academy

The Academy's spires pierced the clouds, their crystalline surfaces reflecting the afternoon light in a thousand directions. Aria's breath caught as the carriage rounded the final bend.

## First Impressions

Students in elegant robes hurried across the courtyard, books floating beside them without visible support. This was a world Aria had only read about in dusty library books.
`,
		},
		{
			name: "characters/aria.md",
			content: `# Aria Moonwhisper

**Age:** 17

**Appearance:** Silver hair, violet eyes, petite build

## Background

Orphaned at age 5, raised in Eldergrove by her grandmother. Discovered magical potential at 16, but struggles with control.

## Motivation

Wants to prove she belongs at the Academy despite her doubts about her own talent.
`,
		},
		{
			name: "notes/worldbuilding.md",
			content: `# Worldbuilding Notes

## Eldergrove

A mid-sized trading city on the river Thrane. Known for its clockmakers and its reluctance toward magic.

## The Academy of Arcane Arts

Founded four centuries ago. Admission is by invitation only; the selection criteria are a closely guarded secret, which is a plot point.
`,
		},
		{
			name: "outline.md",
			content: `# Story Outline

1. Aria receives the invitation (chapter 1)
2. Arrival at the Academy (chapter 2)
3. The first trial and the mentor's secret
4. Midpoint reversal: the invitation was a mistake
5. Aria chooses to stay anyway
`,
		},
	}

	requests := make([]*librarySvc.CreateDocumentRequest, 0, len(docs))
	for _, d := range docs {
		requests = append(requests, &librarySvc.CreateDocumentRequest{
			WorkspaceID: workspaceID,
			UserID:      userID,
			Name:        d.name,
			Content:     d.content,
			Source:      "markdown",
		})
	}
	return requests
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
