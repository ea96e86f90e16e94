package seed

import (
	"context"
	"log/slog"
	"time"

	"atelier/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatSeeder inserts sample chat data (chats, turns, turn blocks) so the
// turn-tree endpoints have something to serve in a fresh dev database.
type ChatSeeder struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewChatSeeder creates a new chat seeder
func NewChatSeeder(pool *pgxpool.Pool, tables *postgres.TableNames, logger *slog.Logger) *ChatSeeder {
	return &ChatSeeder{
		pool:   pool,
		tables: tables,
		logger: logger,
	}
}

// SeedChatData creates a sample chat demonstrating the turn tree and sibling
// branching. IDs are fixed so re-running the seeder is idempotent.
func (s *ChatSeeder) SeedChatData(ctx context.Context, workspaceID, userID string) error {
	now := time.Now()

	chatID := "11111111-1111-1111-1111-111111111111"
	query := `INSERT INTO ` + s.tables.Chats + ` (id, workspace_id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`
	_, err := s.pool.Exec(ctx, query, chatID, workspaceID, userID, "Sample Chat - Story Analysis", now, now)
	if err != nil {
		return err
	}

	// Conversation tree with one branch point:
	//   Turn 1 (user): "Analyze the protagonist's character arc"
	//     └─ Turn 2 (assistant): "The protagonist shows growth..."
	//          ├─ Turn 3 (user): "What about the antagonist?"
	//          │    └─ Turn 4 (assistant): "The antagonist serves as..."
	//          └─ Turn 3' (user): "How does this compare to chapter two?"
	//               └─ Turn 4' (assistant): "Comparing the chapters..."

	turn1ID := "22222222-2222-2222-2222-222222222221"
	if err := s.insertTurn(ctx, turn1ID, chatID, nil, "user", "complete", nil, nil, now); err != nil {
		return err
	}
	if err := s.insertTextBlock(ctx, turn1ID, 0, "text", "Analyze the protagonist's character arc", now); err != nil {
		return err
	}

	turn2ID := "22222222-2222-2222-2222-222222222222"
	model := "claude-haiku-4-5-20251001"
	tokenCount := 150
	if err := s.insertTurn(ctx, turn2ID, chatID, &turn1ID, "assistant", "complete", &model, &tokenCount, now.Add(1*time.Second)); err != nil {
		return err
	}
	if err := s.insertTextBlock(ctx, turn2ID, 0, "thinking", "The user wants analysis of character development throughout the story.", now.Add(1*time.Second)); err != nil {
		return err
	}
	if err := s.insertTextBlock(ctx, turn2ID, 1, "text", "The protagonist shows significant growth throughout the narrative. Starting as a reluctant hero, they gradually embrace their role and demonstrate increasing agency. Key turning points include the confrontation in chapter three and the decision in chapter seven.", now.Add(1*time.Second)); err != nil {
		return err
	}

	// First branch: ask about the antagonist
	turn3ID := "22222222-2222-2222-2222-222222222223"
	if err := s.insertTurn(ctx, turn3ID, chatID, &turn2ID, "user", "complete", nil, nil, now.Add(2*time.Second)); err != nil {
		return err
	}
	if err := s.insertTextBlock(ctx, turn3ID, 0, "text", "What about the antagonist?", now.Add(2*time.Second)); err != nil {
		return err
	}

	turn4ID := "22222222-2222-2222-2222-222222222224"
	tokenCount4 := 120
	if err := s.insertTurn(ctx, turn4ID, chatID, &turn3ID, "assistant", "complete", &model, &tokenCount4, now.Add(3*time.Second)); err != nil {
		return err
	}
	if err := s.insertTextBlock(ctx, turn4ID, 0, "text", "The antagonist serves as a perfect foil to the protagonist's growth. While the protagonist learns to embrace change, the antagonist remains rigidly committed to their original worldview. This creates compelling dramatic tension.", now.Add(3*time.Second)); err != nil {
		return err
	}

	// Second branch from turn 2: siblings of turn 3
	turn3AltID := "22222222-2222-2222-2222-222222222233"
	if err := s.insertTurn(ctx, turn3AltID, chatID, &turn2ID, "user", "complete", nil, nil, now.Add(4*time.Second)); err != nil {
		return err
	}
	if err := s.insertTextBlock(ctx, turn3AltID, 0, "text", "How does this compare to chapter two?", now.Add(4*time.Second)); err != nil {
		return err
	}

	turn4AltID := "22222222-2222-2222-2222-222222222244"
	tokenCount4Alt := 140
	if err := s.insertTurn(ctx, turn4AltID, chatID, &turn3AltID, "assistant", "complete", &model, &tokenCount4Alt, now.Add(5*time.Second)); err != nil {
		return err
	}
	if err := s.insertTextBlock(ctx, turn4AltID, 0, "text", "Comparing to chapter two, we see accelerated growth. There the protagonist was still questioning their capabilities; by this point they have moved from doubt to decisive action, a complete transformation of their self-perception.", now.Add(5*time.Second)); err != nil {
		return err
	}

	return nil
}

func (s *ChatSeeder) insertTurn(ctx context.Context, turnID, chatID string, prevTurnID *string, role, status string, model *string, tokenCount *int, createdAt time.Time) error {
	query := `INSERT INTO ` + s.tables.Turns + ` (id, chat_id, prev_turn_id, role, status, model, input_tokens, output_tokens, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`
	_, err := s.pool.Exec(ctx, query, turnID, chatID, prevTurnID, role, status, model, tokenCount, tokenCount, createdAt, createdAt)
	return err
}

func (s *ChatSeeder) insertTextBlock(ctx context.Context, turnID string, sequence int, blockType, textContent string, createdAt time.Time) error {
	query := `INSERT INTO ` + s.tables.TurnBlocks + ` (turn_id, block_type, sequence, text_content, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (turn_id, sequence) DO NOTHING`
	_, err := s.pool.Exec(ctx, query, turnID, blockType, sequence, textContent, nil, createdAt)
	return err
}
