package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"atelier/internal/domain/models/chat"
	chatRepo "atelier/internal/domain/repositories/chat"
)

// partialFlushThreshold is how much text may accumulate before the current
// block is upserted as a partial row. Keeps reconnect catchup close to live
// for long text blocks without a write per delta.
const partialFlushThreshold = 2000

// BlockAccumulator accumulates streaming deltas into complete TurnBlocks.
//
// Flow:
//  1. Receive TurnBlockDelta events from the provider stream
//  2. Accumulate deltas for the current block in memory
//  3. When the block index changes, flush the finished block to the database
//  4. Return the flushed block for SSE broadcast
//
// Long text and thinking blocks are additionally upserted mid-block every
// partialFlushThreshold runes, so catchup after a reconnect does not lose
// the block in progress.
//
// Thread-safety: NOT thread-safe. Single goroutine use only (TurnExecutor).
type BlockAccumulator struct {
	turnID   string
	turnRepo chatRepo.TurnRepository

	// Current block being accumulated
	currentBlockIndex    int
	currentBlockType     string
	accumulatedText      strings.Builder // text and thinking content
	accumulatedJSON      strings.Builder // tool_use input JSON
	accumulatedSignature strings.Builder // thinking signature material

	// tool_call metadata for tool_use blocks
	toolCallID   *string
	toolCallName *string

	// Partial flush bookkeeping
	runesSincePartialFlush int
	flushedPartial         bool

	lastWrittenSequence int
}

// NewBlockAccumulator creates a new BlockAccumulator for a turn.
func NewBlockAccumulator(turnID string, turnRepo chatRepo.TurnRepository) *BlockAccumulator {
	return &BlockAccumulator{
		turnID:              turnID,
		turnRepo:            turnRepo,
		currentBlockIndex:   -1, // no block started yet
		lastWrittenSequence: -1, // no blocks written yet
	}
}

// ProcessDelta processes a single TurnBlockDelta event.
// Returns the flushed TurnBlock if a block was completed, nil otherwise.
func (acc *BlockAccumulator) ProcessDelta(ctx context.Context, delta *chat.TurnBlockDelta) (*chat.TurnBlock, error) {
	if delta.BlockIndex != acc.currentBlockIndex {
		flushedBlock, err := acc.flushCurrentBlock(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to flush block %d: %w", acc.currentBlockIndex, err)
		}

		acc.startNewBlock(delta)

		return flushedBlock, nil
	}

	acc.accumulateDelta(delta)

	if err := acc.maybeFlushPartial(ctx); err != nil {
		return nil, err
	}

	return nil, nil
}

// Finalize flushes any remaining accumulated block (called when streaming
// completes, errors, or is interrupted). Partial content survives this way.
func (acc *BlockAccumulator) Finalize(ctx context.Context) (*chat.TurnBlock, error) {
	if acc.currentBlockIndex == -1 {
		return nil, nil
	}

	return acc.flushCurrentBlock(ctx)
}

// GetLastWrittenSequence returns the sequence of the last block written to
// the database. Used for tracking progress and reconnection.
func (acc *BlockAccumulator) GetLastWrittenSequence() int {
	return acc.lastWrittenSequence
}

// startNewBlock initializes accumulator state for a new block. The previous
// block's state was cleared by its flush.
func (acc *BlockAccumulator) startNewBlock(delta *chat.TurnBlockDelta) {
	acc.currentBlockIndex = delta.BlockIndex
	if delta.BlockType != nil {
		acc.currentBlockType = *delta.BlockType
	} else {
		// A delta for a new index without a block_start type; treat as text
		// so the content is not lost.
		acc.currentBlockType = chat.BlockTypeText
	}

	acc.accumulateDelta(delta)
}

// accumulateDelta adds delta content to the current block.
func (acc *BlockAccumulator) accumulateDelta(delta *chat.TurnBlockDelta) {
	if delta.TextDelta != nil {
		acc.accumulatedText.WriteString(*delta.TextDelta)
		acc.runesSincePartialFlush += len(*delta.TextDelta)
	}

	if delta.InputJSONDelta != nil {
		acc.accumulatedJSON.WriteString(*delta.InputJSONDelta)
	}

	if delta.SignatureDelta != nil {
		acc.accumulatedSignature.WriteString(*delta.SignatureDelta)
	}

	// tool_call metadata may arrive on a later delta than block start
	if delta.ToolCallID != nil {
		acc.toolCallID = delta.ToolCallID
	}
	if delta.ToolCallName != nil {
		acc.toolCallName = delta.ToolCallName
	}
}

// maybeFlushPartial upserts the in-progress text block once enough content
// has accumulated. Only text and thinking blocks flush partially; tool_use
// input is useless until its JSON is complete.
func (acc *BlockAccumulator) maybeFlushPartial(ctx context.Context) error {
	if acc.runesSincePartialFlush < partialFlushThreshold {
		return nil
	}
	if acc.currentBlockType != chat.BlockTypeText && acc.currentBlockType != chat.BlockTypeThinking {
		return nil
	}

	block := acc.GetCurrentBlock()
	if block == nil {
		return nil
	}

	if err := acc.turnRepo.UpsertPartialTextBlock(ctx, block); err != nil {
		return fmt.Errorf("failed to flush partial block %d: %w", acc.currentBlockIndex, err)
	}

	acc.runesSincePartialFlush = 0
	acc.flushedPartial = true
	return nil
}

// flushCurrentBlock writes the accumulated block to the database.
// Returns the written block or nil if no block to flush.
func (acc *BlockAccumulator) flushCurrentBlock(ctx context.Context) (*chat.TurnBlock, error) {
	if acc.currentBlockIndex == -1 {
		return nil, nil
	}

	block := &chat.TurnBlock{
		TurnID:    acc.turnID,
		BlockType: acc.currentBlockType,
		Sequence:  acc.currentBlockIndex,
	}

	text := acc.accumulatedText.String()
	if text != "" {
		block.TextContent = &text
	}

	content := make(map[string]interface{})

	switch acc.currentBlockType {
	case chat.BlockTypeText:
		// text lives in text_content, no JSONB payload
		block.Content = nil

	case chat.BlockTypeThinking:
		if sig := acc.accumulatedSignature.String(); sig != "" {
			content["signature"] = sig
		}
		if len(content) > 0 {
			block.Content = content
		}

	case chat.BlockTypeToolUse:
		if acc.toolCallID != nil {
			content["tool_use_id"] = *acc.toolCallID
		}
		if acc.toolCallName != nil {
			content["tool_name"] = *acc.toolCallName
		}

		jsonStr := acc.accumulatedJSON.String()
		if jsonStr != "" {
			var inputData map[string]interface{}
			if err := json.Unmarshal([]byte(jsonStr), &inputData); err != nil {
				return nil, fmt.Errorf("failed to parse tool input JSON: %w", err)
			}
			content["input"] = inputData
		} else {
			// Providers send no input deltas for zero-argument tools
			content["input"] = map[string]interface{}{}
		}

		block.Content = content

	default:
		block.Content = nil
	}

	// A block that was partially flushed already has a row; finish it with
	// the same upsert path. Fresh blocks insert directly.
	var err error
	if acc.flushedPartial {
		err = acc.turnRepo.UpsertPartialTextBlock(ctx, block)
	} else {
		err = acc.turnRepo.CreateTurnBlock(ctx, block)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write turn block: %w", err)
	}

	acc.lastWrittenSequence = acc.currentBlockIndex
	acc.resetCurrent()

	return block, nil
}

// resetCurrent clears in-progress state after a flush so a later Finalize
// cannot write the same block twice. Tool-use rounds reuse the accumulator
// across provider streams, which makes a stray double flush possible
// otherwise.
func (acc *BlockAccumulator) resetCurrent() {
	acc.currentBlockIndex = -1
	acc.currentBlockType = ""
	acc.accumulatedText.Reset()
	acc.accumulatedJSON.Reset()
	acc.accumulatedSignature.Reset()
	acc.toolCallID = nil
	acc.toolCallName = nil
	acc.runesSincePartialFlush = 0
	acc.flushedPartial = false
}

// GetCurrentBlock returns the block being accumulated, for catchup events
// and partial flushes. Does NOT write to the database. Returns nil if no
// block is in progress.
func (acc *BlockAccumulator) GetCurrentBlock() *chat.TurnBlock {
	if acc.currentBlockIndex == -1 {
		return nil
	}

	block := &chat.TurnBlock{
		TurnID:    acc.turnID,
		BlockType: acc.currentBlockType,
		Sequence:  acc.currentBlockIndex,
	}

	text := acc.accumulatedText.String()
	if text != "" {
		block.TextContent = &text
	}

	content := make(map[string]interface{})

	switch acc.currentBlockType {
	case chat.BlockTypeThinking:
		if sig := acc.accumulatedSignature.String(); sig != "" {
			content["signature"] = sig
		}
		if len(content) > 0 {
			block.Content = content
		}

	case chat.BlockTypeToolUse:
		if acc.toolCallID != nil {
			content["tool_use_id"] = *acc.toolCallID
		}
		if acc.toolCallName != nil {
			content["tool_name"] = *acc.toolCallName
		}

		// Input JSON may be incomplete mid-stream; mark it as partial
		if jsonStr := acc.accumulatedJSON.String(); jsonStr != "" {
			content["input_partial"] = jsonStr
		}

		if len(content) > 0 {
			block.Content = content
		}
	}

	return block
}
