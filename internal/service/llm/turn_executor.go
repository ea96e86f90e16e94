package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"atelier/internal/domain/models/chat"
	chatRepo "atelier/internal/domain/repositories/chat"
	domainllm "atelier/internal/domain/services/llm"
	"atelier/internal/metrics"
	"atelier/internal/service/llm/formatting"
	"atelier/internal/service/llm/tools"
)

// maxToolIterations bounds the tool loop per turn. When the model keeps
// requesting tools past the limit the turn completes with its tool_use
// blocks unanswered; replay sanitization backfills error results for them.
const maxToolIterations = 5

// TurnExecutor orchestrates streaming execution for a single turn.
//
// Responsibilities:
//   - Coordinate provider streaming, including tool-use rounds
//   - Accumulate deltas into TurnBlocks via BlockAccumulator
//   - Execute requested tools and persist their results
//   - Broadcast SSE events to all connected clients
//   - Handle context cancellation (interruption)
//   - Update turn status and metadata in the database
//   - Manage reconnection (catchup events)
//
// Thread-safety: methods are thread-safe. Multiple SSE clients can connect
// concurrently.
type TurnExecutor struct {
	turnID       string
	model        string
	turnRepo     chatRepo.TurnRepository
	provider     domainllm.LLMProvider
	toolRegistry *tools.ToolRegistry          // nil when tools are disabled
	formatters   *formatting.FormatterRegistry
	logger       *slog.Logger

	// Streaming state
	ctx         context.Context
	cancelFunc  context.CancelFunc
	accumulator *BlockAccumulator

	// indexOffset shifts provider block indexes, which restart at zero on
	// every tool round, onto turn-wide unique sequences.
	indexOffset int

	// SSE client management
	clients   map[string]chan string // clientID -> event channel
	clientsMu sync.RWMutex

	// Streaming status
	status    string // streaming, complete, error, cancelled
	statusMu  sync.RWMutex
	statusErr error // set when status is error

	// Metadata (populated when streaming completes)
	metadata   *domainllm.StreamMetadata
	metadataMu sync.RWMutex
}

// NewTurnExecutor creates a new TurnExecutor for a turn. toolRegistry may be
// nil, which disables tool execution for the turn.
func NewTurnExecutor(
	parentCtx context.Context,
	turnID string,
	model string,
	turnRepo chatRepo.TurnRepository,
	provider domainllm.LLMProvider,
	toolRegistry *tools.ToolRegistry,
	formatters *formatting.FormatterRegistry,
	logger *slog.Logger,
) *TurnExecutor {
	// Detach from the request context: generation outlives the HTTP request
	// that started it, but still honors Interrupt.
	ctx, cancel := context.WithCancel(context.WithoutCancel(parentCtx))

	return &TurnExecutor{
		turnID:       turnID,
		model:        model,
		turnRepo:     turnRepo,
		provider:     provider,
		toolRegistry: toolRegistry,
		formatters:   formatters,
		logger:       logger,
		ctx:          ctx,
		cancelFunc:   cancel,
		accumulator:  NewBlockAccumulator(turnID, turnRepo),
		clients:      make(map[string]chan string),
		status:       chat.TurnStatusStreaming,
	}
}

// Start begins streaming execution (non-blocking).
func (e *TurnExecutor) Start(req *domainllm.GenerateRequest) {
	go e.executeStreaming(req)
}

// Fail aborts a turn whose request could not be prepared (history load or
// message build failed before streaming began). Marks the turn errored and
// notifies connected clients, which would otherwise wait on a stream that
// never starts.
func (e *TurnExecutor) Fail(err error) {
	e.handleError(err)
}

// AddClient registers a new SSE client for this turn.
// Returns a channel that receives SSE-formatted event strings; the client
// should read from it until it closes.
func (e *TurnExecutor) AddClient(clientID string) <-chan string {
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()

	// Buffered so a slow reader does not stall the broadcast loop
	eventChan := make(chan string, 20)
	e.clients[clientID] = eventChan

	return eventChan
}

// RemoveClient unregisters an SSE client.
func (e *TurnExecutor) RemoveClient(clientID string) {
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()

	if ch, exists := e.clients[clientID]; exists {
		close(ch)
		delete(e.clients, clientID)
	}
}

// errClientGone signals that a client left or was closed out mid-catchup.
var errClientGone = errors.New("client no longer registered")

// sendCatchup delivers one catchup event to a registered client. Holding the
// read lock for the send means the channel cannot be closed underneath it:
// RemoveClient and closeAllClients need the write lock.
func (e *TurnExecutor) sendCatchup(ctx context.Context, clientID, event string) error {
	e.clientsMu.RLock()
	defer e.clientsMu.RUnlock()

	ch, ok := e.clients[clientID]
	if !ok {
		return errClientGone
	}

	select {
	case ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Interrupt cancels the streaming turn. Safe to call multiple times; a
// finished turn is unaffected.
func (e *TurnExecutor) Interrupt() {
	e.statusMu.Lock()
	if e.status == chat.TurnStatusStreaming {
		e.status = chat.TurnStatusCancelled
	}
	e.statusMu.Unlock()

	e.cancelFunc()
}

// GetStatus returns the current execution status:
// "streaming", "complete", "error" or "cancelled".
func (e *TurnExecutor) GetStatus() string {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return e.status
}

// GetError returns the error if status is "error", nil otherwise.
func (e *TurnExecutor) GetError() error {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return e.statusErr
}

// GetMetadata returns the final stream metadata (available after completion).
func (e *TurnExecutor) GetMetadata() *domainllm.StreamMetadata {
	e.metadataMu.RLock()
	defer e.metadataMu.RUnlock()
	return e.metadata
}

// HandleReconnection sends catchup events to a newly connected client:
// all persisted blocks plus the current partial block, then a terminal
// event if the turn already finished. RemoveClient owns channel close;
// catchup on an already-terminal turn removes the client after the terminal
// event so the handler's own RemoveClient becomes a no-op.
func (e *TurnExecutor) HandleReconnection(ctx context.Context, clientID string) error {
	blocks, err := e.turnRepo.GetTurnBlocks(ctx, e.turnID)
	if err != nil {
		return fmt.Errorf("failed to fetch turn blocks: %w", err)
	}

	status := e.GetStatus()

	var currentBlock *chat.TurnBlock
	if status == chat.TurnStatusStreaming {
		currentBlock = e.accumulator.GetCurrentBlock()
	}

	for i := range blocks {
		// The in-progress block may already have a partial row; the
		// in-memory copy below is fresher.
		if currentBlock != nil && blocks[i].Sequence == currentBlock.Sequence {
			continue
		}

		event, err := chat.NewBlockCatchupEvent(&blocks[i])
		if err != nil {
			return fmt.Errorf("failed to create catchup event: %w", err)
		}

		if err := e.sendCatchup(ctx, clientID, event); err != nil {
			if errors.Is(err, errClientGone) {
				return nil
			}
			return err
		}
	}

	switch status {
	case chat.TurnStatusStreaming:
		if currentBlock != nil {
			event, err := chat.NewBlockCatchupEvent(currentBlock)
			if err != nil {
				return fmt.Errorf("failed to create current block catchup event: %w", err)
			}

			if err := e.sendCatchup(ctx, clientID, event); err != nil {
				if errors.Is(err, errClientGone) {
					return nil
				}
				return err
			}
		}

		return nil

	case chat.TurnStatusComplete:
		// Turn already completed; send turn_complete so the SSE connection
		// ends gracefully. Executors are retained after completion for
		// late-arriving clients.
		if metadata := e.GetMetadata(); metadata != nil {
			event, err := chat.NewTurnCompleteEvent(
				e.turnID,
				metadata.StopReason,
				metadata.InputTokens,
				metadata.OutputTokens,
				metadata.ResponseMetadata,
			)
			if err != nil {
				return fmt.Errorf("failed to create turn complete event: %w", err)
			}

			if err := e.sendCatchup(ctx, clientID, event); err != nil {
				if errors.Is(err, errClientGone) {
					return nil
				}
				return err
			}
		}

	case chat.TurnStatusError:
		errorMsg := "unknown error"
		if statusErr := e.GetError(); statusErr != nil {
			errorMsg = statusErr.Error()
		}

		event, err := chat.NewTurnErrorEvent(e.turnID, errorMsg, nil)
		if err != nil {
			return fmt.Errorf("failed to create turn error event: %w", err)
		}

		if err := e.sendCatchup(ctx, clientID, event); err != nil {
			if errors.Is(err, errClientGone) {
				return nil
			}
			return err
		}

	case chat.TurnStatusCancelled:
		event, err := chat.NewTurnCancelledEvent(e.turnID, nil)
		if err != nil {
			return fmt.Errorf("failed to create cancellation event: %w", err)
		}

		if err := e.sendCatchup(ctx, clientID, event); err != nil {
			if errors.Is(err, errClientGone) {
				return nil
			}
			return err
		}
	}

	// Terminal status: close the client out so its event loop ends once the
	// buffered events drain.
	e.RemoveClient(clientID)

	return nil
}

// executeStreaming is the main streaming loop (runs in a goroutine). Each
// iteration streams one provider round; rounds that stop for tool use run
// the tools, persist their results and continue with an extended request.
func (e *TurnExecutor) executeStreaming(req *domainllm.GenerateRequest) {
	if err := e.turnRepo.UpdateTurnStatus(e.ctx, e.turnID, chat.TurnStatusStreaming, nil); err != nil {
		e.handleError(fmt.Errorf("failed to update turn status: %w", err))
		return
	}

	startEvent, _ := chat.NewTurnStartEvent(e.turnID, e.model)
	e.broadcast(startEvent)

	var totalInput, totalOutput int
	toolRounds := 0

	for {
		roundBlocks, metadata, err := e.streamRound(req)
		if err != nil {
			e.handleError(err)
			return
		}

		// Usage reported per provider call; the turn carries the sum.
		totalInput += metadata.InputTokens
		totalOutput += metadata.OutputTokens
		metadata.InputTokens = totalInput
		metadata.OutputTokens = totalOutput

		if metadata.StopReason != chat.StopReasonToolUse || e.toolRegistry == nil {
			e.handleCompletion(metadata, toolRounds)
			return
		}

		if toolRounds >= maxToolIterations {
			e.logger.Warn("tool iteration limit reached, completing turn",
				"turn_id", e.turnID,
				"limit", maxToolIterations,
			)
			e.handleCompletion(metadata, toolRounds)
			return
		}
		toolRounds++

		nextReq, err := e.continueWithTools(req, roundBlocks)
		if err != nil {
			e.handleError(err)
			return
		}
		req = nextReq
	}
}

// streamRound consumes one provider stream to completion. Returns the blocks
// flushed during the round and the round's metadata.
func (e *TurnExecutor) streamRound(req *domainllm.GenerateRequest) ([]*chat.TurnBlock, *domainllm.StreamMetadata, error) {
	streamChan, err := e.provider.StreamResponse(e.ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start provider streaming: %w", err)
	}

	var roundBlocks []*chat.TurnBlock
	currentBlockIndex := -1

	for streamEvent := range streamChan {
		if streamEvent.Error != nil {
			return roundBlocks, nil, streamEvent.Error
		}

		if streamEvent.Delta != nil {
			flushed, err := e.processDelta(streamEvent.Delta, &currentBlockIndex)
			if err != nil {
				return roundBlocks, nil, err
			}
			if flushed != nil {
				roundBlocks = append(roundBlocks, flushed)
			}
		}

		if streamEvent.Metadata != nil {
			// Flush the round's last block before tools run; tool_use input
			// is only parseable once its JSON is complete.
			lastBlock, err := e.accumulator.Finalize(e.ctx)
			if err != nil {
				return roundBlocks, nil, fmt.Errorf("failed to finalize block accumulator: %w", err)
			}
			if lastBlock != nil {
				blockStopEvent, _ := chat.NewBlockStopEvent(lastBlock.Sequence)
				e.broadcast(blockStopEvent)
				roundBlocks = append(roundBlocks, lastBlock)
			}
			return roundBlocks, streamEvent.Metadata, nil
		}
	}

	return roundBlocks, nil, fmt.Errorf("provider %s closed stream without metadata", e.provider.Name())
}

// processDelta handles a single TurnBlockDelta. Returns the previous block
// when this delta caused it to flush.
func (e *TurnExecutor) processDelta(delta *chat.TurnBlockDelta, currentBlockIndex *int) (*chat.TurnBlock, error) {
	delta.BlockIndex += e.indexOffset

	if delta.BlockIndex != *currentBlockIndex {
		blockStartEvent, _ := chat.NewBlockStartEvent(delta.BlockIndex, delta.BlockType)
		e.broadcast(blockStartEvent)

		*currentBlockIndex = delta.BlockIndex
	}

	deltaEvent, _ := chat.NewBlockDeltaEvent(delta)
	e.broadcast(deltaEvent)

	// Accumulate (may flush the previous block to the database)
	flushedBlock, err := e.accumulator.ProcessDelta(e.ctx, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to process delta: %w", err)
	}

	if flushedBlock != nil {
		blockStopEvent, _ := chat.NewBlockStopEvent(flushedBlock.Sequence)
		e.broadcast(blockStopEvent)
	}

	return flushedBlock, nil
}

// continueWithTools runs the tools requested in the finished round, writes
// their results as tool_result blocks on the same turn, and returns the
// continuation request: prior messages plus an assistant message with the
// round's blocks and a user message with the results.
func (e *TurnExecutor) continueWithTools(req *domainllm.GenerateRequest, roundBlocks []*chat.TurnBlock) (*domainllm.GenerateRequest, error) {
	calls := collectToolCalls(roundBlocks)
	if len(calls) == 0 {
		return nil, fmt.Errorf("provider stopped for tool use but streamed no tool_use blocks")
	}

	e.logger.Info("executing tools",
		"turn_id", e.turnID,
		"tool_count", len(calls),
	)

	results := e.toolRegistry.ExecuteParallel(e.ctx, calls)
	if err := e.ctx.Err(); err != nil {
		return nil, err
	}

	resultBlocks, err := e.persistToolResults(results)
	if err != nil {
		return nil, err
	}

	next := *req
	next.Messages = make([]domainllm.Message, 0, len(req.Messages)+2)
	next.Messages = append(next.Messages, req.Messages...)
	next.Messages = append(next.Messages,
		domainllm.Message{Role: chat.RoleAssistant, Content: roundBlocks},
		domainllm.Message{Role: chat.RoleUser, Content: resultBlocks},
	)

	return &next, nil
}

// collectToolCalls extracts tool invocations from a round's tool_use blocks.
func collectToolCalls(blocks []*chat.TurnBlock) []tools.ToolCall {
	var calls []tools.ToolCall
	for _, block := range blocks {
		if block.BlockType != chat.BlockTypeToolUse || block.Content == nil {
			continue
		}

		id, _ := block.Content["tool_use_id"].(string)
		name, _ := block.Content["tool_name"].(string)
		input, _ := block.Content["input"].(map[string]interface{})
		if input == nil {
			input = map[string]interface{}{}
		}

		calls = append(calls, tools.ToolCall{ID: id, Name: name, Input: input})
	}
	return calls
}

// persistToolResults writes tool results as tool_result blocks following the
// round's streamed blocks. The raw result is kept in the JSONB payload; the
// formatted rendering the model sees goes to text_content. Each block is
// broadcast so connected clients see results as they land.
func (e *TurnExecutor) persistToolResults(results []tools.ToolResult) ([]*chat.TurnBlock, error) {
	startSeq := e.accumulator.GetLastWrittenSequence() + 1

	blocks := make([]*chat.TurnBlock, 0, len(results))
	for i, result := range results {
		var text string
		content := map[string]interface{}{
			"tool_use_id": result.ID,
			"tool_name":   result.Name,
		}

		if result.IsError {
			content["is_error"] = true
			text = "tool execution failed"
			if result.Error != nil {
				text = result.Error.Error()
			}
			content["result"] = text
		} else {
			content["result"] = result.Result
			formatted := result.Result
			if e.formatters != nil {
				formatted = e.formatters.Format(result.Name, result.Result)
			}
			text = formatting.RenderText(formatted)
		}

		block := &chat.TurnBlock{
			TurnID:      e.turnID,
			BlockType:   chat.BlockTypeToolResult,
			Sequence:    startSeq + i,
			TextContent: &text,
			Content:     content,
		}

		if err := e.turnRepo.CreateTurnBlock(e.ctx, block); err != nil {
			return nil, fmt.Errorf("failed to persist tool result: %w", err)
		}

		if catchupEvent, err := chat.NewBlockCatchupEvent(block); err == nil {
			e.broadcast(catchupEvent)
		}

		blocks = append(blocks, block)
	}

	// The next round's provider indexes restart at zero; shift them past
	// everything written so far.
	e.indexOffset = startSeq + len(results)

	return blocks, nil
}

// handleCompletion handles successful stream completion. The final block was
// already flushed by the last round.
func (e *TurnExecutor) handleCompletion(metadata *domainllm.StreamMetadata, toolRounds int) {
	if toolRounds > 0 {
		if metadata.ResponseMetadata == nil {
			metadata.ResponseMetadata = make(map[string]interface{})
		}
		metadata.ResponseMetadata["tool_rounds"] = toolRounds
	}

	if err := e.updateTurnMetadata(metadata); err != nil {
		e.handleError(fmt.Errorf("failed to update turn metadata: %w", err))
		return
	}

	e.metadataMu.Lock()
	e.metadata = metadata
	e.metadataMu.Unlock()

	e.statusMu.Lock()
	e.status = chat.TurnStatusComplete
	e.statusMu.Unlock()

	if err := e.turnRepo.UpdateTurnStatus(e.ctx, e.turnID, chat.TurnStatusComplete, nil); err != nil {
		// Content and metadata are already persisted; log and move on
		e.logger.Error("failed to mark turn complete", "turn_id", e.turnID, "error", err)
	}

	metrics.LLMRequestsTotal.WithLabelValues(e.provider.Name(), metadata.Model, "success").Inc()
	metrics.LLMTokensTotal.WithLabelValues(e.provider.Name(), metadata.Model, "input").Add(float64(metadata.InputTokens))
	metrics.LLMTokensTotal.WithLabelValues(e.provider.Name(), metadata.Model, "output").Add(float64(metadata.OutputTokens))

	e.logger.Info("turn streaming complete",
		"turn_id", e.turnID,
		"model", metadata.Model,
		"input_tokens", metadata.InputTokens,
		"output_tokens", metadata.OutputTokens,
		"stop_reason", metadata.StopReason,
	)

	completeEvent, _ := chat.NewTurnCompleteEvent(
		e.turnID,
		metadata.StopReason,
		metadata.InputTokens,
		metadata.OutputTokens,
		metadata.ResponseMetadata,
	)
	e.broadcast(completeEvent)

	e.closeAllClients()
}

// handleError handles streaming failures and interruption. Partial content
// is flushed either way; interruption marks the turn cancelled instead of
// errored.
func (e *TurnExecutor) handleError(err error) {
	// After an interrupt e.ctx is already cancelled; the partial flush is
	// the whole point of interrupting gracefully, so it gets its own
	// context.
	flushCtx := e.ctx
	if e.ctx.Err() != nil {
		var cancel context.CancelFunc
		flushCtx, cancel = context.WithTimeout(context.WithoutCancel(e.ctx), 5*time.Second)
		defer cancel()
	}

	lastBlock, finalizeErr := e.accumulator.Finalize(flushCtx)
	if finalizeErr != nil && !errors.Is(finalizeErr, context.Canceled) {
		e.logger.Warn("failed to flush partial content", "turn_id", e.turnID, "error", finalizeErr)
	}

	var lastBlockIndex *int
	if lastBlock != nil {
		idx := lastBlock.Sequence
		lastBlockIndex = &idx
	}

	if e.wasInterrupted(err) {
		e.handleCancellation(lastBlockIndex)
		return
	}

	e.statusMu.Lock()
	e.status = chat.TurnStatusError
	e.statusErr = err
	e.statusMu.Unlock()

	if updateErr := e.turnRepo.UpdateTurnError(e.ctx, e.turnID, err.Error()); updateErr != nil {
		e.logger.Error("failed to record turn error", "turn_id", e.turnID, "error", updateErr)
	}

	metrics.LLMRequestsTotal.WithLabelValues(e.provider.Name(), e.model, "error").Inc()

	e.logger.Error("turn streaming failed", "turn_id", e.turnID, "model", e.model, "error", err)

	errorEvent, _ := chat.NewTurnErrorEvent(e.turnID, err.Error(), lastBlockIndex)
	e.broadcast(errorEvent)

	e.closeAllClients()
}

// wasInterrupted reports whether err is the result of Interrupt rather than
// a provider failure.
func (e *TurnExecutor) wasInterrupted(err error) bool {
	if e.GetStatus() == chat.TurnStatusCancelled {
		return true
	}
	return errors.Is(err, context.Canceled)
}

// handleCancellation marks the turn cancelled after an interrupt. Flushing
// already happened in handleError; the cancellation write uses a fresh
// context because e.ctx is already cancelled.
func (e *TurnExecutor) handleCancellation(lastBlockIndex *int) {
	e.statusMu.Lock()
	e.status = chat.TurnStatusCancelled
	e.statusMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.turnRepo.UpdateTurnStatus(ctx, e.turnID, chat.TurnStatusCancelled, nil); err != nil {
		e.logger.Error("failed to mark turn cancelled", "turn_id", e.turnID, "error", err)
	}

	metrics.LLMRequestsTotal.WithLabelValues(e.provider.Name(), e.model, "cancelled").Inc()

	e.logger.Info("turn streaming cancelled", "turn_id", e.turnID)

	cancelEvent, _ := chat.NewTurnCancelledEvent(e.turnID, lastBlockIndex)
	e.broadcast(cancelEvent)

	e.closeAllClients()
}

// broadcast sends an SSE event to all connected clients.
func (e *TurnExecutor) broadcast(event string) {
	e.clientsMu.RLock()
	defer e.clientsMu.RUnlock()

	for clientID, ch := range e.clients {
		select {
		case ch <- event:
		default:
			// Client channel full; skip, the client will reconnect for catchup
			e.logger.Debug("dropping event for slow SSE client", "turn_id", e.turnID, "client_id", clientID)
		}
	}
}

// closeAllClients closes every client channel, ending their SSE connections.
func (e *TurnExecutor) closeAllClients() {
	e.clientsMu.Lock()
	defer e.clientsMu.Unlock()

	for clientID, ch := range e.clients {
		close(ch)
		delete(e.clients, clientID)
	}
}

// updateTurnMetadata updates the turn with final metadata.
func (e *TurnExecutor) updateTurnMetadata(metadata *domainllm.StreamMetadata) error {
	return e.turnRepo.UpdateTurnMetadata(e.ctx, e.turnID, map[string]interface{}{
		"model":             metadata.Model,
		"input_tokens":      metadata.InputTokens,
		"output_tokens":     metadata.OutputTokens,
		"stop_reason":       metadata.StopReason,
		"response_metadata": metadata.ResponseMetadata,
		"completed_at":      time.Now(),
	})
}
