package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	chatModels "atelier/internal/domain/models/chat"
	"atelier/internal/handler/sse"
	"atelier/internal/httputil"
	"atelier/internal/metrics"
	"atelier/internal/service/llm/streaming"
)

// StreamHandler serves the SSE stream of a turn's generation.
//
// Live turns attach to the in-memory executor: persisted blocks replay as
// catchup events, then deltas arrive as they are generated. Finished turns
// (or turns whose executor was evicted) replay entirely from the database
// and the stream closes after the terminal event.
type StreamHandler struct {
	streaming *streaming.Service
	config    *sse.Config
	logger    *slog.Logger
}

// NewStreamHandler creates a new SSE stream handler
func NewStreamHandler(streamingService *streaming.Service, cfg *sse.Config, logger *slog.Logger) *StreamHandler {
	if cfg == nil {
		cfg = sse.DefaultConfig()
	}
	return &StreamHandler{
		streaming: streamingService,
		config:    cfg,
		logger:    logger,
	}
}

// StreamTurn streams turn events via Server-Sent Events
// GET /api/v1/turns/{id}/stream
func (h *StreamHandler) StreamTurn(w http.ResponseWriter, r *http.Request) {
	turnID, ok := PathParam(w, r, "id")
	if !ok {
		return
	}
	if _, ok := parseUUID(w, turnID, "turn ID"); !ok {
		return
	}
	userID := httputil.GetUserID(r)

	// Ownership check resolves the turn through its chat; foreign turns
	// read as not found.
	turn, err := h.streaming.GetOwnedTurn(r.Context(), turnID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	metrics.ActiveSSEStreams.Inc()
	defer metrics.ActiveSSEStreams.Dec()

	h.logger.Info("SSE client connected", "turn_id", turnID, "user_id", userID)

	executor := h.streaming.Executor(turnID)
	if executor == nil {
		h.replayFromStore(r, writer, turn)
		return
	}

	clientID := uuid.NewString()
	events := executor.AddClient(clientID)
	defer executor.RemoveClient(clientID)

	// Catchup runs in the background so a full client buffer cannot wedge
	// the handler before the read loop starts draining.
	go func() {
		if err := executor.HandleReconnection(r.Context(), clientID); err != nil {
			h.logger.Warn("SSE catchup failed", "turn_id", turnID, "error", err)
		}
	}()

	keepalive := sse.NewTickerKeepAlive(h.config.KeepAliveInterval)
	keepaliveStopped := keepalive.Start(writer, h.logger)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("SSE client disconnected", "turn_id", turnID)
			return

		case <-keepaliveStopped:
			return

		case event, open := <-events:
			if !open {
				// Executor finished and closed all client channels
				return
			}
			if err := writer.WriteEvent(event); err != nil {
				h.logger.Debug("SSE write failed", "turn_id", turnID, "error", err)
				return
			}
		}
	}
}

// replayFromStore streams a finished turn's events from the database. The
// Last-Event-ID header (block index of the last event the client saw) skips
// already-delivered catchup events; the terminal event always sends.
func (h *StreamHandler) replayFromStore(r *http.Request, writer *sse.Writer, turn *chatModels.Turn) {
	events, err := h.streaming.CatchupEvents(r.Context(), turn)
	if err != nil {
		h.logger.Error("failed to build catchup events", "turn_id", turn.ID, "error", err)
		return
	}

	skip := 0
	if lastEventID := r.Header.Get("Last-Event-ID"); lastEventID != "" {
		if n, err := strconv.Atoi(lastEventID); err == nil && n >= 0 {
			skip = n + 1
		}
	}

	for i, event := range events {
		// The final element is the terminal event; never skip it.
		if i < skip && i < len(events)-1 {
			continue
		}
		if err := writer.WriteEvent(event); err != nil {
			h.logger.Debug("SSE write failed during replay", "turn_id", turn.ID, "error", err)
			return
		}
	}
}
