package handler

import (
	"log/slog"
	"net/http"

	"atelier/internal/domain/models/studio"
	"atelier/internal/httputil"
	studioSvc "atelier/internal/service/studio"
)

// StudioHandler serves the one-shot generation endpoints. Every endpoint
// follows the same shape: parse, delegate, mark cache status, respond.
type StudioHandler struct {
	studio *studioSvc.Service
	logger *slog.Logger
}

// NewStudioHandler creates a new studio handler
func NewStudioHandler(service *studioSvc.Service, logger *slog.Logger) *StudioHandler {
	return &StudioHandler{
		studio: service,
		logger: logger,
	}
}

// markCache sets the X-Cache header so clients can tell replayed responses
// from fresh generations.
func markCache(w http.ResponseWriter, hit bool) {
	if hit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
}

// Invoke runs a generic one-shot model invocation
// POST /api/v1/model
func (h *StudioHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	var req studio.InvokeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, cached, err := h.studio.Invoke(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	markCache(w, cached)
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// GenerateStory generates a short story from genre, character, and setting
// POST /api/v1/story
func (h *StudioHandler) GenerateStory(w http.ResponseWriter, r *http.Request) {
	var req studio.StoryRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, cached, err := h.studio.GenerateStory(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	markCache(w, cached)
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// GenerateNames produces schema-validated naming candidates
// POST /api/v1/names
func (h *StudioHandler) GenerateNames(w http.ResponseWriter, r *http.Request) {
	var req studio.NamesRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, cached, err := h.studio.GenerateNames(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	markCache(w, cached)
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// Summarize summarizes raw text or a library document
// POST /api/v1/summaries
func (h *StudioHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req studio.SummaryRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, cached, err := h.studio.Summarize(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	markCache(w, cached)
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// ReviewCode reviews a submitted diff
// POST /api/v1/reviews
func (h *StudioHandler) ReviewCode(w http.ResponseWriter, r *http.Request) {
	var req studio.ReviewRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, cached, err := h.studio.ReviewCode(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	markCache(w, cached)
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// AnswerQuestion answers a question from a workspace's documents
// POST /api/v1/search
func (h *StudioHandler) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	var req studio.SearchRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, cached, err := h.studio.AnswerQuestion(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	markCache(w, cached)
	httputil.RespondJSON(w, http.StatusOK, resp)
}
