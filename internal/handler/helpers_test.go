package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"atelier/internal/domain"
)

func TestHandleErrorRateLimited(t *testing.T) {
	rec := httptest.NewRecorder()
	handleError(rec, &domain.RateLimitedError{Message: "request budget exhausted", RetryAfter: 42})

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if got := rec.Header().Get("Retry-After"); got != "42" {
		t.Errorf("Retry-After = %q, want %q", got, "42")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q, want problem+json", ct)
	}
}

func TestHandleErrorConflictExtras(t *testing.T) {
	rec := httptest.NewRecorder()
	handleError(rec, &domain.ConflictError{
		Message:      "document already exists",
		ResourceType: "document",
		ResourceID:   "doc-123",
	})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["resource_type"] != "document" {
		t.Errorf("resource_type = %v, want document", body["resource_type"])
	}
	if body["resource_id"] != "doc-123" {
		t.Errorf("resource_id = %v, want doc-123", body["resource_id"])
	}
}

func TestHandleErrorSentinels(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", fmt.Errorf("%w: name is required", domain.ErrValidation), http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: workspace", domain.ErrNotFound), http.StatusNotFound},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"rate limited sentinel", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"upstream", fmt.Errorf("%w: anthropic timed out", domain.ErrUpstream), http.StatusBadGateway},
		{"conflict sentinel", domain.ErrConflict, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleError(rec, tt.err)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandleErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	handleError(rec, errors.New("pq: connection refused"))

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["detail"] != "internal server error" {
		t.Errorf("detail = %v, internal errors must not leak", body["detail"])
	}
}

type conflictPayload struct {
	ID string `json:"id"`
}

func TestHandleCreateConflictFetchesExisting(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &domain.ConflictError{Message: "duplicate", ResourceType: "chat", ResourceID: "chat-9"}

	HandleCreateConflict(rec, err, func(existingID string) (*conflictPayload, error) {
		return &conflictPayload{ID: existingID}, nil
	})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	var got conflictPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if got.ID != "chat-9" {
		t.Errorf("existing ID = %q, want chat-9", got.ID)
	}
}

func TestHandleCreateConflictPassThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleCreateConflict(rec, fmt.Errorf("%w: bad name", domain.ErrValidation),
		func(existingID string) (*conflictPayload, error) {
			t.Fatal("fetchFn must not run for non-conflict errors")
			return nil, nil
		})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing", "", 25},
		{"valid", "limit=100", 100},
		{"malformed", "limit=abc", 25},
		{"negative", "limit=-5", -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			if got := QueryInt(r, "limit", 25); got != tt.want {
				t.Errorf("QueryInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	if _, ok := parseUUID(rec, "not-a-uuid", "turn id"); ok {
		t.Fatal("parseUUID accepted garbage")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = httptest.NewRecorder()
	id, ok := parseUUID(rec, "11111111-1111-1111-1111-111111111111", "turn id")
	if !ok {
		t.Fatal("parseUUID rejected a valid UUID")
	}
	if id.String() != "11111111-1111-1111-1111-111111111111" {
		t.Errorf("parsed = %s", id)
	}
}
