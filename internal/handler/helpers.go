package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"atelier/internal/domain"
	"atelier/internal/httputil"
)

// handleError converts domain errors to problem+json responses. Typed errors
// carry their own status; sentinel wrapping covers the service layer's
// fmt.Errorf("%w: ...") style.
func handleError(w http.ResponseWriter, err error) {
	var rateLimited *domain.RateLimitedError
	if errors.As(err, &rateLimited) {
		w.Header().Set("Retry-After", strconv.Itoa(rateLimited.RetryAfter))
		httputil.RespondError(w, http.StatusTooManyRequests, rateLimited.Error())
		return
	}

	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		extras := map[string]interface{}{}
		if conflict.ResourceType != "" {
			extras["resource_type"] = conflict.ResourceType
		}
		if conflict.ResourceID != "" {
			extras["resource_id"] = conflict.ResourceID
		}
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflict.Error(), extras)
		return
	}

	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), err.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		httputil.RespondError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrUpstream):
		httputil.RespondError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// HandleCreateConflict handles duplicate creates by returning the existing
// resource with 409. The conflicting resource's ID rides on the ConflictError,
// so fetchFn only needs to load it.
func HandleCreateConflict[T any](w http.ResponseWriter, err error, fetchFn func(existingID string) (*T, error)) {
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) && conflict.ResourceID != "" {
		existing, fetchErr := fetchFn(conflict.ResourceID)
		if fetchErr != nil {
			handleError(w, fetchErr)
			return
		}
		httputil.RespondJSON(w, http.StatusConflict, existing)
		return
	}

	handleError(w, err)
}

// PathParam reads a route wildcard and 400s when it is empty.
// Returns false after writing the response.
func PathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		httputil.RespondError(w, http.StatusBadRequest, name+" is required")
		return "", false
	}
	return value, true
}

// QueryInt reads an integer query parameter with a default.
// A malformed value falls back to the default rather than erroring.
func QueryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// parseUUID validates and parses a UUID path value, writing a 400 on failure.
func parseUUID(w http.ResponseWriter, value, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(value)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
