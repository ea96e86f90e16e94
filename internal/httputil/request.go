package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ParseJSON decodes a JSON request body into dest, capped at 10MB.
// The writer is needed so MaxBytesReader can answer oversized bodies with 413.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)

	decoder := json.NewDecoder(r.Body)
	// Unknown fields are allowed: request_params and similar maps carry
	// provider-specific knobs that validation handles downstream.

	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}
