package sse

import (
	"fmt"
	"net/http"
)

// Writer writes SSE frames to one client connection, flushing after each
// write so events arrive immediately.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares an SSE response: sets the stream headers and returns a
// writer, or an error when the ResponseWriter cannot flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &Writer{w: w, flusher: flusher}, nil
}

// WriteEvent writes one pre-formatted SSE frame (already terminated with the
// blank line) and flushes.
func (s *Writer) WriteEvent(frame string) error {
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// WriteKeepAlive writes an SSE comment line. Comments are ignored by clients
// but keep intermediaries from closing the stream.
func (s *Writer) WriteKeepAlive() error {
	if _, err := fmt.Fprint(s.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive: %w", err)
	}
	s.flusher.Flush()
	return nil
}
