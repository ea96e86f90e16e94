package sse

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// plainWriter implements http.ResponseWriter without http.Flusher.
type plainWriter struct {
	header http.Header
}

func (p *plainWriter) Header() http.Header       { return p.header }
func (p *plainWriter) Write([]byte) (int, error) { return 0, nil }
func (p *plainWriter) WriteHeader(int)           {}

func TestNewWriterRequiresFlusher(t *testing.T) {
	if _, err := NewWriter(&plainWriter{header: http.Header{}}); err == nil {
		t.Fatal("NewWriter accepted a non-flushing ResponseWriter")
	}
}

func TestNewWriterSetsStreamHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	if _, err := NewWriter(rec); err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	want := map[string]string{
		"Content-Type":      "text/event-stream",
		"Cache-Control":     "no-cache",
		"Connection":        "keep-alive",
		"X-Accel-Buffering": "no",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("header %s = %q, want %q", k, got, v)
		}
	}
}

func TestWriteEventAndKeepAlive(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	frame := "event: block_delta\ndata: {\"text\":\"hi\"}\n\n"
	if err := w.WriteEvent(frame); err != nil {
		t.Fatalf("WriteEvent() error = %v", err)
	}
	if err := w.WriteKeepAlive(); err != nil {
		t.Fatalf("WriteKeepAlive() error = %v", err)
	}

	got := rec.Body.String()
	if got != frame+": keepalive\n\n" {
		t.Errorf("body = %q", got)
	}
	if !rec.Flushed {
		t.Error("writer did not flush")
	}
}

// countingKeepAlive records keepalive writes and can simulate a dead client.
type countingKeepAlive struct {
	writes atomic.Int32
	fail   atomic.Bool
}

func (c *countingKeepAlive) WriteKeepAlive() error {
	if c.fail.Load() {
		return errors.New("broken pipe")
	}
	c.writes.Add(1)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTickerKeepAliveStop(t *testing.T) {
	k := NewTickerKeepAlive(5 * time.Millisecond)
	w := &countingKeepAlive{}
	stopped := k.Start(w, discardLogger())

	time.Sleep(25 * time.Millisecond)
	k.Stop()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("keepalive loop did not stop")
	}

	if w.writes.Load() == 0 {
		t.Error("no keepalives written before stop")
	}

	// Stop is idempotent
	k.Stop()
}

func TestTickerKeepAliveExitsOnWriteError(t *testing.T) {
	k := NewTickerKeepAlive(5 * time.Millisecond)
	w := &countingKeepAlive{}
	w.fail.Store(true)
	stopped := k.Start(w, discardLogger())

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("keepalive loop did not exit after write failure")
	}
}
