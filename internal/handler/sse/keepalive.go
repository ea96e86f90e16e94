package sse

import (
	"log/slog"
	"time"
)

// KeepAliveWriter abstracts the write side so keepalive logic can be tested
// without a live HTTP connection.
type KeepAliveWriter interface {
	// WriteKeepAlive writes one SSE comment line. An error means the
	// connection is gone.
	WriteKeepAlive() error
}

// TickerKeepAlive sends keepalive comments at a fixed interval until stopped
// or until a write fails.
type TickerKeepAlive struct {
	interval time.Duration
	done     chan struct{}
}

// NewTickerKeepAlive creates a ticker-based keepalive.
func NewTickerKeepAlive(interval time.Duration) *TickerKeepAlive {
	return &TickerKeepAlive{
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins sending keepalives. The returned channel closes when the
// keepalive loop exits, whether by Stop or by a failed write.
func (k *TickerKeepAlive) Start(writer KeepAliveWriter, logger *slog.Logger) <-chan struct{} {
	stopped := make(chan struct{})
	ticker := time.NewTicker(k.interval)

	go func() {
		defer close(stopped)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := writer.WriteKeepAlive(); err != nil {
					logger.Debug("keepalive write failed, client gone", "error", err)
					return
				}
			case <-k.done:
				return
			}
		}
	}()

	return stopped
}

// Stop terminates the keepalive loop. Safe to call multiple times.
func (k *TickerKeepAlive) Stop() {
	select {
	case <-k.done:
	default:
		close(k.done)
	}
}
