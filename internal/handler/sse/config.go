// Package sse provides the plumbing for Server-Sent Event responses:
// comment keepalives and event writing over a flushed http.ResponseWriter.
package sse

import "time"

// Config holds tunables for SSE connections.
type Config struct {
	// KeepAliveInterval is how often comment keepalives are sent so
	// proxies do not reap an idle stream.
	KeepAliveInterval time.Duration
}

// DefaultConfig returns the default SSE configuration. 15 seconds stays
// under the idle timeouts of common reverse proxies.
func DefaultConfig() *Config {
	return &Config{
		KeepAliveInterval: 15 * time.Second,
	}
}
