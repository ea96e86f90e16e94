// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atelier_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atelier_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atelier_llm_requests_total",
			Help: "Total number of model provider requests by provider, model and outcome",
		},
		[]string{"provider", "model", "outcome"},
	)

	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atelier_llm_tokens_total",
			Help: "Total tokens exchanged with model providers by direction (input/output)",
		},
		[]string{"provider", "model", "direction"},
	)

	ActiveSSEStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "atelier_sse_streams_active",
			Help: "Number of currently open SSE streams",
		},
	)

	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atelier_cache_hits_total",
			Help: "Total cache hits by cache name",
		},
		[]string{"cache"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atelier_cache_misses_total",
			Help: "Total cache misses by cache name",
		},
		[]string{"cache"},
	)

	RateLimitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atelier_rate_limit_rejections_total",
			Help: "Total requests rejected by the rate limiter by route class",
		},
		[]string{"class"},
	)
)
