// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// MemoryStoreDuration tracks calls to the remote memory store.
	MemoryStoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memstore_request_duration_seconds",
			Help:    "Memory store request duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"operation", "outcome"},
	)

	// ReplyDuration tracks reply generation latency.
	ReplyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reply_duration_seconds",
			Help:    "Reply generation duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"generator", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// RemoteWriteFailures counts best-effort writes that did not reach the memory store.
	RemoteWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_remote_write_failures_total",
			Help: "Remote writes dropped after a failure",
		},
		[]string{"operation"},
	)

	// SessionsCreatedTotal tracks sessions created lazily on first message.
	SessionsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsync_sessions_created_total",
			Help: "Sessions created in the memory store",
		},
	)

	// LocalCacheEntries tracks the size of the local session cache.
	LocalCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "localcache_entries",
			Help: "Number of session summaries in the local cache",
		},
	)

	// MessagesTotal tracks total messages sent.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages sent",
		},
		[]string{"role"},
	)

	// EventsPublished tracks session events published to NATS.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_events_published_total",
			Help: "Session events published to JetStream",
		},
		[]string{"type", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordMemoryStore records one memory store call.
func RecordMemoryStore(operation, outcome string, duration float64) {
	MemoryStoreDuration.WithLabelValues(operation, outcome).Observe(duration)
}

// RecordReply records metrics for a reply generation.
func RecordReply(generator, status string, duration float64) {
	ReplyDuration.WithLabelValues(generator, status).Observe(duration)
}

// RecordLLMTokens records token usage for an LLM completion.
func RecordLLMTokens(model string, tokensIn, tokensOut int) {
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}
