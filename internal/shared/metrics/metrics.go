// Package metrics registers the Prometheus instruments for the dashboard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LLMCalls counts orchestrated vendor call attempts by model and outcome.
	LLMCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_calls_total",
		Help: "LLM call attempts by model and status.",
	}, []string{"model", "status"})

	// LLMTokens counts billed tokens by model and direction (input/output).
	LLMTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Tokens consumed by model and direction.",
	}, []string{"model", "direction"})

	// LLMLatency observes vendor call latency in seconds.
	LLMLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_call_duration_seconds",
		Help:    "Wall-clock duration of vendor LLM calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	// CacheRequests counts dashboard cache lookups by entry and result.
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_cache_requests_total",
		Help: "Dashboard cache lookups by entry name and hit/miss.",
	}, []string{"entry", "result"})
)
