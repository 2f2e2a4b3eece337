// Package metrics holds the Prometheus collectors shared by the server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultRegistry is the registry served on /metrics.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		ChatTotal, ChatDuration, LLMTokensTotal,
		ToolTotal, ToolDuration,
		BridgeTotal, ConversationsActive, RetrievalTotal,
	)
}

// ChatTotal counts chat turns by agent and outcome.
var ChatTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rommaana_chat_total",
		Help: "Chat turns processed by agent and outcome.",
	},
	[]string{"agent", "outcome"}, // tool | knowledge | generated | error
)

// ChatDuration is the end-to-end time of a chat turn.
var ChatDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "rommaana_chat_duration_seconds",
		Help:    "Chat turn latency in seconds.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"agent"},
)

// LLMTokensTotal sums tokens reported by the generation provider.
var LLMTokensTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rommaana_llm_tokens_total",
		Help: "Tokens reported by the generation provider.",
	},
	[]string{"agent"},
)

// ToolTotal counts tool executions.
var ToolTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rommaana_tool_total",
		Help: "Tool executions by tool and status.",
	},
	[]string{"tool", "status"}, // ok | error | not_found
)

// ToolDuration is the time spent inside tool functions.
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "rommaana_tool_duration_seconds",
		Help:    "Tool execution time in seconds.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// BridgeTotal counts knowledge bridge queries.
var BridgeTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rommaana_bridge_total",
		Help: "Knowledge bridge queries by outcome.",
	},
	[]string{"outcome"}, // answered | empty | failed | timeout | unavailable
)

// ConversationsActive is the number of conversations held in memory.
var ConversationsActive = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "rommaana_conversations_active",
		Help: "Conversations currently held in memory.",
	},
)

// RetrievalTotal counts vector store queries.
var RetrievalTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rommaana_retrieval_total",
		Help: "Vector store queries by outcome.",
	},
	[]string{"outcome"}, // hit | miss | error
)

// Handler serves DefaultRegistry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{})
}
