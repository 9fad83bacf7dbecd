// Package observability publishes engine lifecycle events as
// Prometheus metrics. It plugs into the pipeline through
// domain.LifecycleHooks, so the engine itself stays metrics-free.
package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/arbor/pkg/domain"
)

// Metrics holds the engine metric set.
type Metrics struct {
	rounds      *prometheus.CounterVec
	candidates  *prometheus.HistogramVec
	expansions  *prometheus.CounterVec
	nodeDepth   *prometheus.HistogramVec
	validations *prometheus.CounterVec
	toolCalls   *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewMetrics creates the metric set and registers it. A nil registerer
// falls back to the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		rounds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_search_rounds_total",
				Help: "Total number of search rounds",
			},
			[]string{"stage"},
		),
		candidates: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arbor_search_candidates",
				Help:    "Candidates selected per search round",
				Buckets: prometheus.LinearBuckets(1, 1, 8),
			},
			[]string{"stage"},
		),
		expansions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_node_expansions_total",
				Help: "Total number of nodes produced by the gateway",
			},
			[]string{"stage"},
		),
		nodeDepth: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arbor_node_depth",
				Help:    "Depth of expanded nodes",
				Buckets: prometheus.LinearBuckets(1, 5, 10),
			},
			[]string{"stage"},
		),
		validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_validations_total",
				Help: "Total number of node validations by outcome",
			},
			[]string{"stage", "outcome"},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_tool_calls_total",
				Help: "Total number of tool calls by tool and outcome",
			},
			[]string{"stage", "tool", "outcome"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_transitions_total",
				Help: "Total number of machine transitions by event",
			},
			[]string{"event", "state"},
		),
	}

	reg.MustRegister(m.rounds, m.candidates, m.expansions, m.nodeDepth, m.validations, m.toolCalls, m.transitions)
	return m
}

// Hooks returns lifecycle hooks feeding this metric set.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRound: func(_ context.Context, stage string, round, candidates int) {
			m.rounds.WithLabelValues(stage).Inc()
			m.candidates.WithLabelValues(stage).Observe(float64(candidates))
		},
		OnNodeExpand: func(_ context.Context, stage string, node *domain.Node) {
			m.expansions.WithLabelValues(stage).Inc()
			m.nodeDepth.WithLabelValues(stage).Observe(float64(node.Depth))
		},
		OnValidation: func(_ context.Context, stage string, _ *domain.Node, feedback string) {
			outcome := "pass"
			if feedback != "" {
				outcome = "fail"
			}
			m.validations.WithLabelValues(stage, outcome).Inc()
		},
		OnToolCall: func(_ context.Context, stage, tool string, isError bool) {
			outcome := "ok"
			if isError {
				outcome = "error"
			}
			m.toolCalls.WithLabelValues(stage, tool, outcome).Inc()
		},
		OnTransition: func(_ context.Context, event string, path []string) {
			state := ""
			if len(path) > 0 {
				state = path[len(path)-1]
			}
			m.transitions.WithLabelValues(event, state).Inc()
		},
	}
}

// Handler returns the /metrics handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
