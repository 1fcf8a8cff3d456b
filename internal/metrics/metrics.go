// Package metrics holds the Prometheus collectors of the service.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "supportdesk"

// Metrics groups the service collectors.
type Metrics struct {
	registry *prometheus.Registry

	routerDecisions   *prometheus.CounterVec
	compactions       *prometheus.CounterVec
	agentTurns        *prometheus.CounterVec
	agentSteps        prometheus.Histogram
	toolCalls         *prometheus.CounterVec
	backgroundTasks   *prometheus.CounterVec
	rateLimited       prometheus.Counter
	generationLatency *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		routerDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "router_decisions_total",
			Help:      "Router classifications by agent and whether the fallback was used.",
		}, []string{"agent", "fallback"}),
		compactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compactions_total",
			Help:      "Conversation compactions by summary source (model or fallback).",
		}, []string{"source"}),
		agentTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_turns_total",
			Help:      "Agent turns by agent and outcome.",
		}, []string{"agent", "outcome"}),
		agentSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_steps",
			Help:      "Model steps used per agent turn.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8},
		}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool calls by tool and policy decision.",
		}, []string{"tool", "decision"}),
		backgroundTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "background_tasks_total",
			Help:      "Background tasks by name and outcome.",
		}, []string{"task", "outcome"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_seconds",
			Help:      "Model call latency by kind (route, summarize, agent).",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	reg.MustRegister(m.routerDecisions, m.compactions, m.agentTurns, m.agentSteps,
		m.toolCalls, m.backgroundTasks, m.rateLimited, m.generationLatency)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RouterDecision(agent string, fallback bool) {
	if m == nil {
		return
	}
	f := "false"
	if fallback {
		f = "true"
	}
	m.routerDecisions.WithLabelValues(agent, f).Inc()
}

func (m *Metrics) Compaction(source string) {
	if m == nil {
		return
	}
	m.compactions.WithLabelValues(source).Inc()
}

func (m *Metrics) AgentTurn(agent, outcome string, steps int) {
	if m == nil {
		return
	}
	m.agentTurns.WithLabelValues(agent, outcome).Inc()
	if steps > 0 {
		m.agentSteps.Observe(float64(steps))
	}
}

func (m *Metrics) ToolCall(tool, decision string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, decision).Inc()
}

func (m *Metrics) BackgroundTask(task, outcome string) {
	if m == nil {
		return
	}
	m.backgroundTasks.WithLabelValues(task, outcome).Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) ObserveGeneration(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.generationLatency.WithLabelValues(kind).Observe(seconds)
}
