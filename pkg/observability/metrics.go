package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "switchboard"

// Metrics holds the collectors fed by the lifecycle hooks.
type Metrics struct {
	gatherer prometheus.Gatherer

	NodeVisits       *prometheus.CounterVec
	NodeDuration     *prometheus.HistogramVec
	CapabilityCalls  *prometheus.CounterVec
	CapabilityTiming *prometheus.HistogramVec
	Turns            *prometheus.CounterVec
	TurnDuration     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_visits_total",
			Help:      "Workflow node visits, by node and outgoing edge.",
		}, []string{"node", "edge"}),
		NodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Time spent in each workflow node.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node"}),
		CapabilityCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_calls_total",
			Help:      "Capability invocations, by capability and outcome.",
		}, []string{"capability", "error"}),
		CapabilityTiming: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capability_duration_seconds",
			Help:      "Capability execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"capability"}),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed turns, by intent and escalation.",
		}, []string{"intent", "escalated"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "End-to-end turn latency.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
	reg.MustRegister(m.NodeVisits, m.NodeDuration, m.CapabilityCalls, m.CapabilityTiming, m.Turns, m.TurnDuration)
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(string(e.NodeID), string(e.Edge)).Inc()
			m.NodeDuration.WithLabelValues(string(e.NodeID)).Observe(e.Elapsed.Seconds())
		},
		OnCapabilityReturn: func(_ context.Context, e *domain.CapabilityEvent) {
			m.CapabilityCalls.WithLabelValues(e.Name, strconv.FormatBool(e.IsError)).Inc()
			m.CapabilityTiming.WithLabelValues(e.Name).Observe(e.Elapsed.Seconds())
		},
		OnTurnComplete: func(_ context.Context, e *domain.TurnEvent) {
			intent := string(e.Intent)
			if intent == "" {
				intent = "none"
			}
			m.Turns.WithLabelValues(intent, strconv.FormatBool(e.Escalated)).Inc()
			m.TurnDuration.Observe(e.Elapsed.Seconds())
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
