package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for assistant activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	turnDuration      *prometheus.HistogramVec
	toolCalls         *prometheus.CounterVec
	actionTransitions *prometheus.CounterVec
	toneUpdates       *prometheus.CounterVec
	backfillItems     *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew registers a fresh set of collectors on reg and panics on conflict
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nexus",
			Subsystem: "assistant",
			Name:      "turn_duration_seconds",
			Help:      "Duration of one orchestration turn.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexus",
			Subsystem: "assistant",
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		actionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexus",
			Subsystem: "actions",
			Name:      "transitions_total",
			Help:      "Pending action state transitions.",
		}, []string{"type", "status"}),
		toneUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexus",
			Subsystem: "tone",
			Name:      "updates_total",
			Help:      "Tone profile learning events by kind.",
		}, []string{"kind"}),
		backfillItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nexus",
			Subsystem: "lifecycle",
			Name:      "backfill_items_total",
			Help:      "Items imported during backfill by source and outcome.",
		}, []string{"source", "outcome"}),
	}
	reg.MustRegister(m.turnDuration, m.toolCalls, m.actionTransitions, m.toneUpdates, m.backfillItems)
	return m
}

func (m *Metrics) ObserveTurn(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.turnDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) IncToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) IncActionTransition(actionType, status string) {
	if m == nil {
		return
	}
	m.actionTransitions.WithLabelValues(actionType, status).Inc()
}

func (m *Metrics) IncToneUpdate(kind string) {
	if m == nil {
		return
	}
	m.toneUpdates.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncBackfillItem(source, outcome string) {
	if m == nil {
		return
	}
	m.backfillItems.WithLabelValues(source, outcome).Inc()
}
