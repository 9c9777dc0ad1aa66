package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersRecord(t *testing.T) {
	m := MustNew(prometheus.NewRegistry())

	m.IncToolCall("list_tasks", "ok")
	m.IncToolCall("list_tasks", "ok")
	m.IncActionTransition("timebox_task", "approved")
	m.ObserveTurn("answered", 120*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("list_tasks", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actionTransitions.WithLabelValues("timebox_task", "approved")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncToolCall("x", "ok")
		m.IncToneUpdate("delta")
		m.ObserveTurn("answered", time.Second)
	})
}
