package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/x", "GET", 200, time.Millisecond)
		m.RecordError("/x", "GET", "NOT_FOUND")
		m.RecordSweep(3, time.Second)
		m.RecordSweepFailure("CONFLICT")
		m.RecordAuditFailure("status_change")
		m.RecordTransition("Open", "Blocked")
		m.RecordAssignment("assigned")
	})
	assert.Nil(t, m.Registry())
}

func TestSweepCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordSweep(2, time.Millisecond)
	m.RecordSweep(1, time.Millisecond)
	m.RecordAuditFailure("escalation")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.sweeps))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.escalations))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.auditFailures.WithLabelValues("escalation")))
}
