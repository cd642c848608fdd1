package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	httpErrors    *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	assignments   *prometheus.CounterVec
	sweeps        prometheus.Counter
	sweepDuration prometheus.Histogram
	escalations   prometheus.Counter
	sweepFailures *prometheus.CounterVec
	auditFailures *prometheus.CounterVec
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_http_requests_total",
			Help: "HTTP requests served",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tracker_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_http_errors_total",
			Help: "HTTP requests that ended in an error response",
		}, []string{"method", "path", "code"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_status_transitions_total",
			Help: "Applied request status transitions",
		}, []string{"from", "to"}),
		assignments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_assignments_total",
			Help: "Applied assignment changes",
		}, []string{"kind"}),
		sweeps: factory.NewCounter(prometheus.CounterOpts{
			Name: "tracker_escalation_sweeps_total",
			Help: "Completed escalation sweeps",
		}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_escalation_sweep_duration_seconds",
			Help:    "Escalation sweep latency",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		}),
		escalations: factory.NewCounter(prometheus.CounterOpts{
			Name: "tracker_escalations_total",
			Help: "Requests promoted to Critical by the sweep",
		}),
		sweepFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_escalation_failures_total",
			Help: "Per-request failures during escalation sweeps",
		}, []string{"code"}),
		auditFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_audit_comment_failures_total",
			Help: "Audit comments that could not be appended after a successful mutation",
		}, []string{"action"}),
	}
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(method, path, code).Inc()
}

// RecordTransition counts an applied status change.
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// RecordAssignment counts an assignment change by kind (assigned, unassigned, reassigned).
func (m *Metrics) RecordAssignment(kind string) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(kind).Inc()
}

// RecordSweep records one finished sweep.
func (m *Metrics) RecordSweep(escalated int, duration time.Duration) {
	if m == nil {
		return
	}
	m.sweeps.Inc()
	m.sweepDuration.Observe(duration.Seconds())
	m.escalations.Add(float64(escalated))
}

// RecordSweepFailure counts a request the sweep could not process.
func (m *Metrics) RecordSweepFailure(code string) {
	if m == nil {
		return
	}
	m.sweepFailures.WithLabelValues(code).Inc()
}

// RecordAuditFailure counts a lost audit comment.
func (m *Metrics) RecordAuditFailure(action string) {
	if m == nil {
		return
	}
	m.auditFailures.WithLabelValues(action).Inc()
}
