package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Submission outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Metrics holds all Prometheus metrics for leadflow
type Metrics struct {
	// Backend client
	BackendRequestsTotal          *prometheus.CounterVec
	BackendRequestDurationSeconds *prometheus.HistogramVec

	// Campaign submission
	SubmissionsTotal   *prometheus.CounterVec
	StepsCreatedTotal  prometheus.Counter
	LeadsAttachedTotal prometheus.Counter

	// AI enhancement
	EnhancementsTotal *prometheus.CounterVec

	// Preview server
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	HTTPErrorsTotal            *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		BackendRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadflow_backend_requests_total",
				Help: "Total number of requests sent to the outreach backend",
			},
			[]string{"endpoint", "status"},
		),
		BackendRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadflow_backend_request_duration_seconds",
				Help:    "Backend request duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),

		SubmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadflow_submissions_total",
				Help: "Total number of campaign submissions by outcome",
			},
			[]string{"outcome"},
		),
		StepsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leadflow_steps_created_total",
				Help: "Total number of campaign steps created on the backend",
			},
		),
		LeadsAttachedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "leadflow_leads_attached_total",
				Help: "Total number of leads attached to campaigns",
			},
		),

		EnhancementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadflow_enhancements_total",
				Help: "Total number of AI content enhancements",
			},
			[]string{"provider", "outcome"},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadflow_http_requests_total",
				Help: "Total number of preview server requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadflow_http_request_duration_seconds",
				Help:    "Preview server request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadflow_http_errors_total",
				Help: "Total number of preview server errors",
			},
			[]string{"error_type"},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.BackendRequestsTotal,
		m.BackendRequestDurationSeconds,
		m.SubmissionsTotal,
		m.StepsCreatedTotal,
		m.LeadsAttachedTotal,
		m.EnhancementsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.HTTPErrorsTotal,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// ObserveBackendRequest records one backend call. Status 0 means the request
// never produced an HTTP response.
func ObserveBackendRequest(endpoint string, status int, elapsed time.Duration) {
	m := Global()
	if m == nil {
		return
	}
	label := "transport_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.BackendRequestsTotal.WithLabelValues(endpoint, label).Inc()
	m.BackendRequestDurationSeconds.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// IncSubmissions increments the submission counter
func IncSubmissions(outcome string) {
	m := Global()
	if m != nil {
		m.SubmissionsTotal.WithLabelValues(outcome).Inc()
	}
}

// IncStepsCreated increments the created steps counter
func IncStepsCreated() {
	m := Global()
	if m != nil {
		m.StepsCreatedTotal.Inc()
	}
}

// AddLeadsAttached adds n to the attached leads counter
func AddLeadsAttached(n int) {
	m := Global()
	if m != nil && n > 0 {
		m.LeadsAttachedTotal.Add(float64(n))
	}
}

// IncEnhancements increments the enhancement counter
func IncEnhancements(provider, outcome string) {
	m := Global()
	if m != nil {
		m.EnhancementsTotal.WithLabelValues(provider, outcome).Inc()
	}
}
