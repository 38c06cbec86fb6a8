package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects routing metrics. Label cardinality is bounded: backend
// ids, task names, and complexity levels are all closed sets.
type Metrics struct {
	requestsTotal      *prometheus.CounterVec
	fallbacksTotal     *prometheus.CounterVec
	circuitTransitions *prometheus.CounterVec
	retryAttempts      *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	estimatedCostCents *prometheus.CounterVec
}

// NewMetrics creates and registers routing metrics on the given registerer.
// Pass prometheus.DefaultRegisterer in production; tests use their own
// registry to stay isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inference",
			Name:      "requests_total",
			Help:      "Routed inference requests by backend and outcome.",
		}, []string{"backend", "task", "status"}),
		fallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inference",
			Name:      "fallbacks_total",
			Help:      "Requests served by a non-primary backend.",
		}, []string{"task"}),
		circuitTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inference",
			Name:      "circuit_transitions_total",
			Help:      "Circuit breaker state transitions by backend.",
		}, []string{"backend", "to_state"}),
		retryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inference",
			Name:      "retry_attempts_total",
			Help:      "Backend invocation attempts beyond the first.",
		}, []string{"backend"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "inference",
			Name:      "request_duration_seconds",
			Help:      "End-to-end routing duration including fallbacks.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"backend", "complexity"}),
		estimatedCostCents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inference",
			Name:      "estimated_cost_cents_total",
			Help:      "Estimated cost of completed requests in cents.",
		}, []string{"backend"}),
	}

	reg.MustRegister(
		m.requestsTotal,
		m.fallbacksTotal,
		m.circuitTransitions,
		m.retryAttempts,
		m.requestLatency,
		m.estimatedCostCents,
	)

	return m
}

// RecordRequest counts a completed routing attempt
func (m *Metrics) RecordRequest(backend, task, status string) {
	m.requestsTotal.WithLabelValues(backend, task, status).Inc()
}

// RecordFallback counts a request served by a non-primary backend
func (m *Metrics) RecordFallback(task string) {
	m.fallbacksTotal.WithLabelValues(task).Inc()
}

// RecordCircuitTransition counts a circuit state change
func (m *Metrics) RecordCircuitTransition(backend, toState string) {
	m.circuitTransitions.WithLabelValues(backend, toState).Inc()
}

// RecordRetry counts an extra invocation attempt for a backend
func (m *Metrics) RecordRetry(backend string) {
	m.retryAttempts.WithLabelValues(backend).Inc()
}

// RecordLatency observes end-to-end routing duration in seconds
func (m *Metrics) RecordLatency(backend, complexity string, seconds float64) {
	m.requestLatency.WithLabelValues(backend, complexity).Observe(seconds)
}

// RecordCost adds the estimated cost of a completed request
func (m *Metrics) RecordCost(backend string, cents float64) {
	m.estimatedCostCents.WithLabelValues(backend).Add(cents)
}
