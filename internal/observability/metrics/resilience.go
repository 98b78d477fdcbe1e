package metrics

import "github.com/prometheus/client_golang/prometheus"

// ResilienceMetrics counts retries and circuit-breaker transitions per upstream operation.
type ResilienceMetrics struct {
	service       string
	retries       *prometheus.CounterVec
	breakerStates *prometheus.CounterVec
}

func NewResilienceMetrics(registerer prometheus.Registerer, service string) *ResilienceMetrics {
	m := &ResilienceMetrics{
		service: service,
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "retries_total",
				Help:      "Retried upstream calls by operation.",
			},
			[]string{"service", "operation"},
		),
		breakerStates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "breaker_transitions_total",
				Help:      "Circuit breaker state transitions by operation and target state.",
			},
			[]string{"service", "operation", "state"},
		),
	}
	registerer.MustRegister(m.retries, m.breakerStates)
	return m
}

func (m *ResilienceMetrics) Retry(operation string) {
	m.retries.WithLabelValues(m.service, operation).Inc()
}

func (m *ResilienceMetrics) StateChange(operation, state string) {
	m.breakerStates.WithLabelValues(m.service, operation, state).Inc()
}
