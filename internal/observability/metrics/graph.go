package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

// GraphMetrics observes node and run outcomes of the answer loop.
type GraphMetrics struct {
	service string

	nodeTotal    *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	runTotal     *prometheus.CounterVec
	iterations   prometheus.Histogram
	papersSeen   prometheus.Histogram
}

func NewGraphMetrics(registerer prometheus.Registerer, service string) *GraphMetrics {
	m := &GraphMetrics{
		service: service,
		nodeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graph",
				Name:      "node_executions_total",
				Help:      "Graph node executions by node and status.",
			},
			[]string{"service", "node", "status"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "graph",
				Name:      "node_duration_seconds",
				Help:      "Graph node duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "node"},
		),
		runTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graph",
				Name:      "runs_total",
				Help:      "Completed graph runs by outcome.",
			},
			[]string{"service", "outcome"},
		),
		iterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Subsystem:   "graph",
				Name:        "feedback_iterations",
				Help:        "Feedback-loop iterations per run.",
				Buckets:     []float64{0, 1, 2, 3, 4, 5},
				ConstLabels: prometheus.Labels{"service": service},
			},
		),
		papersSeen: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Subsystem:   "graph",
				Name:        "papers_seen",
				Help:        "Distinct external papers considered per run.",
				Buckets:     []float64{0, 1, 2, 4, 6, 10},
				ConstLabels: prometheus.Labels{"service": service},
			},
		),
	}
	registerer.MustRegister(m.nodeTotal, m.nodeDuration, m.runTotal, m.iterations, m.papersSeen)
	return m
}

func (m *GraphMetrics) NodeCompleted(node domain.Node, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.nodeTotal.WithLabelValues(m.service, node.String(), status).Inc()
	m.nodeDuration.WithLabelValues(m.service, node.String()).Observe(duration.Seconds())
}

func (m *GraphMetrics) RunCompleted(state *domain.State, _ time.Duration, err error) {
	m.runTotal.WithLabelValues(m.service, runOutcome(state, err)).Inc()
	if state == nil {
		return
	}
	m.iterations.Observe(float64(state.Iterations))
	m.papersSeen.Observe(float64(len(state.SeenPaperIDs)))
}

func runOutcome(state *domain.State, err error) string {
	switch {
	case errors.Is(err, domain.ErrIterationLimit):
		return "iteration_limit"
	case err != nil:
		return "error"
	case state != nil && !state.NeedsContext:
		return "off_topic"
	case state != nil && state.Retrieved.Empty():
		return "no_context"
	default:
		return "answered"
	}
}
