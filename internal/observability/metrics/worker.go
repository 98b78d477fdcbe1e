package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
)

// WorkerMetrics tracks PDF processing of papers.indexed events. Failures are
// labelled by domain error kind so upstream outages stand apart from bad input.
type WorkerMetrics struct {
	registry *prometheus.Registry

	papers   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	lag      prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	svc := prometheus.Labels{"service": service}

	m := &WorkerMetrics{
		registry: registry,
		papers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "worker",
				Name:        "papers_total",
				Help:        "Papers handled by the PDF worker by outcome.",
				ConstLabels: svc,
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Subsystem:   "worker",
				Name:        "paper_duration_seconds",
				Help:        "Download, store and inspect time per paper by outcome.",
				Buckets:     []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
				ConstLabels: svc,
			},
			[]string{"outcome"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   "worker",
				Name:        "papers_in_flight",
				Help:        "Papers currently being processed.",
				ConstLabels: svc,
			},
		),
		lag: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Subsystem:   "worker",
				Name:        "index_to_process_seconds",
				Help:        "Delay between a paper entering the store and its PDF job starting.",
				Buckets:     []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
				ConstLabels: svc,
			},
		),
	}
	registry.MustRegister(m.papers, m.duration, m.inFlight, m.lag)
	return m
}

func (m *WorkerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartPaper() {
	m.inFlight.Inc()
}

func (m *WorkerMetrics) FinishPaper(duration time.Duration, err error) {
	m.inFlight.Dec()
	outcome := paperOutcome(err)
	m.papers.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveQueueLag ignores negative lag from producer clock skew.
func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.lag.Observe(lag.Seconds())
}

func paperOutcome(err error) string {
	switch {
	case err == nil:
		return "processed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrTemporary):
		return "upstream_unavailable"
	default:
		return "failed"
	}
}
