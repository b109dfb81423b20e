package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"
)

// BusinessMetrics holds the service's domain-level Prometheus metrics
type BusinessMetrics struct {
	SessionsCreatedTotal   *prometheus.CounterVec
	SessionsCompletedTotal prometheus.Counter
	StepsExecutedTotal     *prometheus.CounterVec
	StepDuration           *prometheus.HistogramVec
	PlagiarismChecksTotal  *prometheus.CounterVec
	CorpusIndexedTotal     prometheus.Counter
	CorpusSize             prometheus.Gauge
}

// NewBusinessMetrics registers the service metrics under the given namespace.
// Pass prometheus.DefaultRegisterer in production; tests use a fresh registry.
func NewBusinessMetrics(reg prometheus.Registerer, namespace string) *BusinessMetrics {
	factory := promauto.With(reg)

	return &BusinessMetrics{
		SessionsCreatedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total blog sessions created, by workflow kind",
		}, []string{"workflow_kind"}),

		SessionsCompletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Total blog sessions completed",
		}),

		StepsExecutedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_executed_total",
			Help:      "Total workflow steps executed, by owner and result status",
		}, []string{"owner", "status"}),

		StepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Workflow step execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"status"}),

		PlagiarismChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plagiarism_checks_total",
			Help:      "Total plagiarism checks run, by resulting level",
		}, []string{"level"}),

		CorpusIndexedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corpus_indexed_total",
			Help:      "Total session input records indexed into the corpus",
		}),

		CorpusSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_size",
			Help:      "Number of sessions currently in the plagiarism corpus",
		}),
	}
}

// ObserveDurationWithExemplar records a duration, attaching the active trace
// ID as an exemplar when the histogram supports it
func (m *BusinessMetrics) ObserveDurationWithExemplar(ctx context.Context, hist *prometheus.HistogramVec, seconds float64, status string) {
	observer := hist.WithLabelValues(status)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		if exemplarObserver, ok := observer.(prometheus.ExemplarObserver); ok {
			exemplarObserver.ObserveWithExemplar(seconds, prometheus.Labels{
				"trace_id": span.SpanContext().TraceID().String(),
			})
			return
		}
	}

	observer.Observe(seconds)
}
