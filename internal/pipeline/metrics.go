package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	runs               *prometheus.CounterVec
	stepSeconds        *prometheus.HistogramVec
	thumbnailFallbacks prometheus.Counter
}

// NewMetrics registers the collectors with reg. A nil reg yields working but
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audiograb",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by endpoint variant and outcome.",
		}, []string{"variant", "outcome"}),
		stepSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "audiograb",
			Subsystem: "pipeline",
			Name:      "step_seconds",
			Help:      "Duration of individual pipeline steps.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"step"}),
		thumbnailFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "audiograb",
			Name:      "thumbnail_fallbacks_total",
			Help:      "Requests that asked for artwork but were published without it.",
		}),
	}
}

func (m *Metrics) observeRun(variant string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
	}
	m.runs.WithLabelValues(variant, outcome).Inc()
}

func (m *Metrics) observeStep(step string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stepSeconds.WithLabelValues(step).Observe(elapsed.Seconds())
}

func (m *Metrics) thumbnailFallback() {
	if m == nil {
		return
	}
	m.thumbnailFallbacks.Inc()
}
