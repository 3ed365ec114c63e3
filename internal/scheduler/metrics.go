package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RunDuration    *prometheus.HistogramVec
	RunsTotal      *prometheus.CounterVec
	ItemsProcessed *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coverguard",
			Subsystem: "scheduler",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a job run.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coverguard",
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Job runs by final ledger status.",
		}, []string{"job", "status"}),
		ItemsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coverguard",
			Subsystem: "scheduler",
			Name:      "items_processed_total",
			Help:      "Items successfully processed per job.",
		}, []string{"job"}),
	}
}

// ObserveRun is nil-safe so callers never guard metric calls.
func (m *Metrics) ObserveRun(job, status string, elapsed time.Duration, processed int) {
	if m == nil {
		return
	}
	m.RunDuration.WithLabelValues(job).Observe(elapsed.Seconds())
	m.RunsTotal.WithLabelValues(job, status).Inc()
	m.ItemsProcessed.WithLabelValues(job).Add(float64(processed))
}
