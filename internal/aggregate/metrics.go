package aggregate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the aggregation engine.
type Metrics struct {
	ViewDuration *prometheus.HistogramVec
	ViewErrors   *prometheus.CounterVec
}

// NewMetrics registers aggregation metrics on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		ViewDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coverguard_aggregate_view_duration_seconds",
			Help:    "Duration of aggregation view computation including store fan-out",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"view"}),

		ViewErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "coverguard_aggregate_view_errors_total",
			Help: "Aggregation view calls aborted by a store read failure",
		}, []string{"view"}),
	}
}

// ObserveView records one view computation.
func (m *Metrics) ObserveView(view string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.ViewDuration.WithLabelValues(view).Observe(d.Seconds())
	if err != nil {
		m.ViewErrors.WithLabelValues(view).Inc()
	}
}
