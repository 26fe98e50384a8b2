package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exposes stage outcomes as a counter and a duration
// histogram labelled by operation.
type PrometheusRecorder struct {
	results   *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the recorder's collectors on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vdyp",
			Name:      "operations_total",
			Help:      "Projection operations by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vdyp",
			Name:      "operation_duration_seconds",
			Help:      "Projection operation durations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{r.results, r.durations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.results.WithLabelValues(operation, status(success)).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}
