package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	rows     *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commute_requests_total",
				Help: "Total number of chart requests by profile and outcome",
			},
			[]string{"profile", "outcome"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commute_errors_total",
				Help: "Total number of failed requests by error kind",
			},
			[]string{"kind"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commute_operation_duration_seconds",
				Help:    "Duration of handler stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		rows: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commute_rows_returned",
				Help:    "Number of samples returned per request",
				Buckets: []float64{0, 10, 100, 1_000, 10_000, 100_000},
			},
			[]string{"profile"},
		),
	}
}

// RecordRequest counts a finished request.
func (r *Recorder) RecordRequest(profile, outcome string) {
	r.requests.WithLabelValues(profile, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency.
func (r *Recorder) RecordLatency(op string, d time.Duration) {
	r.latency.WithLabelValues(op).Observe(d.Seconds())
}

func (r *Recorder) RecordRows(profile string, n int) {
	r.rows.WithLabelValues(profile).Observe(float64(n))
}
