package hnswlib

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector exports index metrics to Prometheus.
type PrometheusCollector struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	savedBytes prometheus.Counter
	vectors    prometheus.Gauge
}

var _ MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector registers the index metrics on reg under the
// hnswlib namespace. constLabels distinguishes several indexes sharing
// a registry.
func NewPrometheusCollector(reg prometheus.Registerer, constLabels prometheus.Labels) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "hnswlib",
			Name:        "operations_total",
			Help:        "Total number of index operations, by operation and outcome.",
			ConstLabels: constLabels,
		}, []string{"operation", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "hnswlib",
			Name:        "operation_duration_seconds",
			Help:        "Duration of index operations in seconds.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"operation"}),
		savedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "hnswlib",
			Name:        "saved_bytes_total",
			Help:        "Total number of bytes written by successful saves.",
			ConstLabels: constLabels,
		}),
		vectors: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "hnswlib",
			Name:        "vectors",
			Help:        "Number of vectors stored in the index.",
			ConstLabels: constLabels,
		}),
	}
}

func (p *PrometheusCollector) observe(op string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.operations.WithLabelValues(op, status).Inc()
	p.duration.WithLabelValues(op).Observe(d.Seconds())
}

// RecordInsert implements MetricsCollector.
func (p *PrometheusCollector) RecordInsert(d time.Duration, err error) {
	p.observe("insert", d, err)
}

// RecordSearch implements MetricsCollector.
func (p *PrometheusCollector) RecordSearch(_ int, d time.Duration, err error) {
	p.observe("search", d, err)
}

// RecordSave implements MetricsCollector.
func (p *PrometheusCollector) RecordSave(bytes int64, d time.Duration, err error) {
	p.observe("save", d, err)
	if err == nil {
		p.savedBytes.Add(float64(bytes))
	}
}

// RecordLoad implements MetricsCollector.
func (p *PrometheusCollector) RecordLoad(_ int, d time.Duration, err error) {
	p.observe("load", d, err)
}

// RecordSize implements MetricsCollector.
func (p *PrometheusCollector) RecordSize(count int) {
	p.vectors.Set(float64(count))
}
