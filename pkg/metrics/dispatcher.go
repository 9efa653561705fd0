package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatcherMetrics records outbox dispatcher activity per event type.
type DispatcherMetrics struct {
	duration  *prometheus.HistogramVec
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	batchSize prometheus.Histogram
}

// NewDispatcherMetrics registers the dispatcher metrics on the provided registerer.
func NewDispatcherMetrics(reg prometheus.Registerer) *DispatcherMetrics {
	if reg == nil {
		return &DispatcherMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_event_duration_seconds",
		Help:    "Time spent handling one outbox event.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_published",
		Help: "Outbox events handled and marked published.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_failed",
		Help: "Outbox events whose handling failed.",
	}, []string{"event_type"})
	batchSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_size",
		Help:    "Number of unpublished events fetched per poll.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	})
	reg.MustRegister(duration, published, failed, batchSize)
	return &DispatcherMetrics{
		duration:  duration,
		published: published,
		failed:    failed,
		batchSize: batchSize,
	}
}

// ObserveDuration records handling time for one event type.
func (d *DispatcherMetrics) ObserveDuration(eventType string, duration time.Duration) {
	if d == nil || d.duration == nil {
		return
	}
	d.duration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

// IncPublished increments the published counter for the event type.
func (d *DispatcherMetrics) IncPublished(eventType string) {
	if d == nil || d.published == nil {
		return
	}
	d.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed increments the failure counter for the event type.
func (d *DispatcherMetrics) IncFailed(eventType string) {
	if d == nil || d.failed == nil {
		return
	}
	d.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// ObserveBatchSize records how many events one poll returned.
func (d *DispatcherMetrics) ObserveBatchSize(n int) {
	if d == nil || d.batchSize == nil {
		return
	}
	d.batchSize.Observe(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
