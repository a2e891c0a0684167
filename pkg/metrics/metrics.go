// Package metrics exposes Prometheus counters for batch processing.
// A nil *Metrics is valid and records nothing, so callers never guard.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mitgor/screensort/pkg/screenshot"
)

const namespace = "screensort"

// Metrics holds the collectors for one screensort process.
type Metrics struct {
	registry *prometheus.Registry

	itemsProcessed *prometheus.CounterVec
	batches        *prometheus.CounterVec
	itemDuration   prometheus.Histogram
	batchDuration  prometheus.Histogram
}

// New creates a metrics set backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		itemsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_processed_total",
			Help:      "Screenshots processed, by outcome and detected content type.",
		}, []string{"status", "content_type"}),
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Finished batches, by terminal outcome.",
		}, []string{"outcome"}),
		itemDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "item_duration_seconds",
			Help:      "Wall time spent processing one screenshot.",
			Buckets:   prometheus.DefBuckets,
		}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time spent on one batch.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
	}
}

// ObserveItem records one processed screenshot.
func (m *Metrics) ObserveItem(status screenshot.Status, contentType screenshot.ContentType, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.itemsProcessed.WithLabelValues(string(status), string(contentType)).Inc()
	m.itemDuration.Observe(elapsed.Seconds())
}

// ObserveBatch records one finished batch.
func (m *Metrics) ObserveBatch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(outcome).Inc()
	m.batchDuration.Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Items exposes the processed-items counter for test assertions.
func (m *Metrics) Items() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.itemsProcessed
}

// Batches exposes the batch counter for test assertions.
func (m *Metrics) Batches() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.batches
}
