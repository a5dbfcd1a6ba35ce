// Package metrics exposes Prometheus collectors for the document
// processing pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors shared across the pipeline. Components
// receive it by injection; a nil *Metrics is safe and records nothing.
type Metrics struct {
	DocumentsProcessed *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	ConceptsExtracted  prometheus.Counter
	ConceptsMerged     prometheus.Counter
	WatcherEvents      *prometheus.CounterVec
	WatcherDropped     prometheus.Counter
	QueueDepth         prometheus.Gauge
	BatchesFlushed     prometheus.Counter
}

// New registers the pipeline collectors on reg. Pass
// prometheus.DefaultRegisterer for the process-global registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DocumentsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mathgraph",
			Name:      "documents_processed_total",
			Help:      "Documents processed, labelled by outcome.",
		}, []string{"outcome"}),
		ProcessingDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mathgraph",
			Name:      "document_processing_seconds",
			Help:      "Wall time spent processing a single document.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"extractor"}),
		ConceptsExtracted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mathgraph",
			Name:      "concepts_extracted_total",
			Help:      "Concepts extracted from documents.",
		}),
		ConceptsMerged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mathgraph",
			Name:      "concepts_merged_total",
			Help:      "Concepts merged away by deduplication.",
		}),
		WatcherEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mathgraph",
			Name:      "watcher_events_total",
			Help:      "File watcher events dispatched, labelled by type.",
		}, []string{"type"}),
		WatcherDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mathgraph",
			Name:      "watcher_events_dropped_total",
			Help:      "Watcher events dropped because the queue was full.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "mathgraph",
			Name:      "incremental_queue_depth",
			Help:      "Events waiting in the incremental processor queue.",
		}),
		BatchesFlushed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mathgraph",
			Name:      "watcher_batches_flushed_total",
			Help:      "Batches flushed by the batch file watcher.",
		}),
	}
}

// ObserveDocument records one processed document. Nil receivers are
// no-ops so callers need not guard every site.
func (m *Metrics) ObserveDocument(outcome, extractor string, seconds float64) {
	if m == nil {
		return
	}
	m.DocumentsProcessed.WithLabelValues(outcome).Inc()
	if extractor != "" {
		m.ProcessingDuration.WithLabelValues(extractor).Observe(seconds)
	}
}

// AddConcepts records concepts extracted from a document.
func (m *Metrics) AddConcepts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ConceptsExtracted.Add(float64(n))
}

// AddMerged records concepts removed by deduplication.
func (m *Metrics) AddMerged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ConceptsMerged.Add(float64(n))
}

// ObserveWatcherEvent records one dispatched watcher event.
func (m *Metrics) ObserveWatcherEvent(eventType string) {
	if m == nil {
		return
	}
	m.WatcherEvents.WithLabelValues(eventType).Inc()
}

// IncBatchFlushed records one flushed watcher event batch.
func (m *Metrics) IncBatchFlushed() {
	if m == nil {
		return
	}
	m.BatchesFlushed.Inc()
}

// SetQueueDepth records the incremental queue depth.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
