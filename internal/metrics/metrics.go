// Package metrics exposes Prometheus instrumentation for collection loads.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "folio"

// Metrics holds the collection service instruments. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Loads            *prometheus.CounterVec
	LoadDuration     prometheus.Histogram
	InvalidDocuments prometheus.Counter
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	Documents        prometheus.Gauge
	Invalidations    *prometheus.CounterVec
}

// New registers the instruments on reg. Passing a fresh registry keeps tests isolated.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_loads_total",
			Help:      "Collection loads by outcome.",
		}, []string{"outcome"}),
		LoadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collection_load_duration_seconds",
			Help:      "Time spent enumerating, parsing and decorating documents.",
			Buckets:   prometheus.DefBuckets,
		}),
		InvalidDocuments: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_documents_total",
			Help:      "Documents excluded from a load because they failed validation or could not be read.",
		}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_cache_hits_total",
			Help:      "Documents served from the parse cache.",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_cache_misses_total",
			Help:      "Documents parsed because no cache entry matched.",
		}),
		Documents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collection_documents",
			Help:      "Documents in the current snapshot.",
		}),
		Invalidations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_invalidations_total",
			Help:      "Snapshot invalidations by signal source.",
		}, []string{"source"}),
	}
}

func (m *Metrics) ObserveLoad(outcome string, d time.Duration, documents, invalid int) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(outcome).Inc()
	m.LoadDuration.Observe(d.Seconds())
	m.InvalidDocuments.Add(float64(invalid))
	m.Documents.Set(float64(documents))
}

func (m *Metrics) ObserveCache(hits, misses int) {
	if m == nil {
		return
	}
	m.CacheHits.Add(float64(hits))
	m.CacheMisses.Add(float64(misses))
}

func (m *Metrics) ObserveInvalidation(source string) {
	if m == nil {
		return
	}
	m.Invalidations.WithLabelValues(source).Inc()
}
