package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds collectors for metadata resolution.
type Metrics struct {
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	CacheLookup   prometheus.Histogram
	FetchDuration prometheus.Histogram
	FetchFailures *prometheus.CounterVec
	BreakerState  prometheus.Gauge
	PrefetchTasks *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "shebuilds_metadata_cache_hits_total",
			Help: "Metadata documents served from cache",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "shebuilds_metadata_cache_misses_total",
			Help: "Metadata cache lookups that found nothing",
		}),
		CacheLookup: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "shebuilds_metadata_cache_lookup_duration_seconds",
			Help:    "Duration of metadata cache lookups",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05},
		}),
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "shebuilds_metadata_fetch_duration_seconds",
			Help:    "Duration of outbound metadata fetches",
			Buckets: prometheus.DefBuckets,
		}),
		FetchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shebuilds_metadata_fetch_failures_total",
			Help: "Failed metadata fetches by reason",
		}, []string{"reason"}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "shebuilds_metadata_breaker_open",
			Help: "1 while the metadata fetch breaker is open or half open",
		}),
		PrefetchTasks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shebuilds_metadata_prefetch_tasks_total",
			Help: "Prefetch tasks by stage and outcome",
		}, []string{"stage", "outcome"}),
	}
}

func (m *Metrics) RecordCacheHit(seconds float64) {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
	m.CacheLookup.Observe(seconds)
}

func (m *Metrics) RecordCacheMiss(seconds float64) {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
	m.CacheLookup.Observe(seconds)
}

func (m *Metrics) ObserveFetch(seconds float64) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(seconds)
}

// IncFetchFailure counts a failed fetch. reason is one of transport, blocked, status,
// too_large, decode or breaker_open.
func (m *Metrics) IncFetchFailure(reason string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
		return
	}
	m.BreakerState.Set(0)
}

// IncPrefetch counts a prefetch task at stage enqueue or process.
func (m *Metrics) IncPrefetch(stage, outcome string) {
	if m == nil {
		return
	}
	m.PrefetchTasks.WithLabelValues(stage, outcome).Inc()
}
