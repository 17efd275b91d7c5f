package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the outbox worker.
type Metrics struct {
	PendingDepth     prometheus.Gauge
	OldestPendingAge prometheus.Gauge
	PublishedTotal   prometheus.Counter
	PublishFailures  prometheus.Counter
	PublishDuration  prometheus.Histogram
	BatchSize        prometheus.Histogram
	PollDuration     prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	latency := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
	return &Metrics{
		PendingDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "shebuilds_outbox_pending_total",
			Help: "Current number of unpublished outbox entries",
		}),
		OldestPendingAge: f.NewGauge(prometheus.GaugeOpts{
			Name: "shebuilds_outbox_oldest_pending_seconds",
			Help: "Age in seconds of the oldest unpublished outbox entry",
		}),
		PublishedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "shebuilds_outbox_published_total",
			Help: "Outbox entries published and marked processed",
		}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "shebuilds_outbox_publish_failures_total",
			Help: "Outbox fetch or publish failures",
		}),
		PublishDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "shebuilds_outbox_publish_duration_seconds",
			Help:    "Time taken to publish one outbox entry",
			Buckets: latency,
		}),
		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "shebuilds_outbox_batch_size",
			Help:    "Entries fetched per poll",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
		PollDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "shebuilds_outbox_poll_duration_seconds",
			Help:    "Time taken by one poll cycle",
			Buckets: latency,
		}),
	}
}

func (m *Metrics) SetPending(count int64, oldestAgeSeconds float64) {
	m.PendingDepth.Set(float64(count))
	m.OldestPendingAge.Set(oldestAgeSeconds)
}

func (m *Metrics) IncPublished()       { m.PublishedTotal.Inc() }
func (m *Metrics) IncPublishFailures() { m.PublishFailures.Inc() }

func (m *Metrics) ObservePublishDuration(seconds float64) { m.PublishDuration.Observe(seconds) }
func (m *Metrics) ObserveBatchSize(size int)              { m.BatchSize.Observe(float64(size)) }
func (m *Metrics) ObservePollDuration(seconds float64)    { m.PollDuration.Observe(seconds) }
