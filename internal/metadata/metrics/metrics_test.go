package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetadataMetrics(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.RecordCacheHit(0.001)
	m.RecordCacheMiss(0.001)
	m.RecordCacheMiss(0.002)
	m.IncFetchFailure("status")
	m.SetBreakerOpen(true)
	m.IncPrefetch("enqueue", "ok")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheMisses))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FetchFailures.WithLabelValues("status")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BreakerState))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PrefetchTasks.WithLabelValues("enqueue", "ok")))

	m.SetBreakerOpen(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.BreakerState))
}

func TestNilMetadataMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCacheHit(0)
		m.RecordCacheMiss(0)
		m.ObserveFetch(0)
		m.IncFetchFailure("transport")
		m.SetBreakerOpen(true)
		m.IncPrefetch("process", "error")
	})
}
