package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest("hybrid", "hybrid_combined", 10*time.Millisecond)
	m.IncFallback("store_failure")
	m.IncFallback("store_failure")
	m.ObserveStoreCall("GetAllArtworks", errors.New("boom"), time.Millisecond)
	m.IncBatchUser(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("hybrid_combined")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Fallbacks.WithLabelValues("store_failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreCalls.WithLabelValues("GetAllArtworks", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchUsers.WithLabelValues("ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("hybrid", "x", time.Second)
		m.IncFallback("x")
		m.ObserveStoreCall("op", nil, time.Second)
		m.IncBatchUser(nil)
		m.IncSnapshotReload(nil)
	})
}
