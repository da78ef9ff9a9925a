package feature

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/metrics"
	"github.com/rushteam/artrec/store"
)

// flakyStore 在 fail 为 true 时所有读取都返回错误。
type flakyStore struct {
	core.FeatureStore
	fail  bool
	calls int
}

func (f *flakyStore) GetUserInteractions(ctx context.Context, userID string) ([]core.Interaction, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("db down")
	}
	return f.FeatureStore.GetUserInteractions(ctx, userID)
}

func TestBreakerStore_OpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{FeatureStore: store.NewMemoryFeatureStore(), fail: true}
	b := NewBreakerStore(inner, BreakerConfig{MinRequests: 3, FailureRatio: 0.5, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := b.GetUserInteractions(ctx, "u1")
		require.Error(t, err)
	}
	assert.Equal(t, "open", b.State())

	_, err := b.GetUserInteractions(ctx, "u1")
	require.Error(t, err)
	assert.True(t, core.IsStoreFailure(err))
	assert.Equal(t, 3, inner.calls, "open breaker does not call downstream")
}

func TestBreakerStore_PassThrough(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryFeatureStore()
	require.NoError(t, mem.AddArtwork(core.Artwork{ID: "a1"}))
	b := NewBreakerStore(mem, BreakerConfig{})

	art, err := b.GetArtworkByID(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, art)

	missing, err := b.GetArtworkByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Equal(t, "closed", b.State())
}

func TestInstrumentedStore(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	inner := &flakyStore{FeatureStore: store.NewMemoryFeatureStore()}
	s := NewInstrumentedStore(inner, m)

	_, err := s.GetUserInteractions(ctx, "u1")
	require.NoError(t, err)
	inner.fail = true
	_, err = s.GetUserInteractions(ctx, "u1")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreCalls.WithLabelValues("user_interactions", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreCalls.WithLabelValues("user_interactions", "error")))
}
