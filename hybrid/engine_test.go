package hybrid

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/metrics"
	"github.com/rushteam/artrec/recall"
	"github.com/rushteam/artrec/store"
)

var t0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

// gallery 构造一个小型作品集：
//   - u 喜欢 p1..p6（肖像/油画）
//   - v, w, x 也喜欢 p1..p6，并且喜欢 p7
//   - p8 是没人评分的肖像/油画，l1 是风景/水彩
func gallery(t *testing.T) *store.MemoryFeatureStore {
	t.Helper()
	fs := store.NewMemoryFeatureStore()
	for i, id := range []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"} {
		require.NoError(t, fs.AddArtwork(core.Artwork{
			ID: id, Category: "portrait", Styles: []string{"oil"},
			Popularity: float64(i) / 10, CreatedAt: t0,
		}))
	}
	require.NoError(t, fs.AddArtwork(core.Artwork{ID: "l1", Category: "landscape", Styles: []string{"watercolor"}, Popularity: 0.95}))

	n := 0
	add := func(user, artwork string) {
		require.NoError(t, fs.AddInteraction(core.Interaction{
			UserID: user, ArtworkID: artwork, Rating: 1, Timestamp: t0.Add(time.Duration(n) * time.Minute),
		}))
		n++
	}
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5", "p6"} {
		add("u", id)
	}
	for _, user := range []string{"v", "w", "x"} {
		for _, id := range []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7"} {
			add(user, id)
		}
	}
	return fs
}

// brokenInteractions 让用户交互查询失败，其余查询正常。
type brokenInteractions struct {
	*store.MemoryFeatureStore
}

func (b brokenInteractions) GetUserInteractions(context.Context, string) ([]core.Interaction, error) {
	return nil, core.NewStoreFailure("user_interactions", errors.New("connection reset"))
}

// downStore 所有查询都失败。
type downStore struct{ brokenInteractions }

func (d downStore) GetAllArtworks(context.Context) ([]core.Artwork, error) {
	return nil, core.NewStoreFailure("all_artworks", errors.New("connection reset"))
}

type staticFallback []core.Artwork

func (s staticFallback) FallbackArtworks() []core.Artwork { return s }

func newTestEngine(fs core.FeatureStore) *Engine {
	return NewEngine(fs, zerolog.Nop(), nil)
}

func TestEngine_Hybrid(t *testing.T) {
	e := newTestEngine(gallery(t))
	res, err := e.Recommend(context.Background(), &core.RecommendContext{UserID: "u", Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, core.StrategyHybrid, res.Strategy)
	assert.Equal(t, AlgorithmHybrid, res.Algorithm)
	assert.Empty(t, res.FallbackReason)
	assert.InDelta(t, 1.0, res.Weights.Collaborative+res.Weights.Content, 1e-9)
	// 6 条交互、同一类别 → 稳定性 1.0 → 协同 0.6/1.1
	assert.InDelta(t, 0.6/1.1, res.Weights.Collaborative, 1e-9)

	// l1 的内容分 0.1 × 内容权重 < 0.1，被阈值过滤
	require.Equal(t, []string{"p7", "p8"}, core.ArtworkIDs(res.Recommendations))
	assert.Equal(t, AlgorithmCombined, res.Recommendations[0].Algorithm)
	assert.Equal(t, AlgorithmContentWeighted, res.Recommendations[1].Algorithm)
	assert.InDelta(t, 0.6/1.1+0.55*0.5/1.1, res.Recommendations[0].Score, 1e-6)
	for _, r := range res.Recommendations {
		assert.GreaterOrEqual(t, r.Score, 0.1)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestEngine_SingleEngineOverrides(t *testing.T) {
	e := newTestEngine(gallery(t))

	res, err := e.Recommend(context.Background(), &core.RecommendContext{UserID: "u", Limit: 10, Algorithm: core.StrategyCollaborative})
	require.NoError(t, err)
	assert.Equal(t, AlgorithmCollaborativeOnly, res.Algorithm)
	assert.Equal(t, CollaborativeOnly, res.Weights)
	assert.Equal(t, []string{"p7"}, core.ArtworkIDs(res.Recommendations))
	assert.Equal(t, recall.AlgorithmCollaborative, res.Recommendations[0].Algorithm)

	res, err = e.Recommend(context.Background(), &core.RecommendContext{UserID: "u", Limit: 10, Algorithm: core.StrategyContent})
	require.NoError(t, err)
	assert.Equal(t, AlgorithmContentOnly, res.Algorithm)
	assert.Equal(t, ContentOnly, res.Weights)
	assert.Equal(t, []string{"p7", "p8", "l1"}, core.ArtworkIDs(res.Recommendations))
}

func TestEngine_FallbackOnStoreFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e := NewEngine(brokenInteractions{gallery(t)}, zerolog.Nop(), m)

	res, err := e.Recommend(context.Background(), &core.RecommendContext{UserID: "u", Limit: 3})
	require.NoError(t, err)

	assert.Equal(t, AlgorithmFallbackPopular, res.Algorithm)
	assert.Equal(t, FallbackError, res.FallbackReason)
	assert.Equal(t, recall.FallbackConfidence, res.Confidence)
	assert.Equal(t, []string{"l1", "p8", "p7"}, core.ArtworkIDs(res.Recommendations))
	for _, r := range res.Recommendations {
		assert.Equal(t, recall.AlgorithmPopularity, r.Algorithm)
		assert.Equal(t, 0.3, r.Confidence)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fallbacks.WithLabelValues(FallbackError)))
}

func TestEngine_FallbackWhenEmpty(t *testing.T) {
	e := newTestEngine(gallery(t))
	res, err := e.Recommend(context.Background(), &core.RecommendContext{UserID: "newcomer", Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, core.StrategyContent, res.Strategy)
	assert.Equal(t, AlgorithmFallbackPopular, res.Algorithm)
	assert.Equal(t, FallbackEmpty, res.FallbackReason)
	assert.Equal(t, []string{"l1", "p8"}, core.ArtworkIDs(res.Recommendations))
}

func TestEngine_FallbackChain(t *testing.T) {
	fs := gallery(t)

	t.Run("snapshot artworks when store is down", func(t *testing.T) {
		e := newTestEngine(downStore{brokenInteractions{fs}})
		e.Fallback = staticFallback{{ID: "s1", Popularity: 0.2}, {ID: "s2", Popularity: 0.9}}
		res, err := e.Recommend(context.Background(), &core.RecommendContext{UserID: "u", Limit: 5})
		require.NoError(t, err)
		assert.Equal(t, []string{"s2", "s1"}, core.ArtworkIDs(res.Recommendations))
		assert.Equal(t, 0.3, res.Confidence)
	})

	t.Run("empty when nothing is available", func(t *testing.T) {
		e := newTestEngine(downStore{brokenInteractions{fs}})
		res, err := e.Recommend(context.Background(), &core.RecommendContext{UserID: "u", Limit: 5})
		require.NoError(t, err)
		assert.NotNil(t, res.Recommendations)
		assert.Empty(t, res.Recommendations)
		assert.Equal(t, AlgorithmFallbackPopular, res.Algorithm)
	})
}

func TestEngine_CanceledContext(t *testing.T) {
	e := newTestEngine(brokenInteractions{gallery(t)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Recommend(ctx, &core.RecommendContext{UserID: "u", Limit: 5})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_SimilarArtworks(t *testing.T) {
	e := newTestEngine(gallery(t))

	recs, err := e.SimilarArtworks(context.Background(), "p7", 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.NotContains(t, core.ArtworkIDs(recs), "p7")
	// p1..p6 与 p7 共同评分且内容一致，排在 p8（只有内容相似）前面
	assert.Equal(t, []string{"p1", "p2", "p3"}, core.ArtworkIDs(recs))

	recs, err = e.SimilarArtworks(context.Background(), "missing", 3)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
