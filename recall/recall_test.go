package recall

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/store"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type rating struct {
	user, artwork string
	r             float64
}

func seed(t *testing.T, artworks []core.Artwork, ratings []rating) *store.MemoryFeatureStore {
	t.Helper()
	fs := store.NewMemoryFeatureStore()
	for _, a := range artworks {
		require.NoError(t, fs.AddArtwork(a))
	}
	for i, r := range ratings {
		require.NoError(t, fs.AddInteraction(core.Interaction{
			UserID:    r.user,
			ArtworkID: r.artwork,
			Rating:    r.r,
			Timestamp: t0.Add(time.Duration(i) * time.Minute),
		}))
	}
	return fs
}

func ids(n ...string) []core.Artwork {
	out := make([]core.Artwork, 0, len(n))
	for _, id := range n {
		out = append(out, core.Artwork{ID: id, Category: "c"})
	}
	return out
}

func TestEngines_NoInteractions(t *testing.T) {
	fs := seed(t, ids("a1", "a2"), []rating{{"u2", "a1", 1}})
	rctx := &core.RecommendContext{UserID: "ghost", Limit: 10}
	ctx := context.Background()

	for _, src := range []Source{NewUserBasedCF(fs), NewItemBasedCF(fs), NewContentRecall(fs), NewCollaborative(fs)} {
		t.Run(src.Name(), func(t *testing.T) {
			recs, err := src.Recall(ctx, rctx)
			require.NoError(t, err)
			assert.NotNil(t, recs)
			assert.Empty(t, recs)
		})
	}
}

func TestUserBasedCF(t *testing.T) {
	fs := seed(t, ids("a1", "a2", "a3", "a4", "a5"), []rating{
		{"u1", "a1", 1}, {"u1", "a2", 0.3}, {"u1", "a3", 1},
		{"u2", "a1", 1}, {"u2", "a2", 0.3}, {"u2", "a3", 1}, {"u2", "a4", 1},
		{"u3", "a1", 0.3}, {"u3", "a2", 1}, {"u3", "a3", 0.3}, {"u3", "a5", 1},
		{"u4", "a1", 1}, {"u4", "a5", 0.9}, // 共同评分不足 3 个
	})
	cf := NewUserBasedCF(fs)
	ctx := context.Background()

	neighbors, err := cf.Neighbors(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, "u2", neighbors[0].UserID)
	assert.InDelta(t, 1.0, neighbors[0].Similarity, 1e-9)

	recs, err := cf.Recall(ctx, &core.RecommendContext{UserID: "u1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "a4", recs[0].ArtworkID)
	assert.InDelta(t, 1.0, recs[0].Score, 1e-9)
	assert.InDelta(t, 1.0, recs[0].Confidence, 1e-9)
	assert.Equal(t, AlgorithmUserCF, recs[0].Algorithm)
}

func TestItemBasedCF(t *testing.T) {
	fs := seed(t, ids("a1", "a2", "a3", "a9"), []rating{
		{"u1", "a1", 1}, {"u1", "a9", 0.3},
		{"u2", "a1", 1}, {"u2", "a2", 1},
		{"u3", "a1", 1}, {"u3", "a2", 0.8},
		{"u4", "a1", 0.8}, {"u4", "a2", 1},
		{"u2", "a3", 1}, {"u3", "a3", 1}, // 只有 2 个共同评分用户
	})
	recs, err := NewItemBasedCF(fs).Recall(context.Background(), &core.RecommendContext{UserID: "u1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "a2", recs[0].ArtworkID)
	assert.InDelta(t, 2.6/2.64, recs[0].Score, 1e-9)
	assert.LessOrEqual(t, recs[0].Score, 1.0)
}

func TestItemBasedCF_RepeatDamping(t *testing.T) {
	fs := seed(t, ids("s1", "s2", "x"), []rating{
		{"u1", "s1", 1}, {"u1", "s2", 1},
		{"u2", "s1", 1}, {"u2", "s2", 1}, {"u2", "x", 1},
		{"u3", "s1", 1}, {"u3", "s2", 1}, {"u3", "x", 1},
		{"u4", "s1", 1}, {"u4", "s2", 1}, {"u4", "x", 1},
	})
	recs, err := NewItemBasedCF(fs).Recall(context.Background(), &core.RecommendContext{UserID: "u1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	// 第一次命中 1.0，第二次 +0.1 后截断到 1.0
	assert.Equal(t, 1.0, recs[0].Score)
}

func TestCollaborativeConfidence(t *testing.T) {
	assert.Equal(t, 0.0, CollaborativeConfidence(0, 0))
	assert.InDelta(t, 0.5, CollaborativeConfidence(10, 5), 1e-9)
	assert.InDelta(t, 1.0, CollaborativeConfidence(100, 100), 1e-9)
}

func TestMergeMax_Unique(t *testing.T) {
	a := []*core.Recommendation{
		core.NewRecommendation("x", 0.4, 0.9, AlgorithmUserCF),
		core.NewRecommendation("y", 0.2, 0.1, AlgorithmUserCF),
	}
	b := []*core.Recommendation{
		core.NewRecommendation("x", 0.7, 0.2, AlgorithmItemCF),
		core.NewRecommendation("z", 0.5, 0.5, AlgorithmItemCF),
	}
	out := MergeMax(AlgorithmCollaborative, a, b)
	assert.Equal(t, []string{"x", "z", "y"}, core.ArtworkIDs(out))
	assert.Equal(t, 0.7, out[0].Score)
	assert.Equal(t, 0.9, out[0].Confidence)
	assert.Equal(t, AlgorithmCollaborative, out[0].Algorithm)
	assert.Equal(t, 0.4, a[0].Score, "inputs are not mutated")
}

type failingSource struct{}

func (failingSource) Name() string { return "failing" }
func (failingSource) Recall(context.Context, *core.RecommendContext) ([]*core.Recommendation, error) {
	return nil, errors.New("boom")
}

func TestFanout(t *testing.T) {
	fs := seed(t, []core.Artwork{{ID: "p1", Popularity: 0.9}}, nil)
	ctx := context.Background()
	rctx := &core.RecommendContext{UserID: "u", Limit: 5}

	res, err := (&Fanout{Sources: []Source{NewPopularity(fs), NewContentRecall(fs)}}).Run(ctx, rctx)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Len(t, res[0], 1)
	assert.NotNil(t, res[1])

	_, err = (&Fanout{Sources: []Source{NewPopularity(fs), failingSource{}}}).Run(ctx, rctx)
	assert.Error(t, err)
}
