package snapshot

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/hybrid"
)

func fixture() *Snapshot {
	return New(
		Metadata{Algorithm: "test"},
		[]Artwork{
			{ID: "a1", Category: "landscape", Style: []string{"oil"}, Features: Features{PopularityScore: 0.2}},
			{ID: "a2", Category: "landscape", Style: []string{"oil"}, Features: Features{PopularityScore: 0.3}},
			{ID: "a3", Category: "landscape", Style: []string{"oil"}, Features: Features{PopularityScore: 0.4}},
			{ID: "a4", Category: "portrait", Style: []string{"oil"}, Features: Features{PopularityScore: 0.5}},
			{ID: "b1", Category: "portrait", Features: Features{PopularityScore: 0.9}},
		},
		[]UserProfile{{
			UserID:        "u1",
			LikedArtworks: []string{"a1", "a2"},
			Preferences: Preferences{
				Categories: map[string]float64{"landscape": 1},
				Styles:     map[string]float64{"oil": 1},
			},
		}},
		map[string]map[string]float64{
			"u1": {"a1": 1, "a2": 1},
			"u2": {"a1": 1, "a2": 1, "a3": 0.9},
			"u3": {"a4": 1},
		},
		map[string]map[string]float64{
			"a1": {"a3": 0.5, "a4": 0.7},
			"a2": {"a3": 0.6},
		},
		GlobalStats{PopularCategories: []string{"portrait"}},
	)
}

func TestUserBased(t *testing.T) {
	recs := UserBased(fixture(), "u1", 10)
	require.Equal(t, []string{"a3"}, core.ArtworkIDs(recs))
	sim := 2 / (1.4142135623730951 * 1.676305461424021)
	assert.InDelta(t, 0.9*sim, recs[0].Score, 1e-9)
	assert.InDelta(t, sim, recs[0].Confidence, 1e-9)
	assert.Equal(t, AlgorithmUserBased, recs[0].Algorithm)

	assert.Empty(t, UserBased(fixture(), "ghost", 10))
}

func TestItemBased(t *testing.T) {
	recs := ItemBased(fixture(), "u1", 10)
	require.Equal(t, []string{"a4", "a3"}, core.ArtworkIDs(recs))
	assert.InDelta(t, 0.7, recs[0].Score, 1e-9)
	// a3: 首次 0.5，a2 再次命中 +0.6×0.1
	assert.InDelta(t, 0.56, recs[1].Score, 1e-9)
	assert.Equal(t, 0.6, recs[1].Confidence)
}

func TestContentBased(t *testing.T) {
	recs := ContentBased(fixture(), "u1", 10)
	require.Equal(t, []string{"a3", "a4"}, core.ArtworkIDs(recs))
	assert.InDelta(t, 0.65, recs[0].Score, 1e-9)
	assert.InDelta(t, 0.30, recs[1].Score, 1e-9)

	// 没有画像：按全局热门内容
	popular := ContentBased(fixture(), "ghost", 10)
	require.Len(t, popular, 5)
	assert.Equal(t, "b1", popular[0].ArtworkID)
	assert.Equal(t, AlgorithmPopularContent, popular[0].Algorithm)
}

func TestHybrid(t *testing.T) {
	res := Hybrid(fixture(), "u1", 10)
	assert.True(t, res.HasUserData)
	assert.Equal(t, 2, res.LikedCount)
	assert.Equal(t, hybrid.Weights{Collaborative: 0.4, Content: 0.6}, res.Weights)
	require.Equal(t, []string{"a3", "a4"}, core.ArtworkIDs(res.Recommendations))
	assert.Equal(t, hybrid.AlgorithmCombined, res.Recommendations[0].Algorithm)
	for _, r := range res.Recommendations {
		assert.LessOrEqual(t, r.Score, 1.0)
	}

	// 只有评分、没有喜欢列表
	res = Hybrid(fixture(), "u2", 10)
	assert.Equal(t, hybrid.Weights{Collaborative: 0.3, Content: 0.7}, res.Weights)
}

func TestHybridWeights(t *testing.T) {
	tests := []struct {
		has   bool
		liked int
		want  hybrid.Weights
	}{
		{true, 5, hybrid.Weights{Collaborative: 0.6, Content: 0.4}},
		{true, 4, hybrid.Weights{Collaborative: 0.4, Content: 0.6}},
		{true, 1, hybrid.Weights{Collaborative: 0.4, Content: 0.6}},
		{true, 0, hybrid.Weights{Collaborative: 0.3, Content: 0.7}},
		{false, 3, hybrid.ContentOnly},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v/%d", tt.has, tt.liked), func(t *testing.T) {
			assert.Equal(t, tt.want, HybridWeights(tt.has, tt.liked))
		})
	}
}

func TestBulk_NoUserData(t *testing.T) {
	artworks := make([]Artwork, 0, 200)
	for i := 0; i < 200; i++ {
		artworks = append(artworks, Artwork{ID: fmt.Sprintf("a%03d", i), Features: Features{PopularityScore: float64(i) / 200}})
	}
	s := New(Metadata{}, artworks, nil, nil, nil, GlobalStats{})

	res := Bulk(s, "ghost", 50)
	assert.False(t, res.HasUserData)
	assert.Equal(t, hybrid.Weights{Collaborative: 0, Content: 1}, res.Weights)
	assert.LessOrEqual(t, len(res.Recommendations), 50)
	assert.Len(t, res.Recommendations, 50)
	assert.Equal(t, "a199", res.Recommendations[0].ArtworkID)

	small := Bulk(fixture(), "ghost", 50)
	assert.Equal(t, hybrid.ContentOnly, small.Weights)
	assert.Len(t, small.Recommendations, 5)
}

func TestNilSnapshot(t *testing.T) {
	rec := NewRecommender(NewStaticHolder(nil))
	assert.Empty(t, rec.UserBased("u", 5))
	assert.Empty(t, rec.ItemBased("u", 5))
	assert.Empty(t, rec.ContentBased("u", 5))
	res := rec.Bulk("u", 5)
	assert.NotNil(t, res.Recommendations)
	assert.Empty(t, res.Recommendations)
}
