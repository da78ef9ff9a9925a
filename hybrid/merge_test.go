package hybrid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rushteam/artrec/core"
)

func rec(id string, score, confidence float64, reasons ...string) *core.Recommendation {
	r := core.NewRecommendation(id, score, confidence, "engine")
	r.AddReason(reasons...)
	return r
}

func TestMerge(t *testing.T) {
	collab := []*core.Recommendation{rec("a", 0.9, 0.8, "collab"), rec("b", 0.4, 0.5)}
	content := []*core.Recommendation{rec("a", 0.6, 0.9, "content"), rec("c", 0.8, 0.4)}
	w := Weights{Collaborative: 0.6, Content: 0.4}

	out := Merge(collab, content, w)

	byID := map[string]*core.Recommendation{}
	for _, r := range out {
		_, dup := byID[r.ArtworkID]
		assert.False(t, dup, "duplicate %s", r.ArtworkID)
		byID[r.ArtworkID] = r
	}
	assert.Len(t, out, 3)

	assert.InDelta(t, 0.9*0.6+0.6*0.4, byID["a"].Score, 1e-9)
	assert.Equal(t, AlgorithmCombined, byID["a"].Algorithm)
	assert.Equal(t, []string{"collab", "content"}, byID["a"].Reasons)
	assert.Equal(t, 0.9, byID["a"].Confidence)

	assert.InDelta(t, 0.4*0.6, byID["b"].Score, 1e-9)
	assert.Equal(t, AlgorithmCollaborativeWeighted, byID["b"].Algorithm)

	assert.InDelta(t, 0.8*0.4, byID["c"].Score, 1e-9)
	assert.Equal(t, AlgorithmContentWeighted, byID["c"].Algorithm)

	assert.Equal(t, []string{"a", "c", "b"}, core.ArtworkIDs(out))

	// 输入不被修改
	assert.Equal(t, 0.9, collab[0].Score)
	assert.Equal(t, "engine", content[0].Algorithm)
}

func TestMerge_ClampsScores(t *testing.T) {
	out := Merge(
		[]*core.Recommendation{rec("a", 3.0, 1)},
		[]*core.Recommendation{rec("a", 2.0, 1), rec("b", -1, 1)},
		Weights{Collaborative: 0.5, Content: 0.5},
	)
	for _, r := range out {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
	assert.Equal(t, 1.0, out[0].Score)
}

func TestMerge_Empty(t *testing.T) {
	out := Merge(nil, nil, Weights{Collaborative: 0.5, Content: 0.5})
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
