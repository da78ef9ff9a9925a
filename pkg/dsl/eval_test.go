package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/utils"
)

func TestRule_Match(t *testing.T) {
	rec := core.NewRecommendation("a1", 0.72, 0.4, "content_based")
	rec.PutLabel(utils.LabelRecallSource, utils.NewLabel("content", "recall"))
	art := &core.Artwork{ID: "a1", Category: "painting", Styles: []string{"abstract"}, Tags: []string{"blue"}, PriceMin: 100, Popularity: 0.3}
	rctx := &core.RecommendContext{UserID: "u1", Category: "painting"}

	cases := []struct {
		expr string
		want bool
	}{
		{`item.score > 0.7`, true},
		{`item.algorithm == "collaborative_filtering"`, false},
		{`artwork.category == rctx.category`, true},
		{`"abstract" in artwork.styles`, true},
		{`!("nsfw" in artwork.tags)`, true},
		{`artwork.price_min < 50.0`, false},
		{`label.recall_source != null && label.recall_source.value == "content"`, true},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			rule, err := Compile(tc.expr)
			require.NoError(t, err)
			got, err := rule.Match(rec, art, rctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRule_NilArtwork(t *testing.T) {
	rule := MustCompile(`item.confidence >= 0.1`)
	got, err := rule.Match(core.NewRecommendation("a1", 0.5, 0.2, "x"), nil, nil)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile(`item.score >`)
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))

	_, err = Compile(`1 + 2`)
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
}
