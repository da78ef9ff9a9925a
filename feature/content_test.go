package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rushteam/artrec/core"
)

func TestExtract(t *testing.T) {
	q := 0.9
	art := core.Artwork{ID: "a1", Category: "portrait", Styles: []string{"oil"}, Tags: []string{"face"}, ArtistID: "artist-1"}

	f := Extract(art, nil)
	assert.Equal(t, DefaultComplexity, f.Complexity)
	assert.Equal(t, []float64{}, f.ColorPalette)
	assert.Equal(t, "artist-1", f.ArtistStyle)

	assert.Empty(t, f.StyleVector)

	f = Extract(art, &core.ArtworkAnalysis{ArtworkID: "a1", QualityScore: &q, ColorPalette: `[0.1, 0.5, 0.9]`, StyleVector: []float64{0.3, 0.4}})
	assert.Equal(t, []float64{0.3, 0.4}, f.StyleVector)
	assert.Equal(t, 0.9, f.Complexity)
	assert.Equal(t, []float64{0.1, 0.5, 0.9}, f.ColorPalette)
}

func TestParseColorPalette(t *testing.T) {
	cases := map[string][]float64{
		"":              {},
		"not json":      {},
		`{"r": 1}`:      {},
		"null":          {},
		`[0.2, 0.4]`:    {0.2, 0.4},
		`["#fff", 0.1]`: {},
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseColorPalette(raw), raw)
	}
}

func TestCompareArtworks(t *testing.T) {
	a := ContentFeature{
		Category:     "portrait",
		Styles:       []string{"oil", "realism"},
		Tags:         []string{"face"},
		ColorPalette: []float64{1, 0, 0},
		Complexity:   0.5,
		ArtistStyle:  "x",
	}
	assert.InDelta(t, 1.0, CompareArtworks(a, a), 1e-9)

	b := ContentFeature{Category: "logo", Styles: []string{"flat"}, Complexity: 0.5}
	assert.InDelta(t, CompareArtworks(a, b), CompareArtworks(b, a), 1e-12)
	assert.InDelta(t, 0.1, CompareArtworks(a, b), 1e-9, "only complexity matches")
}

func TestCompareArtworks_StyleVector(t *testing.T) {
	a := ContentFeature{Styles: []string{"oil"}, StyleVector: []float64{1, 0}, Complexity: 0.5}
	same := ContentFeature{Styles: []string{"oil"}, StyleVector: []float64{1, 0}, Complexity: 0.5}
	orthogonal := ContentFeature{Styles: []string{"oil"}, StyleVector: []float64{0, 1}, Complexity: 0.5}
	noVector := ContentFeature{Styles: []string{"oil"}, Complexity: 0.5}

	assert.InDelta(t, 0.35, CompareArtworks(a, same), 1e-9)
	assert.InDelta(t, 0.225, CompareArtworks(a, orthogonal), 1e-9, "half of the style weight")
	assert.InDelta(t, 0.35, CompareArtworks(a, noVector), 1e-9, "overlap only")
	assert.InDelta(t, CompareArtworks(a, orthogonal), CompareArtworks(orthogonal, a), 1e-12)
}

func TestComplexitySimilarity(t *testing.T) {
	assert.Equal(t, 1.0, ComplexitySimilarity(0.5, 0.5))
	assert.InDelta(t, 0.7, ComplexitySimilarity(0.2, 0.5), 1e-9)
	assert.Equal(t, 0.0, ComplexitySimilarity(-1, 1))
}
