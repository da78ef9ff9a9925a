package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/core"
)

const sampleJSON = `{
  "metadata": {"generatedAt": "2024-06-01T00:00:00Z", "artworkCount": 4, "userCount": 2, "algorithm": "export-v1"},
  "artworks": [
    {"id": "a1", "title": "Sunrise", "category": "landscape", "style": ["impressionism"], "tags": ["sun"], "artistId": "m", "features": {"popularity_score": 0.9}},
    {"id": "a2", "title": "Dusk", "category": "landscape", "style": ["impressionism", "oil"], "tags": ["sun", "sea"], "features": {"popularity_score": 0.5}},
    {"id": "a3", "title": "Face", "category": "portrait", "style": ["realism"], "tags": [], "features": {"popularity_score": 1.7}},
    {"id": " ", "title": "broken"},
    {"id": "a1", "title": "duplicate"}
  ],
  "userProfiles": [
    {"userId": "u1", "likedArtworks": ["a1", "a1", ""], "preferences": {"categories": {"landscape": 1}, "styles": {"impressionism": 0.8}}},
    {"userId": "", "likedArtworks": ["a2"]}
  ],
  "userItemMatrix": {"u1": {"a1": 1.4, "a2": -0.2}, "u2": {"a1": 1, "a2": 0.9}},
  "itemSimilarityMatrix": {"a1": {"a2": 0.8, "a3": 0.1}},
  "globalStats": {"popularCategories": ["landscape"], "popularStyles": ["impressionism"]}
}`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, "export-v1", s.Metadata.Algorithm)
	assert.Equal(t, 2024, s.Metadata.GeneratedAt.Year())

	require.Len(t, s.Artworks, 3)
	a1, ok := s.Artwork("a1")
	require.True(t, ok)
	assert.Equal(t, "Sunrise", a1.Title)
	a3, _ := s.Artwork("a3")
	assert.Equal(t, 1.0, a3.Features.PopularityScore)

	require.Len(t, s.UserProfiles, 1)
	p, ok := s.Profile("u1")
	require.True(t, ok)
	assert.Equal(t, []string{"a1"}, p.LikedArtworks)

	assert.Equal(t, 1.0, s.UserItemMatrix["u1"]["a1"])
	assert.Equal(t, 0.0, s.UserItemMatrix["u1"]["a2"])
	assert.True(t, s.HasUserData("u1"))
	assert.True(t, s.HasUserData("u2"))
	assert.False(t, s.HasUserData("ghost"))
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`{"artworks": [`))
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
}

func TestCoreArtworks(t *testing.T) {
	s, err := Parse([]byte(sampleJSON))
	require.NoError(t, err)
	arts := s.CoreArtworks()
	require.Len(t, arts, 3)
	assert.Equal(t, "a1", arts[0].ID)
	assert.Equal(t, 0.9, arts[0].Popularity)
	assert.Equal(t, []string{"impressionism"}, arts[0].Styles)
}
