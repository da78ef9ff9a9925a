package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/store"
)

func exportGallery(t *testing.T) *store.MemoryFeatureStore {
	t.Helper()
	fs := store.NewMemoryFeatureStore()
	for _, a := range []core.Artwork{
		{ID: "a1", Category: "abstract", Styles: []string{"minimal"}, Tags: []string{"blue"}, ArtistID: "x", Popularity: 0.4},
		{ID: "a2", Category: "abstract", Styles: []string{"minimal", "bold"}, ArtistID: "x", Popularity: 0.7},
		{ID: "l1", Category: "landscape", Styles: []string{"classic"}, ArtistID: "y", Popularity: 0.9},
	} {
		require.NoError(t, fs.AddArtwork(a))
	}
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, fs.RecordEvent("u", "a1", core.EventLike, ts))
	require.NoError(t, fs.RecordEvent("u", "l1", core.EventView, ts))
	require.NoError(t, fs.RecordEvent("v", "a1", core.EventLike, ts))
	require.NoError(t, fs.RecordEvent("v", "a2", core.EventSave, ts))
	return fs
}

func TestExport(t *testing.T) {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	s, err := Export(context.Background(), exportGallery(t), now)
	require.NoError(t, err)

	assert.Equal(t, AlgorithmExport, s.Metadata.Algorithm)
	assert.Equal(t, 3, s.Metadata.ArtworkCount)
	assert.Equal(t, 2, s.Metadata.UserCount)
	assert.Equal(t, now, s.Metadata.GeneratedAt)

	u, ok := s.Profile("u")
	require.True(t, ok)
	assert.Equal(t, []string{"a1"}, u.LikedArtworks, "views are not likes")
	assert.InDelta(t, 1.0, u.Preferences.Categories["abstract"], 1e-9)

	assert.InDelta(t, 0.3, s.UserItemMatrix["u"]["l1"], 1e-9)
	assert.Greater(t, s.ItemSimilarityMatrix["a1"]["a2"], 0.0)
	assert.Equal(t, s.ItemSimilarityMatrix["a1"]["a2"], s.ItemSimilarityMatrix["a2"]["a1"])

	assert.Equal(t, []string{"abstract"}, s.GlobalStats.PopularCategories)
	assert.Equal(t, []string{"minimal", "bold"}, s.GlobalStats.PopularStyles)
	assert.Equal(t, []string{"x"}, s.GlobalStats.TopArtists)

	a2, ok := s.Artwork("a2")
	require.True(t, ok)
	assert.InDelta(t, 0.7, a2.Features.PopularityScore, 1e-9)
}

func TestExport_RoundTrip(t *testing.T) {
	s, err := Export(context.Background(), exportGallery(t), time.Unix(0, 0).UTC())
	require.NoError(t, err)

	data, err := s.Encode()
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, len(s.Artworks), len(back.Artworks))
	assert.True(t, back.HasUserData("v"))
	res := Hybrid(back, "u", 5)
	assert.Equal(t, []string{"a2"}, core.ArtworkIDs(res.Recommendations))
}

func TestTopCounted(t *testing.T) {
	got := topCounted(map[string]int{"b": 2, "a": 2, "c": 5, "d": 1}, 3)
	assert.Equal(t, []string{"c", "a", "b"}, got)
}
