package artrec_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec"
	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/store"
)

func TestNew(t *testing.T) {
	fs := store.NewMemoryFeatureStore()
	require.NoError(t, fs.AddArtwork(core.Artwork{ID: "a", Category: "abstract", Popularity: 0.5}))
	require.NoError(t, fs.AddArtwork(core.Artwork{ID: "b", Category: "abstract", Popularity: 0.9}))
	require.NoError(t, fs.RecordEvent("u", "a", core.EventLike, time.Now()))

	svc := artrec.New(fs, zerolog.Nop(), nil)
	resp, err := svc.GetRecommendations(context.Background(), artrec.Request{UserID: "u", Algorithm: artrec.StrategyContent})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, resp.ArtworkIDs)
}
