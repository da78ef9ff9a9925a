package hybrid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/store"
)

func TestLevels(t *testing.T) {
	assert.Equal(t, ExperienceNew, ExperienceFor(0))
	assert.Equal(t, ExperienceNew, ExperienceFor(3))
	assert.Equal(t, ExperienceIntermediate, ExperienceFor(4))
	assert.Equal(t, ExperienceIntermediate, ExperienceFor(10))
	assert.Equal(t, ExperienceExperienced, ExperienceFor(11))

	assert.Equal(t, AvailabilityLow, AvailabilityFor(4))
	assert.Equal(t, AvailabilityMedium, AvailabilityFor(5))
	assert.Equal(t, AvailabilityMedium, AvailabilityFor(19))
	assert.Equal(t, AvailabilityHigh, AvailabilityFor(20))
}

func interactionsOf(ratings ...float64) []core.Interaction {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]core.Interaction, 0, len(ratings))
	for i, r := range ratings {
		out = append(out, core.Interaction{
			UserID:    "u",
			ArtworkID: string(rune('a' + i)),
			Rating:    r,
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
		})
	}
	return out
}

func TestStability(t *testing.T) {
	six := interactionsOf(1, 1, 1, 1, 1, 1)

	t.Run("too few interactions", func(t *testing.T) {
		assert.Equal(t, DefaultStability, Stability(six[:5], map[string]string{}))
	})

	t.Run("same category in both halves", func(t *testing.T) {
		cats := map[string]string{"a": "x", "b": "x", "c": "x", "d": "x", "e": "x", "f": "x"}
		assert.InDelta(t, 1.0, Stability(six, cats), 1e-9)
	})

	t.Run("disjoint halves", func(t *testing.T) {
		cats := map[string]string{"a": "x", "b": "x", "c": "x", "d": "y", "e": "y", "f": "y"}
		assert.Equal(t, 0.0, Stability(six, cats))
	})

	t.Run("low ratings ignored", func(t *testing.T) {
		low := interactionsOf(0.3, 0.3, 0.3, 0.3, 0.3, 0.3)
		cats := map[string]string{"a": "x", "d": "y"}
		assert.Equal(t, DefaultStability, Stability(low, cats))
	})

	t.Run("partial overlap", func(t *testing.T) {
		// 前半 x=2, y=1；后半 x=1, y=2 → (0.5 + 0.5) / 2
		cats := map[string]string{"a": "x", "b": "x", "c": "y", "d": "x", "e": "y", "f": "y"}
		assert.InDelta(t, 0.5, Stability(six, cats), 1e-9)
	})

	t.Run("order independent of input order", func(t *testing.T) {
		cats := map[string]string{"a": "x", "b": "x", "c": "x", "d": "y", "e": "y", "f": "y"}
		reversed := []core.Interaction{six[5], six[4], six[3], six[2], six[1], six[0]}
		assert.Equal(t, Stability(six, cats), Stability(reversed, cats))
	})
}

func TestClassify(t *testing.T) {
	fs := store.NewMemoryFeatureStore()
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		require.NoError(t, fs.AddArtwork(core.Artwork{ID: id, Category: "portrait"}))
	}
	for _, it := range interactionsOf(1, 1, 1, 1, 1, 1) {
		require.NoError(t, fs.AddInteraction(it))
	}

	uc, err := Classify(context.Background(), fs, "u")
	require.NoError(t, err)
	assert.Equal(t, 6, uc.InteractionCount)
	assert.Equal(t, ExperienceIntermediate, uc.Experience)
	assert.Equal(t, AvailabilityMedium, uc.Availability)
	assert.InDelta(t, 1.0, uc.Stability, 1e-9)

	uc, err = Classify(context.Background(), fs, "nobody")
	require.NoError(t, err)
	assert.Equal(t, ExperienceNew, uc.Experience)
	assert.Equal(t, DefaultStability, uc.Stability)
}
