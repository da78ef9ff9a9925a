package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/artrec/core"
)

func rows(user string, now time.Time, ttl time.Duration, ids ...string) []core.PrecomputedRecommendation {
	out := make([]core.PrecomputedRecommendation, 0, len(ids))
	for i, id := range ids {
		out = append(out, core.PrecomputedRecommendation{
			UserID:     user,
			ArtworkID:  id,
			Score:      1 - float64(i)*0.1,
			Algorithm:  "hybrid",
			ComputedAt: now,
			ValidUntil: now.Add(ttl),
		})
	}
	return out
}

func TestKVRecommendationStore_ReplaceIsFull(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	defer kv.Close()
	s := NewKVRecommendationStore(kv, "rec")
	now := time.Now()

	require.NoError(t, s.ReplaceUserRecommendations(ctx, "u1", rows("u1", now, time.Hour, "a", "b", "c")))
	require.NoError(t, s.ReplaceUserRecommendations(ctx, "u1", rows("u1", now, time.Hour, "d")))

	got, err := s.GetValidRecommendations(ctx, "u1", now, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "d", got[0].ArtworkID)
}

func TestKVRecommendationStore_ExpiryAndStats(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	defer kv.Close()
	s := NewKVRecommendationStore(kv, "rec")
	now := time.Now()

	require.NoError(t, s.ReplaceUserRecommendations(ctx, "u1", rows("u1", now, time.Hour, "a", "b")))
	require.NoError(t, s.ReplaceUserRecommendations(ctx, "u2", rows("u2", now.Add(-2*time.Hour), time.Hour, "b", "c")))

	expired, err := s.GetValidRecommendations(ctx, "u2", now, 10)
	require.NoError(t, err)
	assert.Empty(t, expired)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.RecommendationStats{
		TotalRecommendations:      4,
		UniqueUsers:               2,
		UniqueArtworks:            3,
		AvgRecommendationsPerUser: 2,
	}, stats)

	n, err := s.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.UniqueUsers)

	limited, err := s.GetValidRecommendations(ctx, "u1", now, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "a", limited[0].ArtworkID)
}

// recomputeDuringRead 在清理读取数据时插入一次并发重算。
type recomputeDuringRead struct {
	*MemoryStore
	onBatchGet func()
}

func (r *recomputeDuringRead) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	if r.onBatchGet != nil {
		hook := r.onBatchGet
		r.onBatchGet = nil
		hook()
	}
	return r.MemoryStore.BatchGet(ctx, keys)
}

func TestKVRecommendationStore_DeleteExpiredKeepsConcurrentRecompute(t *testing.T) {
	ctx := context.Background()
	kv := &recomputeDuringRead{MemoryStore: NewMemoryStore()}
	defer kv.Close()
	s := NewKVRecommendationStore(kv, "rec")
	now := time.Now()

	old := append(rows("u1", now, time.Hour, "old-valid"), rows("u1", now.Add(-2*time.Hour), time.Hour, "old-expired")...)
	require.NoError(t, s.ReplaceUserRecommendations(ctx, "u1", old))
	require.NoError(t, s.ReplaceUserRecommendations(ctx, "u2", rows("u2", now.Add(-2*time.Hour), time.Hour, "gone")))

	kv.onBatchGet = func() {
		require.NoError(t, s.ReplaceUserRecommendations(ctx, "u1", rows("u1", now, time.Hour, "new")))
	}

	n, err := s.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only u2 is cleaned")

	got, err := s.GetValidRecommendations(ctx, "u1", now, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, precomputedIDs(got))

	gone, err := s.GetValidRecommendations(ctx, "u2", now, 10)
	require.NoError(t, err)
	assert.Empty(t, gone)
}

func precomputedIDs(rows []core.PrecomputedRecommendation) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ArtworkID)
	}
	return out
}
