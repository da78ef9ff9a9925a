package feature

import (
	"context"
	"time"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/metrics"
)

// InstrumentedStore 记录每次 FeatureStore 调用的次数、结果和耗时。
type InstrumentedStore struct {
	next core.FeatureStore
	m    *metrics.Metrics
}

func NewInstrumentedStore(next core.FeatureStore, m *metrics.Metrics) *InstrumentedStore {
	return &InstrumentedStore{next: next, m: m}
}

func observe[T any](m *metrics.Metrics, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	m.ObserveStoreCall(op, err, time.Since(start))
	return out, err
}

func (s *InstrumentedStore) GetUserInteractions(ctx context.Context, userID string) ([]core.Interaction, error) {
	return observe(s.m, "user_interactions", func() ([]core.Interaction, error) {
		return s.next.GetUserInteractions(ctx, userID)
	})
}

func (s *InstrumentedStore) GetArtworkInteractions(ctx context.Context, artworkID string) ([]core.Interaction, error) {
	return observe(s.m, "artwork_interactions", func() ([]core.Interaction, error) {
		return s.next.GetArtworkInteractions(ctx, artworkID)
	})
}

func (s *InstrumentedStore) GetUserHighRatedArtworks(ctx context.Context, userID string, minRating float64) ([]core.RatedArtwork, error) {
	return observe(s.m, "user_high_rated", func() ([]core.RatedArtwork, error) {
		return s.next.GetUserHighRatedArtworks(ctx, userID, minRating)
	})
}

func (s *InstrumentedStore) GetUserInteractedArtworkIDs(ctx context.Context, userID string) ([]string, error) {
	return observe(s.m, "user_interacted_ids", func() ([]string, error) {
		return s.next.GetUserInteractedArtworkIDs(ctx, userID)
	})
}

func (s *InstrumentedStore) GetArtworkByID(ctx context.Context, artworkID string) (*core.Artwork, error) {
	return observe(s.m, "artwork", func() (*core.Artwork, error) {
		return s.next.GetArtworkByID(ctx, artworkID)
	})
}

func (s *InstrumentedStore) GetAllArtworks(ctx context.Context) ([]core.Artwork, error) {
	return observe(s.m, "all_artworks", func() ([]core.Artwork, error) {
		return s.next.GetAllArtworks(ctx)
	})
}

func (s *InstrumentedStore) GetAllActiveUsers(ctx context.Context) ([]string, error) {
	return observe(s.m, "active_users", func() ([]string, error) {
		return s.next.GetAllActiveUsers(ctx)
	})
}

func (s *InstrumentedStore) GetArtworkAnalysis(ctx context.Context, artworkID string) (*core.ArtworkAnalysis, error) {
	return observe(s.m, "artwork_analysis", func() (*core.ArtworkAnalysis, error) {
		return s.next.GetArtworkAnalysis(ctx, artworkID)
	})
}

func (s *InstrumentedStore) GetUserPreferenceVector(ctx context.Context, userID string) (*core.UserPreferenceVector, error) {
	return observe(s.m, "user_preference_vector", func() (*core.UserPreferenceVector, error) {
		return s.next.GetUserPreferenceVector(ctx, userID)
	})
}

var _ core.FeatureStore = (*InstrumentedStore)(nil)
