package feature

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/rushteam/artrec/core"
)

// BreakerConfig 是熔断配置。零值使用默认值。
type BreakerConfig struct {
	Name         string        `koanf:"name" yaml:"name"`
	MinRequests  uint32        `koanf:"min_requests" yaml:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio" yaml:"failure_ratio" validate:"gte=0,lte=1"`
	OpenTimeout  time.Duration `koanf:"open_timeout" yaml:"open_timeout"`
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.Name == "" {
		c.Name = "feature-store"
	}
	if c.MinRequests == 0 {
		c.MinRequests = 10
	}
	if c.FailureRatio == 0 {
		c.FailureRatio = 0.6
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = 30 * time.Second
	}
	return c
}

// BreakerStore 给 FeatureStore 加一层熔断。
// 熔断打开时直接返回 StoreFailure，由编排层走热门兜底，不再压垮下游。
// 未找到（空集合 / nil）不计为失败。
type BreakerStore struct {
	next core.FeatureStore
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerStore(next core.FeatureStore, cfg BreakerConfig) *BreakerStore {
	cfg = cfg.withDefaults()
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// 调用方取消不算下游故障
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &BreakerStore{next: next, cb: cb}
}

// State 返回当前熔断状态（closed / half-open / open）。
func (b *BreakerStore) State() string {
	return b.cb.State().String()
}

func guarded[T any](cb *gobreaker.CircuitBreaker, op string, fn func() (T, error)) (T, error) {
	out, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, core.NewStoreFailure(op, err)
		}
		return zero, err
	}
	return out.(T), nil
}

func (b *BreakerStore) GetUserInteractions(ctx context.Context, userID string) ([]core.Interaction, error) {
	return guarded(b.cb, "get user interactions", func() ([]core.Interaction, error) {
		return b.next.GetUserInteractions(ctx, userID)
	})
}

func (b *BreakerStore) GetArtworkInteractions(ctx context.Context, artworkID string) ([]core.Interaction, error) {
	return guarded(b.cb, "get artwork interactions", func() ([]core.Interaction, error) {
		return b.next.GetArtworkInteractions(ctx, artworkID)
	})
}

func (b *BreakerStore) GetUserHighRatedArtworks(ctx context.Context, userID string, minRating float64) ([]core.RatedArtwork, error) {
	return guarded(b.cb, "get user high rated artworks", func() ([]core.RatedArtwork, error) {
		return b.next.GetUserHighRatedArtworks(ctx, userID, minRating)
	})
}

func (b *BreakerStore) GetUserInteractedArtworkIDs(ctx context.Context, userID string) ([]string, error) {
	return guarded(b.cb, "get user interacted artwork ids", func() ([]string, error) {
		return b.next.GetUserInteractedArtworkIDs(ctx, userID)
	})
}

func (b *BreakerStore) GetArtworkByID(ctx context.Context, artworkID string) (*core.Artwork, error) {
	return guarded(b.cb, "get artwork", func() (*core.Artwork, error) {
		return b.next.GetArtworkByID(ctx, artworkID)
	})
}

func (b *BreakerStore) GetAllArtworks(ctx context.Context) ([]core.Artwork, error) {
	return guarded(b.cb, "get all artworks", func() ([]core.Artwork, error) {
		return b.next.GetAllArtworks(ctx)
	})
}

func (b *BreakerStore) GetAllActiveUsers(ctx context.Context) ([]string, error) {
	return guarded(b.cb, "get all active users", func() ([]string, error) {
		return b.next.GetAllActiveUsers(ctx)
	})
}

func (b *BreakerStore) GetArtworkAnalysis(ctx context.Context, artworkID string) (*core.ArtworkAnalysis, error) {
	return guarded(b.cb, "get artwork analysis", func() (*core.ArtworkAnalysis, error) {
		return b.next.GetArtworkAnalysis(ctx, artworkID)
	})
}

func (b *BreakerStore) GetUserPreferenceVector(ctx context.Context, userID string) (*core.UserPreferenceVector, error) {
	return guarded(b.cb, "get user preference vector", func() (*core.UserPreferenceVector, error) {
		return b.next.GetUserPreferenceVector(ctx, userID)
	})
}

var _ core.FeatureStore = (*BreakerStore)(nil)
