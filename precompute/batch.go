// Package precompute 提供预计算推荐的批处理入口：全量重算、清理过期、统计。
//
// 调度由外部负责（cron、任务系统），这里只暴露可直接调用的方法。
// 用户按固定大小分块：块内并发，块之间顺序执行；单个用户失败（包括 panic）
// 只记录日志和指标，不会中断整个批次。
package precompute

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/hybrid"
	"github.com/rushteam/artrec/metrics"
)

// 默认参数。
const (
	DefaultChunkSize = 10
	DefaultLimit     = 50
	DefaultTTL       = 24 * time.Hour
)

// Recommender 是批处理依赖的推荐入口（通常是 *hybrid.Engine）。
type Recommender interface {
	Recommend(ctx context.Context, rctx *core.RecommendContext) (*hybrid.Result, error)
}

type Config struct {
	ChunkSize int           `koanf:"chunk_size" yaml:"chunk_size" validate:"gte=0"`
	Limit     int           `koanf:"limit" yaml:"limit" validate:"gte=0"`
	TTL       time.Duration `koanf:"ttl" yaml:"ttl" validate:"gte=0"`
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	return c
}

// Summary 是一次全量重算的结果。
type Summary struct {
	Users     int           `json:"users"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Rows      int           `json:"rows"`
	Duration  time.Duration `json:"duration"`
}

type Batch struct {
	Store       core.FeatureStore
	Recommender Recommender
	Results     core.PrecomputedStore
	Config      Config

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func New(store core.FeatureStore, rec Recommender, results core.PrecomputedStore, cfg Config, logger zerolog.Logger, m *metrics.Metrics) *Batch {
	return &Batch{
		Store:       store,
		Recommender: rec,
		Results:     results,
		Config:      cfg.withDefaults(),
		Logger:      logger.With().Str("component", "precompute").Logger(),
		Metrics:     m,
		Now:         time.Now,
	}
}

// ComputeForUser 实时计算一个用户的推荐并整体替换其预计算结果，返回写入行数。
// 实时计算因存储故障走了兜底时视为失败，不覆盖已有结果。
func (b *Batch) ComputeForUser(ctx context.Context, userID string) (int, error) {
	cfg := b.Config.withDefaults()
	res, err := b.Recommender.Recommend(ctx, &core.RecommendContext{UserID: userID, Limit: cfg.Limit})
	if err != nil {
		return 0, err
	}
	if res.FallbackReason == hybrid.FallbackError {
		return 0, core.NewDomainError(core.ModuleRecommend, core.ErrorCodeUnavailable,
			fmt.Sprintf("recommend %s: live computation unavailable", userID))
	}

	now := b.Now()
	rows := make([]core.PrecomputedRecommendation, 0, len(res.Recommendations))
	for _, r := range res.Recommendations {
		rows = append(rows, core.PrecomputedRecommendation{
			UserID:     userID,
			ArtworkID:  r.ArtworkID,
			Score:      r.Score,
			Algorithm:  res.Algorithm,
			ComputedAt: now,
			ValidUntil: now.Add(cfg.TTL),
		})
	}
	if err := b.Results.ReplaceUserRecommendations(ctx, userID, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ComputeRecommendationsForAllUsers 为全部活跃用户重算推荐。
// 只有获取用户列表失败或 ctx 取消时返回错误；此前完成的用户结果保留。
func (b *Batch) ComputeRecommendationsForAllUsers(ctx context.Context) (Summary, error) {
	start := b.Now()
	users, err := b.Store.GetAllActiveUsers(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list active users: %w", err)
	}
	sort.Strings(users)

	summary := Summary{Users: len(users)}
	chunk := b.Config.withDefaults().ChunkSize
	b.Logger.Info().Int("users", len(users)).Int("chunk_size", chunk).Msg("batch recompute started")

	for lo := 0; lo < len(users); lo += chunk {
		if err := ctx.Err(); err != nil {
			summary.Duration = b.Now().Sub(start)
			return summary, err
		}
		hi := min(lo+chunk, len(users))
		ok, rows := b.runChunk(ctx, users[lo:hi])
		summary.Succeeded += ok
		summary.Failed += (hi - lo) - ok
		summary.Rows += rows
	}

	summary.Duration = b.Now().Sub(start)
	b.Logger.Info().
		Int("users", summary.Users).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("rows", summary.Rows).
		Dur("took", summary.Duration).
		Msg("batch recompute finished")
	return summary, nil
}

// runChunk 并发处理一个块。正常结束的任务写入 done；panic 的任务没有写入，按失败计。
func (b *Batch) runChunk(ctx context.Context, users []string) (succeeded, rows int) {
	done := make([]bool, len(users))
	errs := make([]error, len(users))
	counts := make([]int, len(users))

	var wg conc.WaitGroup
	for i, userID := range users {
		wg.Go(func() {
			counts[i], errs[i] = b.ComputeForUser(ctx, userID)
			done[i] = true
		})
	}
	if recovered := wg.WaitAndRecover(); recovered != nil {
		b.Logger.Error().Err(recovered.AsError()).Msg("batch task panicked")
	}

	for i, userID := range users {
		err := errs[i]
		if !done[i] {
			err = fmt.Errorf("recompute %s: panicked", userID)
		}
		b.Metrics.IncBatchUser(err)
		if err != nil {
			b.Logger.Error().Err(err).Str("user_id", userID).Msg("recompute user failed")
			continue
		}
		succeeded++
		rows += counts[i]
	}
	return succeeded, rows
}

// CleanupExpiredRecommendations 删除已过期的预计算结果，返回删除条数。
func (b *Batch) CleanupExpiredRecommendations(ctx context.Context) (int64, error) {
	n, err := b.Results.DeleteExpired(ctx, b.Now())
	if err != nil {
		return 0, fmt.Errorf("cleanup expired recommendations: %w", err)
	}
	b.Logger.Info().Int64("deleted", n).Msg("expired recommendations cleaned")
	return n, nil
}

func (b *Batch) GetRecommendationStats(ctx context.Context) (core.RecommendationStats, error) {
	return b.Results.Stats(ctx)
}
