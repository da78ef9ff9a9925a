package core

import (
	"context"
	"time"
)

// PrecomputedStore 是预计算推荐结果的存储接口。
//
// 隔离保证：ReplaceUserRecommendations 对单个用户是原子的（删除旧行 + 写入新行在同一事务/同一次写入内完成），
// 并发读者只会看到旧集合或新集合，不会看到混合状态。多个并发重算之间"最后完成的写入胜出"。
type PrecomputedStore interface {
	// ReplaceUserRecommendations 全量替换某个用户的预计算结果（不是合并）
	ReplaceUserRecommendations(ctx context.Context, userID string, recs []PrecomputedRecommendation) error

	// GetValidRecommendations 读取 now 时刻仍有效的结果（分数降序，最多 limit 条）
	GetValidRecommendations(ctx context.Context, userID string, now time.Time, limit int) ([]PrecomputedRecommendation, error)

	// DeleteExpired 删除 ValidUntil <= now 的行，返回删除数量
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// Stats 返回预计算结果统计
	Stats(ctx context.Context) (RecommendationStats, error)
}

// RecommendationStats 是预计算结果统计。
type RecommendationStats struct {
	TotalRecommendations      int64   `json:"totalRecommendations"`
	UniqueUsers               int64   `json:"uniqueUsers"`
	UniqueArtworks            int64   `json:"uniqueArtworks"`
	AvgRecommendationsPerUser float64 `json:"avgRecommendationsPerUser"`
}

// NewRecommendationStats 由计数构建统计，平均值在无用户时为 0。
func NewRecommendationStats(total, users, artworks int64) RecommendationStats {
	stats := RecommendationStats{
		TotalRecommendations: total,
		UniqueUsers:          users,
		UniqueArtworks:       artworks,
	}
	if users > 0 {
		stats.AvgRecommendationsPerUser = float64(total) / float64(users)
	}
	return stats
}
