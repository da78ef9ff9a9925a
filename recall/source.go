// Package recall 提供推荐候选的召回源：协同过滤（用户/物品）、基于内容、热门兜底。
//
// 每个召回源都实现 Source，按 rctx.Limit 截断、按分数降序稳定排序返回，
// 从不返回 nil 列表。没有数据（无交互、无画像）返回空列表，不是错误；
// 存储故障原样向上返回，由编排层决定是否兜底。
package recall

import (
	"context"

	"github.com/rushteam/artrec/core"
)

// Source 表示一个可复用的召回源（协同/内容/热门/...）。
// 你可以把它理解为“可并发 fan-out 的策略单元”。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Recommendation, error)
}

// 召回算法名（写入 Recommendation.Algorithm）。
const (
	AlgorithmUserCF        = "user_based_cf"
	AlgorithmItemCF        = "item_based_cf"
	AlgorithmCollaborative = "collaborative_filtering"
	AlgorithmContent       = "content_based"
	AlgorithmPopularity    = "fallback_popularity"
)

// finalize 排序并截断，保证返回非 nil。
func finalize(recs []*core.Recommendation, limit int) []*core.Recommendation {
	if recs == nil {
		return []*core.Recommendation{}
	}
	core.SortRecommendations(recs)
	return core.Truncate(recs, limit)
}

func limitOf(rctx *core.RecommendContext) int {
	if rctx == nil {
		return 0
	}
	return rctx.Limit
}
