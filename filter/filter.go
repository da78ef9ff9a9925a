package filter

import (
	"context"

	"github.com/rushteam/artrec/core"
)

// Filter 是过滤器的抽象接口，用于判断一个推荐是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 rec 是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, rec *core.Recommendation) (bool, error)
}

// 合并后的默认门槛。
const (
	DefaultMinScore      = 0.1
	DefaultMinConfidence = 0.05
)

// ThresholdFilter 过滤分数或置信度过低的推荐。
type ThresholdFilter struct {
	MinScore      float64
	MinConfidence float64
}

func NewThresholdFilter() *ThresholdFilter {
	return &ThresholdFilter{MinScore: DefaultMinScore, MinConfidence: DefaultMinConfidence}
}

func (f *ThresholdFilter) Name() string { return "filter.threshold" }

func (f *ThresholdFilter) ShouldFilter(_ context.Context, _ *core.RecommendContext, rec *core.Recommendation) (bool, error) {
	return rec.Score < f.MinScore || rec.Confidence < f.MinConfidence, nil
}
