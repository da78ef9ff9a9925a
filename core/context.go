package core

import "github.com/rushteam/artrec/pkg/utils"

// Strategy 是推荐策略。
type Strategy string

const (
	StrategyHybrid        Strategy = "hybrid"
	StrategyCollaborative Strategy = "collaborative"
	StrategyContent       Strategy = "content"
)

// Valid 判断是否为已知策略（空串表示由编排层自动选择）。
func (s Strategy) Valid() bool {
	switch s {
	case "", StrategyHybrid, StrategyCollaborative, StrategyContent:
		return true
	}
	return false
}

// RecommendContext 承载用户/请求条件，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string
	Limit  int

	// 请求级过滤条件（合并后由 filter 节点应用）
	Category   string
	Styles     []string
	PriceRange *PriceRange

	// Algorithm 是调用方显式指定的策略，优先级最高
	Algorithm Strategy

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	// 例如：experience=new、availability=low
	Labels map[string]utils.Label

	// Params 请求级上下文参数
	Params map[string]any
}

// HasFilters 判断请求是否带有属性过滤条件。
func (rctx *RecommendContext) HasFilters() bool {
	return rctx.Category != "" || len(rctx.Styles) > 0 || rctx.PriceRange != nil
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
