package filter

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/dsl"
)

// RuleFilter 用 CEL 表达式过滤推荐。
// 默认表达式描述"保留条件"，不满足的被过滤；Drop 为 true 时反过来，满足的被过滤。
// Store 非空时会查询作品，表达式可以访问 artwork.*。
type RuleFilter struct {
	Rule  *dsl.Rule
	Store core.FeatureStore
	Drop  bool
}

func NewRuleFilter(expr string, store core.FeatureStore, drop bool) (*RuleFilter, error) {
	rule, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &RuleFilter{Rule: rule, Store: store, Drop: drop}, nil
}

func (f *RuleFilter) Name() string { return "filter.rule" }

func (f *RuleFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, rec *core.Recommendation) (bool, error) {
	var art *core.Artwork
	if f.Store != nil {
		var err error
		if art, err = f.Store.GetArtworkByID(ctx, rec.ArtworkID); err != nil {
			return false, err
		}
	}
	matched, err := f.Rule.Match(rec, art, rctx)
	if err != nil {
		return false, err
	}
	return matched == f.Drop, nil
}
