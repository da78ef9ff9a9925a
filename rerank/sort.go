package rerank

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
)

// SortNode 按分数降序稳定排序（分数相同按作品 ID），保证同输入同输出。
type SortNode struct{}

func (SortNode) Name() string        { return "rerank.sort" }
func (SortNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (SortNode) Process(_ context.Context, _ *core.RecommendContext, recs []*core.Recommendation) ([]*core.Recommendation, error) {
	core.SortRecommendations(recs)
	return recs, nil
}
