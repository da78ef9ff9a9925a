package rerank

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，在过滤之后截取前 N 个推荐。
//
// N <= 0 时使用请求的 Limit；两者都为 0 时不截断。
//
// 示例：
//
//	p := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        filter.NewFilterNode(filter.NewThresholdFilter()),
//	        &rerank.TopNNode{},  // 截取到 rctx.Limit
//	    },
//	}
type TopNNode struct {
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	recs []*core.Recommendation,
) ([]*core.Recommendation, error) {
	limit := n.N
	if limit <= 0 && rctx != nil {
		limit = rctx.Limit
	}
	return core.Truncate(recs, limit), nil
}
