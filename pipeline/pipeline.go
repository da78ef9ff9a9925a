package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
)

// Pipeline 把合并后的后处理逻辑拆成可组合的 Node 链。
type Pipeline struct {
	Nodes  []Node
	Logger zerolog.Logger
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	recs []*core.Recommendation,
) ([]*core.Recommendation, error) {
	cur := recs
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []*core.Recommendation{}
		}
		p.Logger.Debug().
			Str("node", node.Name()).
			Str("kind", string(node.Kind())).
			Int("in", len(cur)).
			Int("out", len(next)).
			Msg("pipeline node done")
		cur = next
	}
	return cur, nil
}
