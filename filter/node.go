package filter

import (
	"context"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/utils"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该推荐就会被过滤掉。
// 过滤器的一般错误只跳过该过滤器；存储故障会中断并向上返回，由编排层兜底。
type FilterNode struct {
	Filters []Filter
}

func NewFilterNode(filters ...Filter) *FilterNode {
	return &FilterNode{Filters: filters}
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	recs []*core.Recommendation,
) ([]*core.Recommendation, error) {
	if len(n.Filters) == 0 || len(recs) == 0 {
		return recs, nil
	}

	out := make([]*core.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if rec == nil {
			continue
		}

		filterReason := ""
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, rec)
			if err != nil {
				if core.IsStoreFailure(err) {
					return nil, err
				}
				continue
			}
			if ok {
				filterReason = f.Name()
				break
			}
		}

		if filterReason != "" {
			rec.PutLabel(utils.LabelFiltered, utils.NewLabel("true", filterReason))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
