package recall

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/utils"
)

// Fanout 并发执行多个召回源，按 Sources 顺序返回各自的结果。
// 任何一个召回源失败都会让整体失败（由调用方兜底），不会静默吞掉存储故障。
type Fanout struct {
	Sources       []Source
	MaxConcurrent int // 最大并发数（0 表示无限制）
}

func (n *Fanout) Name() string { return "recall.fanout" }

func (n *Fanout) Run(ctx context.Context, rctx *core.RecommendContext) ([][]*core.Recommendation, error) {
	results := make([][]*core.Recommendation, len(n.Sources))
	eg, egCtx := errgroup.WithContext(ctx)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		eg.Go(func() error {
			recs, err := src.Recall(egCtx, rctx)
			if err != nil {
				return err
			}
			// 记录召回来源 label，方便 explain / 观测
			for _, r := range recs {
				r.PutLabel(utils.LabelRecallSource, utils.NewLabel(src.Name(), "recall"))
			}
			if recs == nil {
				recs = []*core.Recommendation{}
			}
			results[i] = recs
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MergeMax 按作品去重合并多个列表：分数和置信度各取最大值，理由与标签取并集。
// 输入不会被修改；输出使用 algorithm 作为算法名，按分数降序稳定排序。
func MergeMax(algorithm string, lists ...[]*core.Recommendation) []*core.Recommendation {
	seen := make(map[string]*core.Recommendation)
	out := make([]*core.Recommendation, 0)
	for _, list := range lists {
		for _, r := range list {
			if r == nil {
				continue
			}
			old, ok := seen[r.ArtworkID]
			if !ok {
				c := r.Clone()
				c.Algorithm = algorithm
				seen[r.ArtworkID] = c
				out = append(out, c)
				continue
			}
			if r.Score > old.Score {
				old.Score = r.Score
			}
			if r.Confidence > old.Confidence {
				old.Confidence = r.Confidence
			}
			old.AddReason(r.Reasons...)
			for k, v := range r.Labels {
				old.PutLabel(k, v)
			}
		}
	}
	core.SortRecommendations(out)
	return out
}
