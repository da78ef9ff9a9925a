package hybrid

import (
	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/utils"
)

// 合并后的算法名。
const (
	AlgorithmCollaborativeWeighted = "hybrid_collaborative_weighted"
	AlgorithmContentWeighted       = "hybrid_content_weighted"
	AlgorithmCombined              = "hybrid_combined"
)

// Merge 按权重合并两路结果：
//   - 协同结果 × w.Collaborative（hybrid_collaborative_weighted）
//   - 内容结果 × w.Content，已存在则累加（hybrid_combined，理由取并集），否则插入（hybrid_content_weighted）
//
// 分数截断到 [0,1]，输出按分数降序稳定排序，作品 ID 唯一。输入不会被修改。
func Merge(collaborative, content []*core.Recommendation, w Weights) []*core.Recommendation {
	byID := make(map[string]*core.Recommendation, len(collaborative)+len(content))
	out := make([]*core.Recommendation, 0, len(collaborative)+len(content))

	for _, r := range collaborative {
		if r == nil {
			continue
		}
		weighted := r.Score * w.Collaborative
		if old, ok := byID[r.ArtworkID]; ok {
			if weighted > old.Score {
				old.Score = weighted
			}
			continue
		}
		c := r.Clone()
		c.Score = weighted
		c.Algorithm = AlgorithmCollaborativeWeighted
		byID[c.ArtworkID] = c
		out = append(out, c)
	}

	for _, r := range content {
		if r == nil {
			continue
		}
		weighted := r.Score * w.Content
		if old, ok := byID[r.ArtworkID]; ok {
			old.Score += weighted
			old.Algorithm = AlgorithmCombined
			old.AddReason(r.Reasons...)
			if r.Confidence > old.Confidence {
				old.Confidence = r.Confidence
			}
			for k, v := range r.Labels {
				old.PutLabel(k, v)
			}
			continue
		}
		c := r.Clone()
		c.Score = weighted
		c.Algorithm = AlgorithmContentWeighted
		byID[c.ArtworkID] = c
		out = append(out, c)
	}

	for _, r := range out {
		r.Score = core.ClampScore(r.Score)
		r.PutLabel(utils.LabelStrategy, utils.NewLabel(string(core.StrategyHybrid), "hybrid"))
	}
	core.SortRecommendations(out)
	return out
}
