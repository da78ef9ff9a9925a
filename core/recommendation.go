package core

import (
	"sort"
	"time"

	"github.com/rushteam/artrec/pkg/utils"
)

// Recommendation 是推荐链路中的统一承载结构：作品、分数、置信度、算法、理由、标签。
// Score 用于排序决策（合并前不保证落在 [0,1]，合并阶段负责截断）；
// Confidence 独立于分数大小，表示该分数的可信程度；
// Reasons 面向用户展示；Labels 用于解释与观测。
type Recommendation struct {
	ArtworkID  string                 `json:"artworkId"`
	Score      float64                `json:"score"`
	Confidence float64                `json:"confidence"`
	Algorithm  string                 `json:"algorithm"`
	Reasons    []string               `json:"reasons"`
	Labels     map[string]utils.Label `json:"labels,omitempty"`
}

func NewRecommendation(artworkID string, score, confidence float64, algorithm string) *Recommendation {
	return &Recommendation{
		ArtworkID:  artworkID,
		Score:      score,
		Confidence: confidence,
		Algorithm:  algorithm,
		Reasons:    make([]string, 0, 2),
		Labels:     make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (r *Recommendation) PutLabel(key string, lbl utils.Label) {
	if r.Labels == nil {
		r.Labels = make(map[string]utils.Label)
	}
	if old, ok := r.Labels[key]; ok {
		r.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	r.Labels[key] = lbl
}

// AddReason 追加推荐理由（去重，保持顺序）。
func (r *Recommendation) AddReason(reasons ...string) {
	for _, reason := range reasons {
		if reason == "" {
			continue
		}
		dup := false
		for _, existing := range r.Reasons {
			if existing == reason {
				dup = true
				break
			}
		}
		if !dup {
			r.Reasons = append(r.Reasons, reason)
		}
	}
}

// Clone 深拷贝，合并阶段不修改引擎输出。
func (r *Recommendation) Clone() *Recommendation {
	out := *r
	out.Reasons = append(make([]string, 0, len(r.Reasons)), r.Reasons...)
	out.Labels = make(map[string]utils.Label, len(r.Labels))
	for k, v := range r.Labels {
		out.Labels[k] = v
	}
	return &out
}

// SortRecommendations 按分数降序稳定排序，分数相同按作品 ID 升序，保证同输入同输出。
func SortRecommendations(recs []*Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].ArtworkID < recs[j].ArtworkID
	})
}

// Truncate 截取前 limit 个；limit <= 0 时不截断。
func Truncate(recs []*Recommendation, limit int) []*Recommendation {
	if limit > 0 && len(recs) > limit {
		return recs[:limit]
	}
	return recs
}

// ClampScore 把分数截断到 [0,1]。
func ClampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// ArtworkIDs 提取作品 ID 列表。
func ArtworkIDs(recs []*Recommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ArtworkID)
	}
	return out
}

// PrecomputedRecommendation 是预计算推荐的一行。
// ValidUntil 之后该行不再满足在线请求，但读路径不会主动删除。
type PrecomputedRecommendation struct {
	UserID     string    `json:"userId"`
	ArtworkID  string    `json:"artworkId"`
	Score      float64   `json:"score"`
	Algorithm  string    `json:"algorithm"`
	ComputedAt time.Time `json:"computedAt"`
	ValidUntil time.Time `json:"validUntil"`
}

// IsValid 判断该行在 now 时刻是否仍可用于在线请求。
func (p PrecomputedRecommendation) IsValid(now time.Time) bool {
	return now.Before(p.ValidUntil)
}
