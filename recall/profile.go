package recall

import (
	"fmt"
	"sort"

	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/pkg/similarity"
)

// 画像聚合的截断长度。
const (
	profileTopStyles = 3
	profileTopTags   = 5
)

// 画像打分权重，合计 1.0。
const (
	WeightCategory   = 0.25
	WeightStyle      = 0.20
	WeightColor      = 0.15
	WeightComplexity = 0.10
	WeightArtist     = 0.15
	WeightTags       = 0.15
)

// 理由触发阈值。
const (
	colorReasonThreshold      = 0.5
	complexityReasonThreshold = 0.7
)

// WeightedFeature 是带评分权重的作品内容特征。
type WeightedFeature struct {
	Feature feature.ContentFeature
	Weight  float64
}

// ContentProfile 是用户的内容偏好画像，由高评分作品按评分加权聚合而来。
type ContentProfile struct {
	Category     string
	Styles       []string
	ColorPalette []float64
	Complexity   float64
	ArtistStyle  string
	Tags         []string
}

// BuildProfile 聚合内容特征。没有正权重的输入时返回 nil（没有画像）。
//
//   - Category / ArtistStyle：权重最大的单个取值（并列按字典序）
//   - Styles：权重前 3；Tags：权重前 5
//   - ColorPalette：逐位加权平均
//   - Complexity：加权平均
func BuildProfile(features []WeightedFeature) *ContentProfile {
	var (
		categories = map[string]float64{}
		styles     = map[string]float64{}
		artists    = map[string]float64{}
		tags       = map[string]float64{}
		colorSum   []float64
		colorW     []float64
		complexSum float64
		totalW     float64
	)
	for _, wf := range features {
		w := wf.Weight
		if w <= 0 {
			continue
		}
		totalW += w
		f := wf.Feature
		if f.Category != "" {
			categories[f.Category] += w
		}
		if f.ArtistStyle != "" {
			artists[f.ArtistStyle] += w
		}
		for _, s := range dedupe(f.Styles) {
			styles[s] += w
		}
		for _, t := range dedupe(f.Tags) {
			tags[t] += w
		}
		for i, c := range f.ColorPalette {
			if i >= len(colorSum) {
				colorSum = append(colorSum, 0)
				colorW = append(colorW, 0)
			}
			colorSum[i] += c * w
			colorW[i] += w
		}
		complexSum += f.Complexity * w
	}
	if totalW == 0 {
		return nil
	}

	palette := make([]float64, len(colorSum))
	for i := range colorSum {
		palette[i] = colorSum[i] / colorW[i]
	}
	return &ContentProfile{
		Category:     topKeys(categories, 1).first(),
		Styles:       topKeys(styles, profileTopStyles),
		ColorPalette: palette,
		Complexity:   complexSum / totalW,
		ArtistStyle:  topKeys(artists, 1).first(),
		Tags:         topKeys(tags, profileTopTags),
	}
}

// Completeness 是六个画像字段中非空（复杂度为非默认值）的比例。
func (p *ContentProfile) Completeness() float64 {
	if p == nil {
		return 0
	}
	n := 0
	if p.Category != "" {
		n++
	}
	if len(p.Styles) > 0 {
		n++
	}
	if len(p.ColorPalette) > 0 {
		n++
	}
	if p.Complexity != feature.DefaultComplexity {
		n++
	}
	if p.ArtistStyle != "" {
		n++
	}
	if len(p.Tags) > 0 {
		n++
	}
	return float64(n) / 6
}

// Score 对候选作品打分，返回 [0,1] 内的加权和与推荐理由。
func (p *ContentProfile) Score(f feature.ContentFeature) (float64, []string) {
	score := 0.0
	reasons := make([]string, 0, 6)

	if p.Category != "" && p.Category == f.Category {
		score += WeightCategory
		reasons = append(reasons, fmt.Sprintf("matches your favorite category: %s", f.Category))
	}

	styleRatio, commonStyles := similarity.OverlapRatio(p.Styles, f.Styles)
	score += WeightStyle * styleRatio
	if commonStyles > 0 {
		reasons = append(reasons, fmt.Sprintf("shares %d of your preferred styles", commonStyles))
	}

	colorSim := similarity.Cosine(p.ColorPalette, f.ColorPalette)
	score += WeightColor * colorSim
	if colorSim > colorReasonThreshold {
		reasons = append(reasons, "similar colors")
	}

	complexitySim := feature.ComplexitySimilarity(p.Complexity, f.Complexity)
	score += WeightComplexity * complexitySim
	if complexitySim > complexityReasonThreshold {
		reasons = append(reasons, "similar complexity")
	}

	if p.ArtistStyle != "" && p.ArtistStyle == f.ArtistStyle {
		score += WeightArtist
		reasons = append(reasons, "from an artist you like")
	}

	tagRatio, commonTags := similarity.OverlapRatio(p.Tags, f.Tags)
	score += WeightTags * tagRatio
	if commonTags > 0 {
		reasons = append(reasons, fmt.Sprintf("%d matching tags", commonTags))
	}

	return score, reasons
}

// Confidence = 0.6 × 完整度 + 0.4 × min(理由数/5, 1)。
func (p *ContentProfile) Confidence(reasonCount int) float64 {
	return 0.6*p.Completeness() + 0.4*minOne(float64(reasonCount)/5)
}

type rankedKeys []string

func (r rankedKeys) first() string {
	if len(r) == 0 {
		return ""
	}
	return r[0]
}

// topKeys 按权重降序取前 n 个 key，权重相同按字典序。
func topKeys(m map[string]float64, n int) rankedKeys {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
