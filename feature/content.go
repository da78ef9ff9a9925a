package feature

import (
	"github.com/goccy/go-json"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/similarity"
)

// DefaultComplexity 是缺少质量分时的复杂度。
const DefaultComplexity = 0.5

// ContentFeature 是单个作品（或聚合后的用户画像）的内容特征。
type ContentFeature struct {
	Category     string
	Styles       []string
	StyleVector  []float64
	ColorPalette []float64
	Complexity   float64
	ArtistStyle  string
	Tags         []string
}

// Extract 从作品和分析结果抽取内容特征，analysis 可以为 nil。
func Extract(a core.Artwork, analysis *core.ArtworkAnalysis) ContentFeature {
	f := ContentFeature{
		Category:     a.Category,
		Styles:       append([]string{}, a.Styles...),
		ColorPalette: []float64{},
		Complexity:   DefaultComplexity,
		ArtistStyle:  a.ArtistID,
		Tags:         append([]string{}, a.Tags...),
	}
	if analysis != nil {
		f.StyleVector = analysis.StyleVector
		f.ColorPalette = ParseColorPalette(analysis.ColorPalette)
		if analysis.QualityScore != nil {
			f.Complexity = *analysis.QualityScore
		}
	}
	return f
}

// ParseColorPalette 解析 JSON 数字数组，空串或格式错误返回空切片。
func ParseColorPalette(raw string) []float64 {
	if raw == "" {
		return []float64{}
	}
	var palette []float64
	if err := json.Unmarshal([]byte(raw), &palette); err != nil || palette == nil {
		return []float64{}
	}
	return palette
}

// 作品-作品比较的权重，合计 1.0。
const (
	compareCategoryWeight   = 0.25
	compareStyleWeight      = 0.25
	compareTagWeight        = 0.20
	compareColorWeight      = 0.10
	compareComplexityWeight = 0.10
	compareArtistWeight     = 0.10
)

// CompareArtworks 计算两个作品内容特征的对称相似度 [0,1]。
// 与用户画像打分不同，这里两边都是单个作品，CompareArtworks(a, b) == CompareArtworks(b, a)。
// 两边都有风格向量时，风格项取标签重合度与向量余弦的均值。
func CompareArtworks(a, b ContentFeature) float64 {
	score := 0.0
	if a.Category != "" && a.Category == b.Category {
		score += compareCategoryWeight
	}
	style, _ := similarity.OverlapRatio(a.Styles, b.Styles)
	if len(a.StyleVector) > 0 && len(b.StyleVector) > 0 {
		style = (style + max(similarity.Cosine(a.StyleVector, b.StyleVector), 0)) / 2
	}
	score += compareStyleWeight * style
	tagRatio, _ := similarity.OverlapRatio(a.Tags, b.Tags)
	score += compareTagWeight * tagRatio
	score += compareColorWeight * similarity.Cosine(a.ColorPalette, b.ColorPalette)
	score += compareComplexityWeight * ComplexitySimilarity(a.Complexity, b.Complexity)
	if a.ArtistStyle != "" && a.ArtistStyle == b.ArtistStyle {
		score += compareArtistWeight
	}
	return core.ClampScore(score)
}

// ComplexitySimilarity 返回 1 - |a-b|，截断到 [0,1]。
func ComplexitySimilarity(a, b float64) float64 {
	d := a - b
	if d < 0 {
		d = -d
	}
	return core.ClampScore(1 - d)
}
