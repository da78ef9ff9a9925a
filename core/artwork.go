package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Artwork 是作品元数据，在特征存储适配层完成校验后才进入引擎。
type Artwork struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Styles      []string  `json:"styles"`
	Tags        []string  `json:"tags"`
	ArtistID    string    `json:"artistId"`
	PriceMin    float64   `json:"priceMin"`
	PriceMax    float64   `json:"priceMax"`
	Popularity  float64   `json:"popularity"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Validate 检查作品记录是否可用。
func (a *Artwork) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return NewValidationError("artwork.id", "must not be empty")
	}
	if a.PriceMin < 0 || a.PriceMax < 0 {
		return NewValidationError("artwork.price", "must not be negative")
	}
	if a.PriceMax != 0 && a.PriceMax < a.PriceMin {
		return NewValidationError("artwork.price", "max below min")
	}
	return nil
}

// Normalize 按固定规则修正作品记录：去除空白、丢弃空标签、负热度归零。
func (a *Artwork) Normalize() {
	a.ID = strings.TrimSpace(a.ID)
	a.Category = strings.TrimSpace(a.Category)
	a.Styles = compactStrings(a.Styles)
	a.Tags = compactStrings(a.Tags)
	if a.Popularity < 0 {
		a.Popularity = 0
	}
}

func compactStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// PriceRange 是价格区间过滤条件。
type PriceRange struct {
	Min float64 `json:"min" validate:"gte=0"`
	Max float64 `json:"max" validate:"gtefield=Min"`
}

// Overlaps 判断作品价格区间是否与过滤区间相交。
func (r PriceRange) Overlaps(minPrice, maxPrice float64) bool {
	if maxPrice == 0 {
		maxPrice = minPrice
	}
	return minPrice <= r.Max && maxPrice >= r.Min
}

// VectorDim 是风格向量/偏好向量的维度。
const VectorDim = 128

// ArtworkAnalysis 是作品的离线分析结果（由分析层产出，本库只读）。
type ArtworkAnalysis struct {
	ArtworkID       string             `json:"artworkId"`
	StyleVector     []float64          `json:"styleVector"`
	CategoryScores  map[string]float64 `json:"categoryScores"`
	ColorPalette    string             `json:"colorPalette"` // 原始 JSON 数组
	PopularityScore float64            `json:"popularityScore"`
	QualityScore    *float64           `json:"qualityScore,omitempty"`
	ContentHash     string             `json:"contentHash"`
	LastAnalyzed    time.Time          `json:"lastAnalyzed"`
}

// ContentHash 计算作品内容摘要（标题/描述/类别/风格/价格区间）。
// 风格列表按原始顺序参与计算，每个元素单独结尾，["a,b"] 与 ["a","b"] 不会相撞。
func ContentHash(a Artwork) string {
	var b strings.Builder
	b.WriteString(a.Title)
	b.WriteByte('\x1f')
	b.WriteString(a.Description)
	b.WriteByte('\x1f')
	b.WriteString(a.Category)
	b.WriteByte('\x1f')
	for _, st := range a.Styles {
		b.WriteString(st)
		b.WriteByte('\x1e')
	}
	b.WriteByte('\x1f')
	b.WriteString(strconv.FormatFloat(a.PriceMin, 'f', 2, 64))
	b.WriteByte('-')
	b.WriteString(strconv.FormatFloat(a.PriceMax, 'f', 2, 64))
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// NeedsAnalysis 判断作品是否需要重新分析：没有分析结果，或内容摘要已变化。
// 同一内容版本最多分析一次。
func NeedsAnalysis(a Artwork, existing *ArtworkAnalysis) bool {
	if existing == nil {
		return true
	}
	return existing.ContentHash != ContentHash(a)
}
