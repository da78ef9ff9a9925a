package core

import "time"

// UserPreferenceVector 是用户偏好画像。
//
// 由批处理/分析层全量重算产出（不支持增量更新），引擎只读使用：
//
//	维度                 作用
//	PreferenceVector    与作品风格向量对齐的 128 维偏好
//	PreferredStyles     风格 → 权重
//	PreferredCategories 类别 → 权重
//	ProfileConfidence   画像可信度 [0,1]
type UserPreferenceVector struct {
	UserID              string             `json:"userId"`
	PreferenceVector    []float64          `json:"preferenceVector"`
	PreferredStyles     map[string]float64 `json:"preferredStyles"`
	PreferredCategories map[string]float64 `json:"preferredCategories"`
	ProfileConfidence   float64            `json:"profileConfidence"`
	LastUpdated         time.Time          `json:"lastUpdated"`
}

// HasCategory 检查用户是否偏好某个类别。
func (p *UserPreferenceVector) HasCategory(category string, threshold float64) bool {
	if p == nil || p.PreferredCategories == nil {
		return false
	}
	weight, ok := p.PreferredCategories[category]
	return ok && weight >= threshold
}

// StyleWeight 获取风格权重。
func (p *UserPreferenceVector) StyleWeight(style string) float64 {
	if p == nil || p.PreferredStyles == nil {
		return 0
	}
	return p.PreferredStyles[style]
}
