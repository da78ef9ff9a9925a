package hybrid

import "github.com/rushteam/artrec/core"

// Weights 是协同/内容两路的混合权重，合计 1。
type Weights struct {
	Collaborative float64 `json:"collaborative"`
	Content       float64 `json:"content"`
}

var (
	CollaborativeOnly = Weights{Collaborative: 1, Content: 0}
	ContentOnly       = Weights{Collaborative: 0, Content: 1}
)

// 策略选择阈值。
const (
	collaborativeStability = 0.7
	stableBoost            = 0.8
	unstableBoost          = 0.4
	boostFactor            = 1.2
	lowAvailabilityFactor  = 0.5
	highAvailabilityFactor = 1.3
)

// SelectStrategy 选择推荐策略：显式指定优先；新用户走内容；
// 数据充足且偏好稳定走协同；其余走混合。
func SelectStrategy(override core.Strategy, uc UserContext) core.Strategy {
	if override != "" {
		return override
	}
	switch {
	case uc.Experience == ExperienceNew:
		return core.StrategyContent
	case uc.Availability == AvailabilityHigh && uc.Stability > collaborativeStability:
		return core.StrategyCollaborative
	default:
		return core.StrategyHybrid
	}
}

// ComputeWeights 计算混合权重：
//  1. 起点 0.5/0.5；新用户 0.2/0.8，老用户 0.7/0.3
//  2. 数据量低协同 ×0.5，高协同 ×1.3，内容取补数
//  3. 稳定性 > 0.8 协同 ×1.2，< 0.4 内容 ×1.2
//  4. 归一化
func ComputeWeights(uc UserContext) Weights {
	w := Weights{Collaborative: 0.5, Content: 0.5}
	switch uc.Experience {
	case ExperienceNew:
		w = Weights{Collaborative: 0.2, Content: 0.8}
	case ExperienceExperienced:
		w = Weights{Collaborative: 0.7, Content: 0.3}
	}

	switch uc.Availability {
	case AvailabilityLow:
		w.Collaborative *= lowAvailabilityFactor
		w.Content = 1 - w.Collaborative
	case AvailabilityHigh:
		w.Collaborative *= highAvailabilityFactor
		if w.Collaborative > 1 {
			w.Collaborative = 1
		}
		w.Content = 1 - w.Collaborative
	}

	switch {
	case uc.Stability > stableBoost:
		w.Collaborative *= boostFactor
	case uc.Stability < unstableBoost:
		w.Content *= boostFactor
	}
	return w.Normalize()
}

// Normalize 归一化使两路权重合计为 1；全为 0 时退化为只用内容。
func (w Weights) Normalize() Weights {
	sum := w.Collaborative + w.Content
	if sum <= 0 {
		return ContentOnly
	}
	return Weights{Collaborative: w.Collaborative / sum, Content: w.Content / sum}
}
