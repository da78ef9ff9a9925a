// Package similarity 提供推荐系统使用的相似度原语：余弦相似度、皮尔逊相关系数。
//
// 所有函数都是纯函数：无副作用、不 panic、不返回错误。
// 退化输入（零向量、重叠不足、分母为 0）统一返回 0。
package similarity

import (
	"cmp"
	"math"
	"slices"
)

// MinCommonInteractions 是计算皮尔逊相关系数所需的最小配对样本数。
const MinCommonInteractions = 3

// Cosine 计算两个稠密向量的余弦相似度。
// 长度不同时，较短的向量按缺失维度为 0 处理。
func Cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		var x, y float64
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineMap 计算两个稀疏向量的余弦相似度，只对 key 的并集求和，缺失 key 记为 0。
// 按 key 排序后累加，同样的输入得到逐位相同的结果。
func CosineMap[K cmp.Ordered](a, b map[K]float64) float64 {
	var dot, normA, normB float64
	for _, k := range sortedKeys(a) {
		x := a[k]
		normA += x * x
		if y, ok := b[k]; ok {
			dot += x * y
		}
	}
	for _, k := range sortedKeys(b) {
		normB += b[k] * b[k]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Pair 是一对配对观测值。
type Pair struct {
	X float64
	Y float64
}

// Pearson 计算皮尔逊相关系数：
//
//	(Σxy - ΣxΣy/n) / √((Σx² - (Σx)²/n)(Σy² - (Σy)²/n))
//
// 配对数少于 MinCommonInteractions 或分母为 0 时返回 0。
func Pearson(pairs []Pair) float64 {
	n := float64(len(pairs))
	if len(pairs) < MinCommonInteractions {
		return 0
	}
	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for _, p := range pairs {
		sumX += p.X
		sumY += p.Y
		sumXY += p.X * p.Y
		sumX2 += p.X * p.X
		sumY2 += p.Y * p.Y
	}
	num := sumXY - sumX*sumY/n
	den := math.Sqrt((sumX2 - sumX*sumX/n) * (sumY2 - sumY*sumY/n))
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return num / den
}

// CommonPairs 取两个评分向量的公共 key 生成配对（X 来自 a，Y 来自 b），按 key 升序。
func CommonPairs[K cmp.Ordered](a, b map[K]float64) []Pair {
	small, large, swapped := a, b, false
	if len(b) < len(a) {
		small, large, swapped = b, a, true
	}
	pairs := make([]Pair, 0, len(small))
	for _, k := range sortedKeys(small) {
		y, ok := large[k]
		if !ok {
			continue
		}
		x := small[k]
		if swapped {
			x, y = y, x
		}
		pairs = append(pairs, Pair{X: x, Y: y})
	}
	return pairs
}

func sortedKeys[K cmp.Ordered](m map[K]float64) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// PearsonMap 对两个评分向量的公共部分计算皮尔逊相关系数。
func PearsonMap[K cmp.Ordered](a, b map[K]float64) float64 {
	return Pearson(CommonPairs(a, b))
}

// OverlapRatio 计算两个字符串集合的重叠比例：|A∩B| / max(|A|,|B|)（按去重后的集合计）。
// 任一为空时返回 0；完全相同时返回 1。
func OverlapRatio(a, b []string) (ratio float64, common int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0
	}
	setA := toSet(a)
	setB := toSet(b)
	for s := range setB {
		if _, ok := setA[s]; ok {
			common++
		}
	}
	denom := len(setA)
	if len(setB) > denom {
		denom = len(setB)
	}
	return float64(common) / float64(denom), common
}

func toSet(s []string) map[string]struct{} {
	set := make(map[string]struct{}, len(s))
	for _, v := range s {
		set[v] = struct{}{}
	}
	return set
}
