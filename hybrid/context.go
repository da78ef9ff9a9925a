package hybrid

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/artrec/core"
)

// ExperienceLevel 是用户经验分级。
type ExperienceLevel string

const (
	ExperienceNew          ExperienceLevel = "new"          // n <= 3
	ExperienceIntermediate ExperienceLevel = "intermediate" // n <= 10
	ExperienceExperienced  ExperienceLevel = "experienced"  // n > 10
)

// DataAvailability 是用户数据量分级。
type DataAvailability string

const (
	AvailabilityLow    DataAvailability = "low"    // n < 5
	AvailabilityMedium DataAvailability = "medium" // n < 20
	AvailabilityHigh   DataAvailability = "high"   // n >= 20
)

// 偏好稳定性参数。
const (
	DefaultStability       = 0.5
	stabilityMinSamples    = 6
	stabilityRatingTrigger = 0.5
)

// UserContext 是单次请求的用户上下文分类结果。
type UserContext struct {
	InteractionCount int              `json:"interactionCount"`
	Experience       ExperienceLevel  `json:"experience"`
	Availability     DataAvailability `json:"availability"`
	Stability        float64          `json:"stability"`
}

func ExperienceFor(n int) ExperienceLevel {
	switch {
	case n <= 3:
		return ExperienceNew
	case n <= 10:
		return ExperienceIntermediate
	default:
		return ExperienceExperienced
	}
}

func AvailabilityFor(n int) DataAvailability {
	switch {
	case n < 5:
		return AvailabilityLow
	case n < 20:
		return AvailabilityMedium
	default:
		return AvailabilityHigh
	}
}

// Classify 拉取用户交互并分类。稳定性需要作品类别，只在交互数足够时才查询作品。
func Classify(ctx context.Context, store core.FeatureStore, userID string) (UserContext, error) {
	interactions, err := store.GetUserInteractions(ctx, userID)
	if err != nil {
		return UserContext{}, err
	}
	n := len(interactions)
	uc := UserContext{
		InteractionCount: n,
		Experience:       ExperienceFor(n),
		Availability:     AvailabilityFor(n),
		Stability:        DefaultStability,
	}
	if n < stabilityMinSamples {
		return uc, nil
	}

	categories, err := categoriesOf(ctx, store, interactions)
	if err != nil {
		return UserContext{}, err
	}
	uc.Stability = Stability(interactions, categories)
	return uc, nil
}

func categoriesOf(ctx context.Context, store core.FeatureStore, interactions []core.Interaction) (map[string]string, error) {
	ids := make([]string, 0, len(interactions))
	seen := make(map[string]struct{}, len(interactions))
	for _, it := range interactions {
		if _, ok := seen[it.ArtworkID]; !ok {
			seen[it.ArtworkID] = struct{}{}
			ids = append(ids, it.ArtworkID)
		}
	}

	cats := make([]string, len(ids))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(16)
	for i, id := range ids {
		eg.Go(func() error {
			art, err := store.GetArtworkByID(egCtx, id)
			if err != nil {
				return err
			}
			if art != nil {
				cats[i] = art.Category
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(ids))
	for i, id := range ids {
		if cats[i] != "" {
			out[id] = cats[i]
		}
	}
	return out, nil
}

// Stability 按时间把交互分成前后两半，分别统计评分 > 0.5 的类别权重，
// 对类别并集取 min(a,b)/max(a,b) 的平均值。
// 少于 6 条交互或两半都没有有效类别时返回 DefaultStability。
func Stability(interactions []core.Interaction, categoryOf map[string]string) float64 {
	if len(interactions) < stabilityMinSamples {
		return DefaultStability
	}
	sorted := append([]core.Interaction(nil), interactions...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	half := len(sorted) / 2
	first := categoryWeights(sorted[:half], categoryOf)
	second := categoryWeights(sorted[half:], categoryOf)

	union := make(map[string]struct{}, len(first)+len(second))
	for c := range first {
		union[c] = struct{}{}
	}
	for c := range second {
		union[c] = struct{}{}
	}
	if len(union) == 0 {
		return DefaultStability
	}

	keys := make([]string, 0, len(union))
	for c := range union {
		keys = append(keys, c)
	}
	sort.Strings(keys)

	total := 0.0
	for _, c := range keys {
		a, b := first[c], second[c]
		lo, hi := a, b
		if lo > hi {
			lo, hi = hi, lo
		}
		if hi > 0 {
			total += lo / hi
		}
	}
	return total / float64(len(keys))
}

func categoryWeights(interactions []core.Interaction, categoryOf map[string]string) map[string]float64 {
	out := make(map[string]float64)
	for _, it := range interactions {
		if it.Rating <= stabilityRatingTrigger {
			continue
		}
		if c, ok := categoryOf[it.ArtworkID]; ok && c != "" {
			out[c] += it.Rating
		}
	}
	return out
}
