package filter

import (
	"context"

	"github.com/rushteam/artrec/core"
)

// AttributeFilter 按请求中的 category / styles / priceRange 过滤。
// 请求没有属性条件时不查询存储；作品不存在视为不满足条件。
type AttributeFilter struct {
	Store core.FeatureStore
}

func NewAttributeFilter(store core.FeatureStore) *AttributeFilter {
	return &AttributeFilter{Store: store}
}

func (f *AttributeFilter) Name() string { return "filter.attribute" }

func (f *AttributeFilter) ShouldFilter(ctx context.Context, rctx *core.RecommendContext, rec *core.Recommendation) (bool, error) {
	if rctx == nil || !rctx.HasFilters() {
		return false, nil
	}
	art, err := f.Store.GetArtworkByID(ctx, rec.ArtworkID)
	if err != nil {
		return false, err
	}
	if art == nil {
		return true, nil
	}
	return !Matches(art, rctx), nil
}

// Matches 判断作品是否满足请求的属性条件。
// 风格条件为"命中任意一个"。
func Matches(art *core.Artwork, rctx *core.RecommendContext) bool {
	if rctx.Category != "" && art.Category != rctx.Category {
		return false
	}
	if len(rctx.Styles) > 0 && !anyIn(rctx.Styles, art.Styles) {
		return false
	}
	if rctx.PriceRange != nil && !rctx.PriceRange.Overlaps(art.PriceMin, art.PriceMax) {
		return false
	}
	return true
}

func anyIn(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}
