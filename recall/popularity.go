package recall

import (
	"context"
	"sort"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/utils"
)

// FallbackConfidence 是热门兜底结果的固定置信度。
const FallbackConfidence = 0.3

// Popularity 是热门召回源，作为兜底使用。
//   - 如果配置了 Ranking（KeyValueStore 有序集合），按 ZRange 的顺序输出
//   - 否则按作品热度降序、创建时间降序，再按存储列表顺序（稳定排序）
//
// 分数为作品热度（截断到 [0,1]），置信度固定为 FallbackConfidence。
type Popularity struct {
	Store core.FeatureStore

	Ranking    core.KeyValueStore
	RankingKey string // 例如 "hot:artworks"
}

func NewPopularity(store core.FeatureStore) *Popularity {
	return &Popularity{Store: store}
}

func (r *Popularity) Name() string { return "recall.popularity" }

func (r *Popularity) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Recommendation, error) {
	artworks, err := r.Store.GetAllArtworks(ctx)
	if err != nil {
		return nil, err
	}
	limit := limitOf(rctx)

	if r.Ranking != nil && r.RankingKey != "" {
		stop := int64(-1)
		if limit > 0 {
			stop = int64(limit) - 1
		}
		members, err := r.Ranking.ZRange(ctx, r.RankingKey, 0, stop)
		if err == nil && len(members) > 0 {
			return rankedPopular(artworks, members, limit), nil
		}
	}
	return PopularFromArtworks(artworks, limit), nil
}

// RefreshRanking 把全部作品按热度写入 RankingKey 有序集合，返回写入的成员数。
// 未配置 Ranking 时什么也不做。
func (r *Popularity) RefreshRanking(ctx context.Context) (int, error) {
	if r.Ranking == nil || r.RankingKey == "" {
		return 0, nil
	}
	artworks, err := r.Store.GetAllArtworks(ctx)
	if err != nil {
		return 0, err
	}
	for i, a := range artworks {
		if err := r.Ranking.ZAdd(ctx, r.RankingKey, a.Popularity, a.ID); err != nil {
			return i, core.NewStoreFailure("refresh popularity ranking", err)
		}
	}
	return len(artworks), nil
}

// PopularFromArtworks 按热度降序、创建时间降序、列表顺序输出兜底推荐。
func PopularFromArtworks(artworks []core.Artwork, limit int) []*core.Recommendation {
	sorted := append([]core.Artwork(nil), artworks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Popularity != sorted[j].Popularity {
			return sorted[i].Popularity > sorted[j].Popularity
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	out := make([]*core.Recommendation, 0, len(sorted))
	for _, a := range sorted {
		out = append(out, popularRec(a))
	}
	return core.Truncate(out, limit)
}

func rankedPopular(artworks []core.Artwork, members []string, limit int) []*core.Recommendation {
	byID := make(map[string]core.Artwork, len(artworks))
	for _, a := range artworks {
		byID[a.ID] = a
	}
	out := make([]*core.Recommendation, 0, len(members))
	for _, id := range members {
		a, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, popularRec(a))
	}
	return core.Truncate(out, limit)
}

func popularRec(a core.Artwork) *core.Recommendation {
	rec := core.NewRecommendation(a.ID, core.ClampScore(a.Popularity), FallbackConfidence, AlgorithmPopularity)
	rec.AddReason("popular with other collectors")
	rec.PutLabel(utils.LabelRecallSource, utils.NewLabel("popularity", "recall"))
	return rec
}
