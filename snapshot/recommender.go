package snapshot

import (
	"sort"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/hybrid"
	"github.com/rushteam/artrec/pkg/similarity"
	"github.com/rushteam/artrec/pkg/utils"
	"github.com/rushteam/artrec/recall"
)

// 快照推荐算法名。
const (
	AlgorithmUserBased      = "snapshot_user_based"
	AlgorithmItemBased      = "snapshot_item_based"
	AlgorithmContentBased   = "snapshot_content_based"
	AlgorithmPopularContent = "snapshot_popular_content"
)

// 快照推荐参数，与实时引擎保持一致。
const (
	neighborMinSimilarity = recall.MinSimilarityThreshold
	maxNeighbors          = recall.MaxNeighbors
	neighborMinRating     = recall.NeighborMinRating
	seedMinRating         = recall.SeedMinRating
	similarPerSeed        = recall.SimilarPerSeed
	repeatDamping         = recall.RepeatDamping
)

// 偏好映射打分权重。
const (
	prefCategoryWeight = 0.35
	prefStyleWeight    = 0.30
	prefTagWeight      = 0.20
	prefArtistWeight   = 0.15
)

// 无用户数据时的热门内容打分权重。
const (
	popularScoreWeight    = 0.6
	popularCategoryWeight = 0.2
	popularStyleWeight    = 0.2
)

// HybridResult 是快照混合推荐的结果。
type HybridResult struct {
	Recommendations []*core.Recommendation `json:"recommendations"`
	Weights         hybrid.Weights         `json:"weights"`
	HasUserData     bool                   `json:"hasUserData"`
	LikedCount      int                    `json:"likedCount"`
}

// Recommender 基于 Holder 的当前快照推荐。每次调用只读取一次当前快照，
// 调用过程中发生 Reload 不影响本次结果。快照未加载时返回空列表。
type Recommender struct {
	Holder *Holder
}

func NewRecommender(h *Holder) *Recommender {
	return &Recommender{Holder: h}
}

func (r *Recommender) UserBased(userID string, limit int) []*core.Recommendation {
	return UserBased(r.Holder.Current(), userID, limit)
}

func (r *Recommender) ItemBased(userID string, limit int) []*core.Recommendation {
	return ItemBased(r.Holder.Current(), userID, limit)
}

func (r *Recommender) ContentBased(userID string, limit int) []*core.Recommendation {
	return ContentBased(r.Holder.Current(), userID, limit)
}

func (r *Recommender) Hybrid(userID string, limit int) HybridResult {
	return Hybrid(r.Holder.Current(), userID, limit)
}

func (r *Recommender) Bulk(userID string, targetSize int) HybridResult {
	return Bulk(r.Holder.Current(), userID, targetSize)
}

// UserBased 用评分矩阵的余弦相似度找近邻，近邻评分 > 0.6 的未交互作品累加 rating × sim。
func UserBased(s *Snapshot, userID string, limit int) []*core.Recommendation {
	if s == nil {
		return []*core.Recommendation{}
	}
	target := s.UserItemMatrix[userID]
	if len(target) == 0 {
		return []*core.Recommendation{}
	}

	type neighbor struct {
		id  string
		sim float64
	}
	neighbors := make([]neighbor, 0)
	for _, other := range sortedUsers(s.UserItemMatrix) {
		if other == userID {
			continue
		}
		if sim := similarity.CosineMap(target, s.UserItemMatrix[other]); sim >= neighborMinSimilarity {
			neighbors = append(neighbors, neighbor{id: other, sim: sim})
		}
	}
	sort.SliceStable(neighbors, func(i, j int) bool { return neighbors[i].sim > neighbors[j].sim })
	if len(neighbors) > maxNeighbors {
		neighbors = neighbors[:maxNeighbors]
	}

	exclude := s.Interacted(userID)
	byID := make(map[string]*core.Recommendation)
	out := make([]*core.Recommendation, 0)
	for _, n := range neighbors {
		ratings := s.UserItemMatrix[n.id]
		for _, id := range sortedKeys(ratings) {
			rating := ratings[id]
			if rating <= neighborMinRating {
				continue
			}
			if _, skip := exclude[id]; skip {
				continue
			}
			if _, known := s.Artwork(id); !known {
				continue
			}
			rec, ok := byID[id]
			if !ok {
				rec = core.NewRecommendation(id, 0, 0, AlgorithmUserBased)
				rec.AddReason("collectors with similar taste liked this")
				byID[id] = rec
				out = append(out, rec)
			}
			rec.Score += rating * n.sim
			if n.sim > rec.Confidence {
				rec.Confidence = n.sim
			}
		}
	}
	return finish(out, limit, "user_based")
}

// ItemBased 用预计算的作品相似度矩阵：每个种子（喜欢的作品或评分 ≥ 0.7 的作品）取 Top 10，
// 首次命中 sim × seedRating，重复命中按 0.1 衰减累加并截断到 1.0。
func ItemBased(s *Snapshot, userID string, limit int) []*core.Recommendation {
	if s == nil {
		return []*core.Recommendation{}
	}
	seeds := seedsOf(s, userID)
	if len(seeds) == 0 {
		return []*core.Recommendation{}
	}

	exclude := s.Interacted(userID)
	byID := make(map[string]*core.Recommendation)
	out := make([]*core.Recommendation, 0)
	for _, seed := range seeds {
		for _, c := range topSimilar(s.ItemSimilarityMatrix[seed.ID], similarPerSeed) {
			if c.ID == seed.ID {
				continue
			}
			if _, skip := exclude[c.ID]; skip {
				continue
			}
			if _, known := s.Artwork(c.ID); !known {
				continue
			}
			candidate := c.Rating * seed.Rating
			rec, ok := byID[c.ID]
			if !ok {
				rec = core.NewRecommendation(c.ID, candidate, c.Rating, AlgorithmItemBased)
				rec.AddReason("similar to artworks you liked")
				byID[c.ID] = rec
				out = append(out, rec)
				continue
			}
			rec.Score = core.ClampScore(rec.Score + candidate*repeatDamping)
			if c.Rating > rec.Confidence {
				rec.Confidence = c.Rating
			}
		}
	}
	return finish(out, limit, "item_based")
}

// seedsOf 合并喜欢列表（评分视为 1.0）与评分矩阵中 ≥ 0.7 的作品，按评分降序、ID 升序。
func seedsOf(s *Snapshot, userID string) []core.RatedArtwork {
	ratings := make(map[string]float64)
	for id, r := range s.UserItemMatrix[userID] {
		if r >= seedMinRating {
			ratings[id] = r
		}
	}
	if p, ok := s.Profile(userID); ok {
		for _, id := range p.LikedArtworks {
			ratings[id] = 1
		}
	}
	out := make([]core.RatedArtwork, 0, len(ratings))
	for id, r := range ratings {
		out = append(out, core.RatedArtwork{ID: id, Rating: r})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func topSimilar(row map[string]float64, k int) []core.RatedArtwork {
	out := make([]core.RatedArtwork, 0, len(row))
	for id, sim := range row {
		if sim > 0 {
			out = append(out, core.RatedArtwork{ID: id, Rating: sim})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// ContentBased 直接查偏好映射打分（不做画像聚合）：
//
//	0.35 × category + 0.30 × mean(styles) + 0.20 × mean(tags) + 0.15 × artist
//
// 没有用户画像时按全局热门内容打分。
func ContentBased(s *Snapshot, userID string, limit int) []*core.Recommendation {
	if s == nil {
		return []*core.Recommendation{}
	}
	p, ok := s.Profile(userID)
	if !ok {
		return PopularContent(s, userID, limit)
	}
	prefs := p.Preferences
	exclude := s.Interacted(userID)

	out := make([]*core.Recommendation, 0)
	for _, a := range s.Artworks {
		if _, skip := exclude[a.ID]; skip {
			continue
		}
		reasons := make([]string, 0, 4)
		category := prefs.Categories[a.Category]
		if category > 0 {
			reasons = append(reasons, "matches your favorite category: "+a.Category)
		}
		style := meanLookup(prefs.Styles, a.Style)
		if style > 0 {
			reasons = append(reasons, "matches your preferred styles")
		}
		tags := meanLookup(prefs.Tags, a.Tags)
		if tags > 0 {
			reasons = append(reasons, "matching tags")
		}
		artist := 0.0
		if a.ArtistID != "" {
			artist = prefs.Artists[a.ArtistID]
		}
		if artist > 0 {
			reasons = append(reasons, "from an artist you like")
		}

		score := prefCategoryWeight*category + prefStyleWeight*style + prefTagWeight*tags + prefArtistWeight*artist
		if score < recall.ContentMinScore {
			continue
		}
		rec := core.NewRecommendation(a.ID, score, 0.4+0.6*float64(len(reasons))/4, AlgorithmContentBased)
		rec.AddReason(reasons...)
		out = append(out, rec)
	}
	return finish(out, limit, "content_based")
}

// PopularContent 是没有用户数据时的内容推荐：作品热度加上全局热门类别/风格的命中。
func PopularContent(s *Snapshot, userID string, limit int) []*core.Recommendation {
	if s == nil {
		return []*core.Recommendation{}
	}
	popularCategories := set(s.GlobalStats.PopularCategories)
	popularStyles := s.GlobalStats.PopularStyles
	exclude := s.Interacted(userID)

	out := make([]*core.Recommendation, 0, len(s.Artworks))
	for _, a := range s.Artworks {
		if _, skip := exclude[a.ID]; skip {
			continue
		}
		score := popularScoreWeight * a.Features.PopularityScore
		if _, ok := popularCategories[a.Category]; ok {
			score += popularCategoryWeight
		}
		styleRatio, _ := similarity.OverlapRatio(popularStyles, a.Style)
		score += popularStyleWeight * styleRatio

		rec := core.NewRecommendation(a.ID, score, recall.FallbackConfidence, AlgorithmPopularContent)
		rec.AddReason("popular with other collectors")
		out = append(out, rec)
	}
	return finish(out, limit, "popular_content")
}

// Hybrid 按喜欢数量选择权重混合协同与内容结果：
//
//	≥5 个喜欢 → 0.6/0.4；有喜欢 → 0.4/0.6；有数据但没喜欢 → 0.3/0.7；没有用户数据 → 只用内容
func Hybrid(s *Snapshot, userID string, limit int) HybridResult {
	return combine(s, userID, limit, limit)
}

// Bulk 为批量生成准备 targetSize 条结果：每个子引擎取 2×targetSize 再合并截断。
func Bulk(s *Snapshot, userID string, targetSize int) HybridResult {
	return combine(s, userID, targetSize, 2*targetSize)
}

// HybridWeights 返回快照混合的权重。
func HybridWeights(hasUserData bool, liked int) hybrid.Weights {
	switch {
	case !hasUserData:
		return hybrid.ContentOnly
	case liked >= 5:
		return hybrid.Weights{Collaborative: 0.6, Content: 0.4}
	case liked > 0:
		return hybrid.Weights{Collaborative: 0.4, Content: 0.6}
	default:
		return hybrid.Weights{Collaborative: 0.3, Content: 0.7}
	}
}

func combine(s *Snapshot, userID string, limit, perEngine int) HybridResult {
	if s == nil {
		return HybridResult{Recommendations: []*core.Recommendation{}, Weights: hybrid.ContentOnly}
	}
	has := s.HasUserData(userID)
	liked := 0
	if p, ok := s.Profile(userID); ok {
		liked = len(p.LikedArtworks)
	}
	w := HybridWeights(has, liked)

	var recs []*core.Recommendation
	if !has {
		recs = core.Truncate(ContentBased(s, userID, perEngine), limit)
		for _, r := range recs {
			r.Score = core.ClampScore(r.Score)
		}
	} else {
		collab := recall.MergeMax(recall.AlgorithmCollaborative, UserBased(s, userID, perEngine), ItemBased(s, userID, perEngine))
		recs = core.Truncate(hybrid.Merge(collab, ContentBased(s, userID, perEngine), w), limit)
	}
	return HybridResult{Recommendations: recs, Weights: w, HasUserData: has, LikedCount: liked}
}

func finish(recs []*core.Recommendation, limit int, source string) []*core.Recommendation {
	for _, r := range recs {
		r.PutLabel(utils.LabelRecallSource, utils.NewLabel(source, "snapshot"))
	}
	core.SortRecommendations(recs)
	return core.Truncate(recs, limit)
}

func meanLookup(prefs map[string]float64, keys []string) float64 {
	if len(keys) == 0 || len(prefs) == 0 {
		return 0
	}
	sum := 0.0
	for _, k := range keys {
		sum += prefs[k]
	}
	return sum / float64(len(keys))
}

func set(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
