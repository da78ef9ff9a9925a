package recall

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/similarity"
	"github.com/rushteam/artrec/pkg/utils"
)

// 协同过滤参数。
const (
	MinSimilarityThreshold = 0.1 // 邻居最低相似度
	MaxNeighbors           = 50  // 最多保留的相似用户
	NeighborMinRating      = 0.6 // 邻居评分 > 该值的作品才参与推荐
	SeedMinRating          = 0.7 // 物品协同的种子作品最低评分
	SimilarPerSeed         = 10  // 每个种子保留的相似作品数
	RepeatDamping          = 0.1 // 被多个种子命中时的衰减系数

	defaultConcurrency = 16
)

// Neighbor 是一个相似用户。
type Neighbor struct {
	UserID     string
	Similarity float64
	Ratings    map[string]float64
}

// UserBasedCF 是基于用户的协同过滤召回源（User-based Collaborative Filtering, User-CF）。
//
// 核心思想："兴趣相似的用户，喜欢相似的作品"
//
// 算法流程：
//  1. 目标用户 → 评分向量（行为映射的评分）
//  2. 扫描全部活跃用户，在共同评分的作品上计算 Pearson 相关系数
//  3. 保留相似度 >= MinSimilarity 的用户，降序取 TopK 作为邻居
//  4. 推荐邻居评分 > MinNeighborRating 且目标用户未交互过的作品：
//     score += rating × similarity，confidence = 命中邻居中的最大相似度
//
// 工程特征：
//   - 计算复杂度：高（逐个活跃用户拉取交互）
//   - 可解释性：强
//   - 冷启动：差（目标用户无交互时直接返回空）
type UserBasedCF struct {
	Store core.FeatureStore

	MinSimilarity     float64
	TopKNeighbors     int
	MinNeighborRating float64

	// Concurrency 扫描邻居时的最大并发请求数
	Concurrency int
}

func NewUserBasedCF(store core.FeatureStore) *UserBasedCF {
	return &UserBasedCF{
		Store:             store,
		MinSimilarity:     MinSimilarityThreshold,
		TopKNeighbors:     MaxNeighbors,
		MinNeighborRating: NeighborMinRating,
		Concurrency:       defaultConcurrency,
	}
}

func (r *UserBasedCF) Name() string {
	return "recall.user_cf"
}

func (r *UserBasedCF) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Recommendation, error) {
	recs, _, err := r.recommend(ctx, rctx.UserID, limitOf(rctx))
	return recs, err
}

// Neighbors 返回目标用户的相似用户（相似度降序，最多 TopKNeighbors 个）。
// 目标用户没有交互时返回空列表。
func (r *UserBasedCF) Neighbors(ctx context.Context, userID string) ([]Neighbor, error) {
	interactions, err := r.Store.GetUserInteractions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(interactions) == 0 {
		return []Neighbor{}, nil
	}
	return r.neighbors(ctx, userID, core.RatingsByArtwork(interactions))
}

func (r *UserBasedCF) neighbors(ctx context.Context, userID string, target map[string]float64) ([]Neighbor, error) {
	users, err := r.Store.GetAllActiveUsers(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]*Neighbor, len(users))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency(r.Concurrency))
	for i, other := range users {
		if other == userID {
			continue
		}
		eg.Go(func() error {
			list, err := r.Store.GetUserInteractions(egCtx, other)
			if err != nil {
				return err
			}
			ratings := core.RatingsByArtwork(list)
			sim := similarity.PearsonMap(target, ratings)
			if sim >= r.MinSimilarity {
				candidates[i] = &Neighbor{UserID: other, Similarity: sim, Ratings: ratings}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make([]Neighbor, 0)
	for _, c := range candidates {
		if c != nil {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].UserID < out[j].UserID
	})
	if r.TopKNeighbors > 0 && len(out) > r.TopKNeighbors {
		out = out[:r.TopKNeighbors]
	}
	return out, nil
}

// recommend 返回推荐、目标用户交互数和邻居数。
func (r *UserBasedCF) recommend(ctx context.Context, userID string, limit int) ([]*core.Recommendation, userStats, error) {
	interactions, err := r.Store.GetUserInteractions(ctx, userID)
	if err != nil {
		return nil, userStats{}, err
	}
	if len(interactions) == 0 {
		return []*core.Recommendation{}, userStats{}, nil
	}
	target := core.RatingsByArtwork(interactions)

	neighbors, err := r.neighbors(ctx, userID, target)
	if err != nil {
		return nil, userStats{}, err
	}
	stats := userStats{interactions: len(interactions), neighbors: len(neighbors)}

	scores := make(map[string]*core.Recommendation)
	out := make([]*core.Recommendation, 0)
	for _, nb := range neighbors {
		for _, artworkID := range sortedKeys(nb.Ratings) {
			rating := nb.Ratings[artworkID]
			if rating <= r.MinNeighborRating {
				continue
			}
			if _, seen := target[artworkID]; seen {
				continue
			}
			rec, ok := scores[artworkID]
			if !ok {
				rec = core.NewRecommendation(artworkID, 0, 0, AlgorithmUserCF)
				rec.AddReason("liked by users with similar taste")
				rec.PutLabel(utils.LabelRecallSource, utils.NewLabel("user_cf", "recall"))
				scores[artworkID] = rec
				out = append(out, rec)
			}
			rec.Score += rating * nb.Similarity
			if nb.Similarity > rec.Confidence {
				rec.Confidence = nb.Similarity
			}
		}
	}
	return finalize(out, limit), stats, nil
}

type userStats struct {
	interactions int
	neighbors    int
}

// ItemBasedCF 是基于物品的协同过滤召回源（Item-based Collaborative Filtering, Item-CF）。
//
// 核心思想："喜欢作品 A 的人也喜欢作品 B"
//
// 算法流程：
//  1. 取目标用户评分 >= SeedMinRating 的作品作为种子
//  2. 作品-作品相似度：按用户评分向量的余弦相似度，至少 MinCommonInteractions 个共同评分用户
//  3. 每个种子取 TopK 相似作品，候选分 = similarity × seedRating
//  4. 同一作品被多个种子命中：score += candidateScore × RepeatDamping，截断到 1.0
//  5. 排除用户已交互的作品
//
// 作品的评分用户在单次请求内并发预取，不跨请求缓存。
type ItemBasedCF struct {
	Store core.FeatureStore

	MinSeedRating  float64
	TopKPerSeed    int
	Damping        float64
	MinCommonUsers int

	Concurrency int
}

func NewItemBasedCF(store core.FeatureStore) *ItemBasedCF {
	return &ItemBasedCF{
		Store:          store,
		MinSeedRating:  SeedMinRating,
		TopKPerSeed:    SimilarPerSeed,
		Damping:        RepeatDamping,
		MinCommonUsers: similarity.MinCommonInteractions,
		Concurrency:    defaultConcurrency,
	}
}

func (r *ItemBasedCF) Name() string {
	return "recall.item_cf"
}

func (r *ItemBasedCF) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Recommendation, error) {
	userID := rctx.UserID
	seeds, err := r.Store.GetUserHighRatedArtworks(ctx, userID, r.MinSeedRating)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return []*core.Recommendation{}, nil
	}

	interacted, err := r.Store.GetUserInteractedArtworkIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	exclude := make(map[string]struct{}, len(interacted)+len(seeds))
	for _, id := range interacted {
		exclude[id] = struct{}{}
	}
	for _, s := range seeds {
		exclude[s.ID] = struct{}{}
	}

	artworks, err := r.Store.GetAllArtworks(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(artworks)+len(seeds))
	known := make(map[string]struct{}, len(artworks))
	for _, a := range artworks {
		ids = append(ids, a.ID)
		known[a.ID] = struct{}{}
	}
	for _, s := range seeds {
		if _, ok := known[s.ID]; !ok {
			ids = append(ids, s.ID)
		}
	}

	raters, err := r.prefetchRaters(ctx, ids)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]*core.Recommendation)
	out := make([]*core.Recommendation, 0)
	for _, seed := range seeds {
		for _, c := range r.similarTo(seed.ID, ids, raters, r.TopKPerSeed) {
			if _, skip := exclude[c.id]; skip {
				continue
			}
			candidate := c.sim * seed.Rating
			rec, ok := scores[c.id]
			if !ok {
				rec = core.NewRecommendation(c.id, candidate, c.sim, AlgorithmItemCF)
				rec.AddReason("similar to artworks you liked")
				rec.PutLabel(utils.LabelRecallSource, utils.NewLabel("item_cf", "recall"))
				scores[c.id] = rec
				out = append(out, rec)
				continue
			}
			rec.Score = core.ClampScore(rec.Score + candidate*r.Damping)
			if c.sim > rec.Confidence {
				rec.Confidence = c.sim
			}
		}
	}
	return finalize(out, limitOf(rctx)), nil
}

type scoredID struct {
	id  string
	sim float64
}

// similarTo 返回与 seed 最相似的 k 个作品（相似度 > 0），k <= 0 不截断。
func (r *ItemBasedCF) similarTo(seed string, ids []string, raters map[string]map[string]float64, k int) []scoredID {
	seedRaters := raters[seed]
	if len(seedRaters) < r.MinCommonUsers {
		return nil
	}
	out := make([]scoredID, 0)
	for _, id := range ids {
		if id == seed {
			continue
		}
		pairs := similarity.CommonPairs(seedRaters, raters[id])
		if len(pairs) < r.MinCommonUsers {
			continue
		}
		xs := make([]float64, len(pairs))
		ys := make([]float64, len(pairs))
		for i, p := range pairs {
			xs[i], ys[i] = p.X, p.Y
		}
		if sim := similarity.Cosine(xs, ys); sim > 0 {
			out = append(out, scoredID{id: id, sim: sim})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].sim != out[j].sim {
			return out[i].sim > out[j].sim
		}
		return out[i].id < out[j].id
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// Similar 返回与 artworkID 共同评分最相似的作品（余弦相似度 > 0，至少 MinCommonUsers 个共同评分用户），
// 分数和置信度都是相似度本身。
func (r *ItemBasedCF) Similar(ctx context.Context, artworkID string, limit int) ([]*core.Recommendation, error) {
	artworks, err := r.Store.GetAllArtworks(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(artworks)+1)
	ids = append(ids, artworkID)
	for _, a := range artworks {
		if a.ID != artworkID {
			ids = append(ids, a.ID)
		}
	}
	raters, err := r.prefetchRaters(ctx, ids)
	if err != nil {
		return nil, err
	}

	similar := r.similarTo(artworkID, ids, raters, limit)
	out := make([]*core.Recommendation, 0, len(similar))
	for _, c := range similar {
		rec := core.NewRecommendation(c.id, c.sim, c.sim, AlgorithmItemCF)
		rec.AddReason("collectors who liked this also liked")
		rec.PutLabel(utils.LabelRecallSource, utils.NewLabel("item_cf", "recall"))
		out = append(out, rec)
	}
	return finalize(out, limit), nil
}

// prefetchRaters 并发拉取每个作品的 userID → rating。
func (r *ItemBasedCF) prefetchRaters(ctx context.Context, ids []string) (map[string]map[string]float64, error) {
	results := make([]map[string]float64, len(ids))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency(r.Concurrency))
	for i, id := range ids {
		eg.Go(func() error {
			list, err := r.Store.GetArtworkInteractions(egCtx, id)
			if err != nil {
				return err
			}
			results[i] = core.RatingsByUser(list)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]map[string]float64, len(ids))
	for i, id := range ids {
		out[id] = results[i]
	}
	return out, nil
}

// CollaborativeConfidence 是协同过滤结果整体可信度的经验公式：
//
//	0.7 × min(interactionCount/20, 1) + 0.3 × min(similarUserCount/10, 1)
func CollaborativeConfidence(interactionCount, similarUserCount int) float64 {
	return 0.7*minOne(float64(interactionCount)/20) + 0.3*minOne(float64(similarUserCount)/10)
}

// CollaborativeResult 是用户协同 + 物品协同合并后的结果。
type CollaborativeResult struct {
	Recommendations []*core.Recommendation
	Interactions    int
	Neighbors       int
	Confidence      float64
}

// Collaborative 并发执行用户协同与物品协同，同一作品保留最大分数和置信度。
type Collaborative struct {
	User *UserBasedCF
	Item *ItemBasedCF
}

func NewCollaborative(store core.FeatureStore) *Collaborative {
	return &Collaborative{User: NewUserBasedCF(store), Item: NewItemBasedCF(store)}
}

func (c *Collaborative) Name() string { return "recall.collaborative" }

func (c *Collaborative) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Recommendation, error) {
	res, err := c.Run(ctx, rctx)
	if err != nil {
		return nil, err
	}
	return res.Recommendations, nil
}

func (c *Collaborative) Run(ctx context.Context, rctx *core.RecommendContext) (CollaborativeResult, error) {
	var (
		userRecs, itemRecs []*core.Recommendation
		stats              userStats
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		userRecs, stats, err = c.User.recommend(egCtx, rctx.UserID, rctx.Limit)
		return err
	})
	eg.Go(func() error {
		var err error
		itemRecs, err = c.Item.Recall(egCtx, rctx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return CollaborativeResult{}, err
	}

	merged := core.Truncate(MergeMax(AlgorithmCollaborative, userRecs, itemRecs), rctx.Limit)
	return CollaborativeResult{
		Recommendations: merged,
		Interactions:    stats.interactions,
		Neighbors:       stats.neighbors,
		Confidence:      CollaborativeConfidence(stats.interactions, stats.neighbors),
	}, nil
}

func minOne(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

func concurrency(n int) int {
	if n <= 0 {
		return defaultConcurrency
	}
	return n
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
