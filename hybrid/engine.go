// Package hybrid 是推荐编排层：按用户上下文选择策略、并发执行协同/内容两路、
// 加权合并、过滤并在失败时兜底。
//
// 编排流程：
//
//	Classify → SelectStrategy → ComputeWeights
//	  → Fanout(Collaborative, Content)  // 2× limit
//	  → Merge → ThresholdFilter → Post Pipeline(属性/屏蔽/规则/TopN)
//	  → 出错或为空 → 热门兜底（存储列表 → 快照作品 → 空）
package hybrid

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/filter"
	"github.com/rushteam/artrec/metrics"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/utils"
	"github.com/rushteam/artrec/recall"
	"github.com/rushteam/artrec/rerank"
)

// 响应级算法名。
const (
	AlgorithmHybrid            = "hybrid"
	AlgorithmCollaborativeOnly = "collaborative_only"
	AlgorithmContentOnly       = "content_only"
	AlgorithmFallbackPopular   = "fallback_popular"
	AlgorithmSimilarArtworks   = "similar_artworks"
)

// 兜底原因（写入 metrics 与日志）。
const (
	FallbackError = "error"
	FallbackEmpty = "empty"
)

// candidateMultiplier 是并发召回时相对 limit 的放大倍数。
const candidateMultiplier = 2

// FallbackSource 提供最后一级兜底作品列表（例如已加载的快照）。
type FallbackSource interface {
	FallbackArtworks() []core.Artwork
}

// Result 是一次编排的结果。
type Result struct {
	Recommendations []*core.Recommendation
	Algorithm       string
	Strategy        core.Strategy
	Weights         Weights
	Context         UserContext
	Confidence      float64
	// FallbackReason 非空表示走了兜底
	FallbackReason string
}

// Engine 是混合推荐编排器。
type Engine struct {
	Store core.FeatureStore

	Collaborative *recall.Collaborative
	Content       *recall.ContentRecall
	Popularity    *recall.Popularity

	// Threshold 只作用于混合路径（合并之后）
	Threshold filter.Filter
	// Post 作用于所有路径（包括兜底），nil 时只做 TopN
	Post *pipeline.Pipeline
	// Fallback 是存储不可用时的兜底数据，可为 nil
	Fallback FallbackSource

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// NewEngine 用默认参数组装编排器，Post 默认只应用请求属性过滤。
func NewEngine(store core.FeatureStore, logger zerolog.Logger, m *metrics.Metrics) *Engine {
	logger = logger.With().Str("component", "hybrid").Logger()
	return &Engine{
		Store:         store,
		Collaborative: recall.NewCollaborative(store),
		Content:       recall.NewContentRecall(store),
		Popularity:    recall.NewPopularity(store),
		Threshold:     filter.NewThresholdFilter(),
		Post: &pipeline.Pipeline{
			Nodes:  []pipeline.Node{filter.NewFilterNode(filter.NewAttributeFilter(store))},
			Logger: logger,
		},
		Logger:  logger,
		Metrics: m,
	}
}

// Recommend 执行一次完整编排。rctx.Limit 必须已由调用方规整（> 0）。
// 存储故障不会返回错误：会记录日志并走兜底；只有上下文取消时返回 ctx 错误。
func (e *Engine) Recommend(ctx context.Context, rctx *core.RecommendContext) (*Result, error) {
	start := time.Now()
	log := e.Logger.With().Str("user_id", rctx.UserID).Logger()

	res, err := e.recommend(ctx, rctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn().Err(err).Msg("recommendation failed, using popularity fallback")
		res = e.fallback(ctx, rctx, FallbackError)
	} else if len(res.Recommendations) == 0 {
		log.Debug().Str("strategy", string(res.Strategy)).Msg("no candidates, using popularity fallback")
		fb := e.fallback(ctx, rctx, FallbackEmpty)
		fb.Strategy, fb.Context = res.Strategy, res.Context
		res = fb
	}

	e.Metrics.ObserveRequest(string(res.Strategy), res.Algorithm, time.Since(start))
	log.Debug().
		Str("strategy", string(res.Strategy)).
		Str("algorithm", res.Algorithm).
		Int("count", len(res.Recommendations)).
		Dur("took", time.Since(start)).
		Msg("recommendation done")
	return res, nil
}

func (e *Engine) recommend(ctx context.Context, rctx *core.RecommendContext) (*Result, error) {
	uc, err := Classify(ctx, e.Store, rctx.UserID)
	if err != nil {
		return nil, err
	}
	rctx.PutLabel("experience", utils.NewLabel(string(uc.Experience), "context"))
	rctx.PutLabel("availability", utils.NewLabel(string(uc.Availability), "context"))

	strategy := SelectStrategy(rctx.Algorithm, uc)
	res := &Result{Strategy: strategy, Context: uc}

	var recs []*core.Recommendation
	switch strategy {
	case core.StrategyCollaborative:
		cr, err := e.Collaborative.Run(ctx, rctx)
		if err != nil {
			return nil, err
		}
		recs = clampAll(cr.Recommendations)
		res.Algorithm, res.Weights, res.Confidence = AlgorithmCollaborativeOnly, CollaborativeOnly, cr.Confidence
	case core.StrategyContent:
		recs, err = e.Content.Recall(ctx, rctx)
		if err != nil {
			return nil, err
		}
		recs = clampAll(recs)
		res.Algorithm, res.Weights, res.Confidence = AlgorithmContentOnly, ContentOnly, meanConfidence(recs)
	default:
		res.Strategy = core.StrategyHybrid
		res.Weights = ComputeWeights(uc)
		recs, res.Confidence, err = e.hybrid(ctx, rctx, res.Weights)
		if err != nil {
			return nil, err
		}
		res.Algorithm = AlgorithmHybrid
	}

	recs, err = e.post(ctx, rctx, recs)
	if err != nil {
		return nil, err
	}
	res.Recommendations = recs
	return res, nil
}

// hybrid 并发执行两路召回（2× limit）并加权合并、阈值过滤。
// 合并结果的整体置信度取两路置信度的较大值。
func (e *Engine) hybrid(ctx context.Context, rctx *core.RecommendContext, w Weights) ([]*core.Recommendation, float64, error) {
	wide := *rctx
	wide.Limit = rctx.Limit * candidateMultiplier

	var collab recall.CollaborativeResult
	fan := &recall.Fanout{Sources: []recall.Source{
		collaborativeSource{inner: e.Collaborative, out: &collab},
		e.Content,
	}}
	lists, err := fan.Run(ctx, &wide)
	if err != nil {
		return nil, 0, err
	}

	merged := Merge(lists[0], lists[1], w)
	if e.Threshold != nil {
		merged, err = filter.NewFilterNode(e.Threshold).Process(ctx, rctx, merged)
		if err != nil {
			return nil, 0, err
		}
	}

	confidence := collab.Confidence
	if c := meanConfidence(lists[1]); c > confidence {
		confidence = c
	}
	return merged, confidence, nil
}

func (e *Engine) post(ctx context.Context, rctx *core.RecommendContext, recs []*core.Recommendation) ([]*core.Recommendation, error) {
	if e.Post != nil {
		out, err := e.Post.Run(ctx, rctx, recs)
		if err != nil {
			return nil, err
		}
		recs = out
	}
	return (&rerank.TopNNode{}).Process(ctx, rctx, recs)
}

// fallback 依次尝试：存储中的作品列表 → 兜底数据源 → 空列表。
// 兜底结果仍然应用 Post（请求过滤条件），过滤失败时返回未过滤的列表。
func (e *Engine) fallback(ctx context.Context, rctx *core.RecommendContext, reason string) *Result {
	e.Metrics.IncFallback(reason)
	res := &Result{
		Algorithm:      AlgorithmFallbackPopular,
		Strategy:       rctx.Algorithm,
		Weights:        ContentOnly,
		Confidence:     recall.FallbackConfidence,
		FallbackReason: reason,
	}

	all := core.RecommendContext{UserID: rctx.UserID}
	recs, err := e.Popularity.Recall(ctx, &all)
	if err != nil {
		e.Logger.Warn().Err(err).Msg("popularity fallback unavailable")
		recs = nil
		if e.Fallback != nil {
			recs = recall.PopularFromArtworks(e.Fallback.FallbackArtworks(), 0)
		}
	}
	if recs == nil {
		recs = []*core.Recommendation{}
	}
	for _, r := range recs {
		r.PutLabel(utils.LabelFallback, utils.NewLabel(reason, "fallback"))
	}

	filtered, err := e.post(ctx, rctx, recs)
	if err != nil {
		e.Logger.Warn().Err(err).Msg("fallback filtering failed, returning unfiltered list")
		filtered = core.Truncate(recs, rctx.Limit)
	}
	res.Recommendations = filtered
	return res
}

// SimilarArtworks 返回与给定作品相似的作品：
// 共同评分相似度（物品协同）与作品内容比较各占一半；没有共同评分数据时只用内容比较。
// 作品不存在时返回空列表。
func (e *Engine) SimilarArtworks(ctx context.Context, artworkID string, limit int) ([]*core.Recommendation, error) {
	target, err := e.Store.GetArtworkByID(ctx, artworkID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return []*core.Recommendation{}, nil
	}
	targetAnalysis, err := e.Store.GetArtworkAnalysis(ctx, artworkID)
	if err != nil {
		return nil, err
	}
	targetFeature := feature.Extract(*target, targetAnalysis)

	coRated, err := e.Collaborative.Item.Similar(ctx, artworkID, 0)
	if err != nil {
		return nil, err
	}
	cf := make(map[string]float64, len(coRated))
	for _, r := range coRated {
		cf[r.ArtworkID] = r.Score
	}
	w := ContentOnly
	if len(cf) > 0 {
		w = Weights{Collaborative: 0.5, Content: 0.5}
	}

	artworks, err := e.Store.GetAllArtworks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*core.Recommendation, 0, len(artworks))
	for _, a := range artworks {
		if a.ID == artworkID {
			continue
		}
		analysis, err := e.Store.GetArtworkAnalysis(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		content := feature.CompareArtworks(targetFeature, feature.Extract(a, analysis))
		score := core.ClampScore(w.Collaborative*cf[a.ID] + w.Content*content)
		if score <= 0 {
			continue
		}
		rec := core.NewRecommendation(a.ID, score, content, AlgorithmSimilarArtworks)
		if cf[a.ID] > 0 {
			rec.Confidence = max(content, cf[a.ID])
			rec.AddReason("collectors who liked this also liked")
		}
		if a.Category == target.Category && a.Category != "" {
			rec.AddReason("same category: " + a.Category)
		}
		if a.ArtistID == target.ArtistID && a.ArtistID != "" {
			rec.AddReason("by the same artist")
		}
		out = append(out, rec)
	}
	core.SortRecommendations(out)
	return core.Truncate(out, limit), nil
}

// collaborativeSource 把 Collaborative.Run 的整体置信度带出 Fanout。
type collaborativeSource struct {
	inner *recall.Collaborative
	out   *recall.CollaborativeResult
}

func (s collaborativeSource) Name() string { return s.inner.Name() }

func (s collaborativeSource) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Recommendation, error) {
	res, err := s.inner.Run(ctx, rctx)
	if err != nil {
		return nil, err
	}
	*s.out = res
	return res.Recommendations, nil
}

func clampAll(recs []*core.Recommendation) []*core.Recommendation {
	for _, r := range recs {
		r.Score = core.ClampScore(r.Score)
	}
	core.SortRecommendations(recs)
	return recs
}

func meanConfidence(recs []*core.Recommendation) float64 {
	if len(recs) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range recs {
		sum += r.Confidence
	}
	return sum / float64(len(recs))
}
