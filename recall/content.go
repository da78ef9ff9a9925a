package recall

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/pkg/utils"
)

// 内容召回参数。
const (
	ProfileMinRating = 0.7 // 评分 > 该值的交互参与画像
	ContentMinScore  = 0.1 // 低于该分数的候选丢弃
)

// ContentRecall 是基于内容的召回源（Content-Based Recommendation）。
//
// 核心思想："用户喜欢具有某些特征的作品，推荐具有相似特征的其他作品"
//
// 流程：
//  1. 取评分 > MinRating 的交互，抽取作品内容特征，按评分加权聚合成画像
//  2. 没有符合条件的交互 → 没有画像 → 返回空
//  3. 对未交互过的在售作品逐个打分（见 ContentProfile.Score），丢弃 < MinScore
//
// 没有随机性：同样的存储内容和用户，输出完全一致。
type ContentRecall struct {
	Store core.FeatureStore

	MinRating float64
	MinScore  float64

	Concurrency int
}

func NewContentRecall(store core.FeatureStore) *ContentRecall {
	return &ContentRecall{
		Store:       store,
		MinRating:   ProfileMinRating,
		MinScore:    ContentMinScore,
		Concurrency: defaultConcurrency,
	}
}

func (r *ContentRecall) Name() string {
	return "recall.content"
}

// Profile 构建用户的内容画像，没有画像时返回 nil。
func (r *ContentRecall) Profile(ctx context.Context, userID string) (*ContentProfile, error) {
	profile, _, err := r.profile(ctx, userID)
	return profile, err
}

func (r *ContentRecall) profile(ctx context.Context, userID string) (*ContentProfile, map[string]float64, error) {
	interactions, err := r.Store.GetUserInteractions(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	ratings := core.RatingsByArtwork(interactions)

	liked := make([]string, 0)
	for id, rating := range ratings {
		if rating > r.MinRating {
			liked = append(liked, id)
		}
	}
	if len(liked) == 0 {
		return nil, ratings, nil
	}
	sort.Strings(liked)

	features, err := r.features(ctx, liked)
	if err != nil {
		return nil, nil, err
	}
	weighted := make([]WeightedFeature, 0, len(liked))
	for i, id := range liked {
		if features[i] == nil {
			continue
		}
		weighted = append(weighted, WeightedFeature{Feature: *features[i], Weight: ratings[id]})
	}
	return BuildProfile(weighted), ratings, nil
}

// features 并发拉取作品和分析结果；作品不存在的位置为 nil。
func (r *ContentRecall) features(ctx context.Context, ids []string) ([]*feature.ContentFeature, error) {
	out := make([]*feature.ContentFeature, len(ids))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency(r.Concurrency))
	for i, id := range ids {
		eg.Go(func() error {
			art, err := r.Store.GetArtworkByID(egCtx, id)
			if err != nil || art == nil {
				return err
			}
			analysis, err := r.Store.GetArtworkAnalysis(egCtx, id)
			if err != nil {
				return err
			}
			f := feature.Extract(*art, analysis)
			out[i] = &f
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ContentRecall) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Recommendation, error) {
	profile, ratings, err := r.profile(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return []*core.Recommendation{}, nil
	}

	artworks, err := r.Store.GetAllArtworks(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]core.Artwork, 0, len(artworks))
	for _, a := range artworks {
		if _, seen := ratings[a.ID]; !seen {
			candidates = append(candidates, a)
		}
	}

	analyses := make([]*core.ArtworkAnalysis, len(candidates))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency(r.Concurrency))
	for i, a := range candidates {
		eg.Go(func() error {
			an, err := r.Store.GetArtworkAnalysis(egCtx, a.ID)
			analyses[i] = an
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make([]*core.Recommendation, 0)
	for i, a := range candidates {
		score, reasons := profile.Score(feature.Extract(a, analyses[i]))
		if score < r.MinScore {
			continue
		}
		rec := core.NewRecommendation(a.ID, score, profile.Confidence(len(reasons)), AlgorithmContent)
		rec.AddReason(reasons...)
		rec.PutLabel(utils.LabelRecallSource, utils.NewLabel("content", "recall"))
		out = append(out, rec)
	}
	return finalize(out, limitOf(rctx)), nil
}
