package hybrid

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/metrics"
	"github.com/rushteam/artrec/pkg/validate"
)

// 请求条数限制。
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// 结果来源。
const (
	SourceLive        = "live"
	SourcePrecomputed = "precomputed"
	SourceFallback    = "fallback"
)

// Request 是推荐请求。
type Request struct {
	UserID     string           `json:"userId" validate:"required"`
	Limit      int              `json:"limit,omitempty" validate:"gte=0"`
	Category   string           `json:"category,omitempty"`
	Style      []string         `json:"style,omitempty"`
	PriceRange *core.PriceRange `json:"priceRange,omitempty"`
	Algorithm  core.Strategy    `json:"algorithm,omitempty" validate:"omitempty,oneof=hybrid collaborative content"`
}

// Metadata 是响应元数据。QueryTime 单位毫秒。
type Metadata struct {
	RequestID   string        `json:"requestId"`
	TotalCount  int           `json:"totalCount"`
	QueryTime   int64         `json:"queryTime"`
	Confidence  float64       `json:"confidence"`
	Strategy    core.Strategy `json:"strategy,omitempty"`
	Weights     Weights       `json:"weights"`
	Source      string        `json:"source"`
	UserContext *UserContext  `json:"userContext,omitempty"`
}

// Response 是推荐响应。ArtworkIDs 与 Scores 一一对应。
type Response struct {
	ArtworkIDs      []string               `json:"artworkIds"`
	Scores          []float64              `json:"scores"`
	Algorithm       string                 `json:"algorithm"`
	Recommendations []*core.Recommendation `json:"recommendations"`
	Metadata        Metadata               `json:"metadata"`
}

// ServiceConfig 是服务层参数。
type ServiceConfig struct {
	DefaultLimit int `koanf:"default_limit" yaml:"default_limit" validate:"gte=0"`
	MaxLimit     int `koanf:"max_limit" yaml:"max_limit" validate:"gte=0"`
	// ReadPrecomputed 为 true 时，无过滤条件、无指定策略的请求优先读取预计算结果
	ReadPrecomputed bool `koanf:"read_precomputed" yaml:"read_precomputed"`
}

// Service 是对外的推荐入口：参数校验、limit 规整、预计算优先、调用编排器。
type Service struct {
	Engine      *Engine
	Precomputed core.PrecomputedStore
	Config      ServiceConfig

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func NewService(engine *Engine, precomputed core.PrecomputedStore, cfg ServiceConfig, logger zerolog.Logger, m *metrics.Metrics) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxLimit
	}
	return &Service{
		Engine:      engine,
		Precomputed: precomputed,
		Config:      cfg,
		Logger:      logger.With().Str("component", "service").Logger(),
		Metrics:     m,
		Now:         time.Now,
	}
}

// GetRecommendations 返回用户推荐。只有参数错误会返回 error，存储故障由编排器兜底。
func (s *Service) GetRecommendations(ctx context.Context, req Request) (*Response, error) {
	start := s.Now()
	req.UserID = strings.TrimSpace(req.UserID)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	rctx := &core.RecommendContext{
		UserID:     req.UserID,
		Limit:      s.limit(req.Limit),
		Category:   strings.TrimSpace(req.Category),
		Styles:     req.Style,
		PriceRange: req.PriceRange,
		Algorithm:  req.Algorithm,
	}
	requestID := uuid.NewString()
	log := s.Logger.With().Str("request_id", requestID).Str("user_id", rctx.UserID).Logger()

	if resp := s.precomputed(ctx, rctx, log); resp != nil {
		resp.Metadata.RequestID = requestID
		resp.Metadata.QueryTime = s.Now().Sub(start).Milliseconds()
		return resp, nil
	}

	res, err := s.Engine.Recommend(ctx, rctx)
	if err != nil {
		return nil, err
	}

	resp := newResponse(res.Recommendations, res.Algorithm)
	resp.Metadata = Metadata{
		RequestID:  requestID,
		TotalCount: len(res.Recommendations),
		QueryTime:  s.Now().Sub(start).Milliseconds(),
		Confidence: res.Confidence,
		Strategy:   res.Strategy,
		Weights:    res.Weights,
		Source:     SourceLive,
	}
	if res.FallbackReason != "" {
		resp.Metadata.Source = SourceFallback
	} else {
		uc := res.Context
		resp.Metadata.UserContext = &uc
	}
	log.Info().
		Str("algorithm", resp.Algorithm).
		Str("source", resp.Metadata.Source).
		Int("count", resp.Metadata.TotalCount).
		Int64("query_ms", resp.Metadata.QueryTime).
		Msg("recommendations served")
	return resp, nil
}

// SimilarArtworks 返回相似作品；artworkID 为空是参数错误。
func (s *Service) SimilarArtworks(ctx context.Context, artworkID string, limit int) (*Response, error) {
	start := s.Now()
	artworkID = strings.TrimSpace(artworkID)
	if artworkID == "" {
		return nil, core.NewValidationError("artworkId", "must not be empty")
	}
	if limit < 0 {
		return nil, core.NewValidationError("limit", "must be >= 0")
	}
	recs, err := s.Engine.SimilarArtworks(ctx, artworkID, s.limit(limit))
	if err != nil {
		return nil, err
	}
	resp := newResponse(recs, AlgorithmSimilarArtworks)
	resp.Metadata = Metadata{
		RequestID:  uuid.NewString(),
		TotalCount: len(recs),
		QueryTime:  s.Now().Sub(start).Milliseconds(),
		Confidence: meanConfidence(recs),
		Source:     SourceLive,
	}
	return resp, nil
}

func (s *Service) limit(n int) int {
	switch {
	case n <= 0:
		return s.Config.DefaultLimit
	case n > s.Config.MaxLimit:
		return s.Config.MaxLimit
	default:
		return n
	}
}

// precomputed 读取预计算结果；读失败只记录日志，继续走实时计算。
func (s *Service) precomputed(ctx context.Context, rctx *core.RecommendContext, log zerolog.Logger) *Response {
	if !s.Config.ReadPrecomputed || s.Precomputed == nil || rctx.HasFilters() || rctx.Algorithm != "" {
		return nil
	}
	rows, err := s.Precomputed.GetValidRecommendations(ctx, rctx.UserID, s.Now(), rctx.Limit)
	if err != nil {
		log.Warn().Err(err).Msg("read precomputed recommendations failed")
		return nil
	}
	if len(rows) == 0 {
		return nil
	}

	recs := make([]*core.Recommendation, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, core.NewRecommendation(row.ArtworkID, core.ClampScore(row.Score), 0, row.Algorithm))
	}
	resp := newResponse(recs, rows[0].Algorithm)
	resp.Metadata = Metadata{
		TotalCount: len(recs),
		Source:     SourcePrecomputed,
	}
	log.Debug().Int("count", len(recs)).Msg("served precomputed recommendations")
	return resp
}

func newResponse(recs []*core.Recommendation, algorithm string) *Response {
	if recs == nil {
		recs = []*core.Recommendation{}
	}
	scores := make([]float64, 0, len(recs))
	for _, r := range recs {
		scores = append(scores, r.Score)
	}
	return &Response{
		ArtworkIDs:      core.ArtworkIDs(recs),
		Scores:          scores,
		Algorithm:       algorithm,
		Recommendations: recs,
	}
}
