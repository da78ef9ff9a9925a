package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/config"
	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/hybrid"
	"github.com/rushteam/artrec/metrics"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/precompute"
	"github.com/rushteam/artrec/snapshot"
	"github.com/rushteam/artrec/store"
	"github.com/rushteam/artrec/store/postgres"
)

// app 持有一次命令执行所需的全部组件。
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	features  core.FeatureStore
	results   core.PrecomputedStore
	kv        core.Store // 可为 nil
	snapshots *snapshot.Holder

	engine  *hybrid.Engine
	service *hybrid.Service
	batch   *precompute.Batch

	stdout  io.Writer
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.metrics = metrics.New(a.registry)

	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}

	features := a.features
	if cfg.Store.Breaker {
		features = feature.NewBreakerStore(features, cfg.Breaker)
	}
	a.features = feature.NewInstrumentedStore(features, a.metrics)

	a.openSnapshot(ctx)

	a.engine = hybrid.NewEngine(a.features, logger, a.metrics)
	if key := cfg.Store.PopularityKey; key != "" {
		if ranking, ok := a.kv.(core.KeyValueStore); ok {
			a.engine.Popularity.Ranking = ranking
			a.engine.Popularity.RankingKey = key
		} else {
			logger.Warn().Str("key", key).Msg("popularity ranking needs a key-value store, using artwork popularity")
		}
	}
	post, err := pipeline.BuildPipeline(cfg.Post, config.DefaultFactory(), pipeline.Deps{Store: a.features, KV: a.kv})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build post pipeline: %w", err)
	}
	post.Logger = logger.With().Str("component", "pipeline").Logger()
	a.engine.Post = post
	if a.snapshots != nil {
		a.engine.Fallback = a.snapshots
	}

	a.service = hybrid.NewService(a.engine, a.results, cfg.Service, logger, a.metrics)
	a.batch = precompute.New(a.features, a.engine, a.results, cfg.Batch, logger, a.metrics)
	return a, nil
}

func (a *app) openStores(ctx context.Context) error {
	prefix := a.cfg.Store.KVPrefix
	switch a.cfg.Store.Backend {
	case config.BackendRedis:
		rs, err := store.NewRedisStore(ctx, a.cfg.Redis)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rs.Close)
		a.kv = rs
		a.features = store.NewKVFeatureStore(rs, prefix)
		a.results = store.NewKVRecommendationStore(rs, prefix+":rec")

	case config.BackendPostgres:
		db, err := postgres.Open(ctx, a.cfg.Postgres)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		a.features = postgres.NewFeatureStore(db)
		a.results = postgres.NewRecommendationRepo(db)
		// 快照 key、热门排行与屏蔽列表放在 Redis
		if a.cfg.Snapshot.Key != "" || a.cfg.Store.PopularityKey != "" {
			rs, err := store.NewRedisStore(ctx, a.cfg.Redis)
			if err != nil {
				return err
			}
			a.closers = append(a.closers, rs.Close)
			a.kv = rs
		}

	default:
		fs := store.NewMemoryFeatureStore()
		if err := seedDemo(fs, time.Now()); err != nil {
			return err
		}
		mem := store.NewMemoryStore()
		a.closers = append(a.closers, mem.Close)
		a.kv = mem
		a.features = fs
		a.results = store.NewKVRecommendationStore(mem, prefix+":rec")
	}
	a.logger.Info().Str("backend", a.cfg.Store.Backend).Msg("stores ready")
	return nil
}

// openSnapshot 加载兜底快照。加载失败只告警，引擎仍可工作。
func (a *app) openSnapshot(ctx context.Context) {
	var src snapshot.Source
	switch {
	case a.cfg.Snapshot.Path != "":
		src = snapshot.FileSource{Path: a.cfg.Snapshot.Path}
	case a.cfg.Snapshot.Key != "" && a.kv != nil:
		src = snapshot.StoreSource{Store: a.kv, Key: a.cfg.Snapshot.Key}
	default:
		return
	}
	a.snapshots = snapshot.NewHolder(src, a.logger, a.metrics)
	if _, err := a.snapshots.Reload(ctx); err != nil {
		a.logger.Warn().Err(err).Str("source", src.Name()).Msg("snapshot not loaded")
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}
