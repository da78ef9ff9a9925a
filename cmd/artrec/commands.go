package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/hybrid"
	"github.com/rushteam/artrec/snapshot"
)

func runRecommend(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("recommend", flag.ContinueOnError)
	userID := fs.String("user", "", "user id")
	similar := fs.String("similar", "", "artwork id to find similar artworks for")
	limit := fs.Int("limit", 0, "number of recommendations (default from config)")
	category := fs.String("category", "", "only recommend this category")
	styles := fs.String("style", "", "comma separated styles")
	priceMin := fs.Float64("price-min", 0, "minimum price")
	priceMax := fs.Float64("price-max", 0, "maximum price (0 disables the price filter)")
	algorithm := fs.String("algorithm", "", "hybrid|collaborative|content")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *similar != "" {
		resp, err := a.service.SimilarArtworks(ctx, *similar, *limit)
		if err != nil {
			return err
		}
		return writeJSON(a.stdout, resp)
	}

	req := hybrid.Request{
		UserID:    *userID,
		Limit:     *limit,
		Category:  *category,
		Style:     splitList(*styles),
		Algorithm: core.Strategy(*algorithm),
	}
	if *priceMax > 0 {
		req.PriceRange = &core.PriceRange{Min: *priceMin, Max: *priceMax}
	}
	resp, err := a.service.GetRecommendations(ctx, req)
	if err != nil {
		return err
	}
	return writeJSON(a.stdout, resp)
}

func runBatch(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	schedule := fs.String("schedule", "", "cron schedule; empty runs once")
	timezone := fs.String("timezone", "UTC", "timezone for the cron schedule")
	metricsAddr := fs.String("metrics-addr", "", "serve prometheus metrics on this address while scheduled")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *schedule == "" {
		summary, err := a.batch.ComputeRecommendationsForAllUsers(ctx)
		if err != nil {
			return err
		}
		refreshRanking(ctx, a)
		return writeJSON(a.stdout, summary)
	}

	loc, err := time.LoadLocation(*timezone)
	if err != nil {
		a.logger.Error().Err(err).Str("timezone", *timezone).Msg("invalid timezone, using UTC")
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(*schedule, func() { runBatchJob(ctx, a) }); err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}
	if _, err := c.AddFunc("@every 1h", func() { runCleanupJob(ctx, a) }); err != nil {
		return fmt.Errorf("add cleanup job: %w", err)
	}
	if iv := a.cfg.Snapshot.ReloadInterval; iv > 0 && a.snapshots != nil {
		if _, err := c.AddFunc("@every "+iv.String(), func() { _, _ = a.snapshots.Reload(ctx) }); err != nil {
			return fmt.Errorf("add snapshot reload job: %w", err)
		}
	}

	var srv *http.Server
	if *metricsAddr != "" {
		srv = startMetricsServer(a, *metricsAddr)
	}

	c.Start()
	a.logger.Info().Str("schedule", *schedule).Str("timezone", loc.String()).Msg("batch scheduler started")

	<-ctx.Done()
	a.logger.Info().Msg("shutting down batch scheduler")
	stopped := c.Stop()
	<-stopped.Done()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn().Err(err).Msg("metrics server shutdown failed")
		}
	}
	return nil
}

func runBatchJob(ctx context.Context, a *app) {
	summary, err := a.batch.ComputeRecommendationsForAllUsers(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("scheduled batch failed")
		return
	}
	a.logger.Info().
		Int("users", summary.Users).
		Int("failed", summary.Failed).
		Int("rows", summary.Rows).
		Dur("duration", summary.Duration).
		Msg("scheduled batch finished")
	refreshRanking(ctx, a)
}

// refreshRanking 刷新热门排行；失败只记录日志，兜底退回作品热度。
func refreshRanking(ctx context.Context, a *app) {
	n, err := a.engine.Popularity.RefreshRanking(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("popularity ranking refresh failed")
		return
	}
	if n > 0 {
		a.logger.Debug().Int("artworks", n).Str("key", a.engine.Popularity.RankingKey).Msg("popularity ranking refreshed")
	}
}

func runCleanupJob(ctx context.Context, a *app) {
	n, err := a.batch.CleanupExpiredRecommendations(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("scheduled cleanup failed")
		return
	}
	a.logger.Info().Int64("deleted", n).Msg("scheduled cleanup finished")
}

func startMetricsServer(a *app, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	a.logger.Info().Str("addr", addr).Msg("metrics server listening")
	return srv
}

func runCleanup(ctx context.Context, a *app, _ []string) error {
	n, err := a.batch.CleanupExpiredRecommendations(ctx)
	if err != nil {
		return err
	}
	return writeJSON(a.stdout, map[string]int64{"deleted": n})
}

func runStats(ctx context.Context, a *app, _ []string) error {
	stats, err := a.batch.GetRecommendationStats(ctx)
	if err != nil {
		return err
	}
	return writeJSON(a.stdout, stats)
}

// runBulk 使用已加载的快照；未配置快照时先从特征存储导出一份。
func runBulk(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("bulk", flag.ContinueOnError)
	userID := fs.String("user", "", "user id")
	size := fs.Int("size", 50, "target number of results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *size <= 0 {
		return core.NewValidationError("size", "must be positive")
	}

	holder := a.snapshots
	if holder == nil || holder.Current() == nil {
		s, err := snapshot.Export(ctx, a.features, time.Now())
		if err != nil {
			return err
		}
		holder = snapshot.NewStaticHolder(s)
	}
	res := snapshot.NewRecommender(holder).Bulk(*userID, *size)
	return writeJSON(a.stdout, res)
}

// runExport 把特征存储导出为快照：写入 -out 文件、snapshot.key 或标准输出。
func runExport(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("out", "", "write the snapshot to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := snapshot.Export(ctx, a.features, time.Now().UTC())
	if err != nil {
		return err
	}
	data, err := s.Encode()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	switch {
	case *out != "":
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	case a.cfg.Snapshot.Key != "" && a.kv != nil:
		if err := a.kv.Set(ctx, a.cfg.Snapshot.Key, data); err != nil {
			return core.NewStoreFailure("snapshot export", err)
		}
	default:
		_, err = fmt.Fprintln(a.stdout, string(data))
		return err
	}
	a.logger.Info().
		Int("artworks", s.Metadata.ArtworkCount).
		Int("users", s.Metadata.UserCount).
		Msg("snapshot exported")
	return nil
}
