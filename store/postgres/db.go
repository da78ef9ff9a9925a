// Package postgres 是基于 database/sql + pgx 的关系库存储实现：
// 特征存储（只读）和预计算推荐结果仓库（按用户事务替换）。
//
// 列表类字段（风格、标签、向量、权重映射）以 JSONB 存储，由 go-json 解码。
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rushteam/artrec/core"
)

// Config 是连接池配置。
type Config struct {
	DSN             string        `koanf:"dsn" yaml:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns" yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns" yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" yaml:"conn_max_idle_time"`
}

func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// Open 打开连接池并 Ping 一次。
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, core.NewValidationError("postgres.dsn", "must not be empty")
	}
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, core.NewStoreFailure("open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, core.NewStoreFailure("ping", err)
	}
	return db, nil
}

// Schema 是本包读写的表结构。
const Schema = `
CREATE TABLE IF NOT EXISTS artworks (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    category    TEXT NOT NULL DEFAULT '',
    styles      JSONB NOT NULL DEFAULT '[]',
    tags        JSONB NOT NULL DEFAULT '[]',
    artist_id   TEXT NOT NULL DEFAULT '',
    price_min   DOUBLE PRECISION NOT NULL DEFAULT 0,
    price_max   DOUBLE PRECISION NOT NULL DEFAULT 0,
    popularity  DOUBLE PRECISION NOT NULL DEFAULT 0,
    active      BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS interactions (
    user_id    TEXT NOT NULL,
    artwork_id TEXT NOT NULL,
    rating     DOUBLE PRECISION NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS interactions_user_idx ON interactions (user_id, created_at);
CREATE INDEX IF NOT EXISTS interactions_artwork_idx ON interactions (artwork_id);

CREATE TABLE IF NOT EXISTS artwork_analysis (
    artwork_id       TEXT PRIMARY KEY,
    style_vector     JSONB NOT NULL DEFAULT '[]',
    category_scores  JSONB NOT NULL DEFAULT '{}',
    color_palette    TEXT NOT NULL DEFAULT '',
    popularity_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    quality_score    DOUBLE PRECISION,
    content_hash     TEXT NOT NULL DEFAULT '',
    last_analyzed    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_preferences (
    user_id              TEXT PRIMARY KEY,
    preference_vector    JSONB NOT NULL DEFAULT '[]',
    preferred_styles     JSONB NOT NULL DEFAULT '{}',
    preferred_categories JSONB NOT NULL DEFAULT '{}',
    profile_confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_updated         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS precomputed_recommendations (
    user_id     TEXT NOT NULL,
    artwork_id  TEXT NOT NULL,
    score       DOUBLE PRECISION NOT NULL,
    algorithm   TEXT NOT NULL,
    computed_at TIMESTAMPTZ NOT NULL,
    valid_until TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (user_id, artwork_id)
);
CREATE INDEX IF NOT EXISTS precomputed_valid_idx ON precomputed_recommendations (valid_until);
`

// Migrate 创建缺失的表和索引。
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
