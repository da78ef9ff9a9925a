// Package config 负责 artrec 的运行配置与后处理 Pipeline 的配置驱动构建。
//
// 加载顺序（后者覆盖前者）：
//  1. 结构体默认值
//  2. YAML 配置文件（可选）
//  3. ARTREC_ 前缀的环境变量，例如 ARTREC_STORE_BACKEND=postgres、ARTREC_REDIS_ADDR=...
//
// Post 描述编排器结果上的后处理 Node 列表，由 DefaultFactory 构建。
package config

import (
	"time"

	"github.com/rushteam/artrec/feature"
	"github.com/rushteam/artrec/hybrid"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/precompute"
	"github.com/rushteam/artrec/store"
	"github.com/rushteam/artrec/store/postgres"
)

// 存储后端
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Log      LogConfig             `koanf:"log" yaml:"log"`
	Store    StoreConfig           `koanf:"store" yaml:"store"`
	Redis    store.RedisConfig     `koanf:"redis" yaml:"redis"`
	Postgres postgres.Config       `koanf:"postgres" yaml:"postgres"`
	Service  hybrid.ServiceConfig  `koanf:"service" yaml:"service"`
	Batch    precompute.Config     `koanf:"batch" yaml:"batch"`
	Breaker  feature.BreakerConfig `koanf:"breaker" yaml:"breaker"`
	Snapshot SnapshotConfig        `koanf:"snapshot" yaml:"snapshot"`
	Post     []pipeline.NodeConfig `koanf:"post" yaml:"post" validate:"dive"`
}

type LogConfig struct {
	Level  string `koanf:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" yaml:"format" validate:"oneof=json console"`
}

// StoreConfig 选择特征存储与预计算结果的后端。
//   - memory：进程内演示数据
//   - redis：KV 版特征存储 + KV 预计算结果
//   - postgres：关系库特征存储 + 预计算结果表；快照 key、热门排行与屏蔽列表走 Redis
type StoreConfig struct {
	Backend string `koanf:"backend" yaml:"backend" validate:"oneof=memory redis postgres"`
	// KVPrefix 是 KV 后端下所有 key 的前缀
	KVPrefix string `koanf:"kv_prefix" yaml:"kv_prefix"`
	Breaker  bool   `koanf:"breaker" yaml:"breaker"`
	// PopularityKey 非空时热门兜底按该有序集合排序，批量任务负责刷新
	PopularityKey string `koanf:"popularity_key" yaml:"popularity_key"`
}

// SnapshotConfig 指定兜底快照的来源，Path 与 Key 至多设置一个。
type SnapshotConfig struct {
	Path           string        `koanf:"path" yaml:"path"`
	Key            string        `koanf:"key" yaml:"key"`
	ReloadInterval time.Duration `koanf:"reload_interval" yaml:"reload_interval" validate:"gte=0"`
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "json"},
		Store: StoreConfig{
			Backend:  BackendMemory,
			KVPrefix: "artrec",
			Breaker:  true,
		},
		Redis:    store.RedisConfig{Addr: "127.0.0.1:6379"},
		Postgres: postgres.DefaultConfig(),
		Service: hybrid.ServiceConfig{
			DefaultLimit:    hybrid.DefaultLimit,
			MaxLimit:        hybrid.MaxLimit,
			ReadPrecomputed: true,
		},
		Batch: precompute.Config{
			ChunkSize: precompute.DefaultChunkSize,
			Limit:     precompute.DefaultLimit,
			TTL:       precompute.DefaultTTL,
		},
		Breaker: feature.BreakerConfig{
			Name:         "feature-store",
			MinRequests:  10,
			FailureRatio: 0.6,
			OpenTimeout:  30 * time.Second,
		},
		Post: []pipeline.NodeConfig{
			{Type: "filter.attribute"},
		},
	}
}
