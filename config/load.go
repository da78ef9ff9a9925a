package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/pkg/validate"
)

const (
	// EnvPrefix 是环境变量前缀
	EnvPrefix = "ARTREC_"
	// PathEnvVar 指定配置文件路径
	PathEnvVar = "ARTREC_CONFIG"
)

// DefaultPaths 是未显式指定路径时依次查找的配置文件。
var DefaultPaths = []string{
	"artrec.yaml",
	"artrec.yml",
	"/etc/artrec/config.yaml",
}

// envSections 是环境变量中可识别的一级配置段。
// ARTREC_REDIS_ADDR -> redis.addr，ARTREC_BATCH_CHUNK_SIZE -> batch.chunk_size
var envSections = []string{"log", "store", "redis", "postgres", "service", "batch", "breaker", "snapshot"}

// Load 按 默认值 -> 配置文件 -> 环境变量 的顺序加载并校验配置。
// path 为空时依次查找 ARTREC_CONFIG 与 DefaultPaths，找不到文件时只使用默认值和环境变量。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKey 把 ARTREC_SECTION_FIELD_NAME 转成 section.field_name，未知段返回空串（忽略）。
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	for _, section := range envSections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok && rest != "" {
			return section + "." + rest
		}
	}
	return ""
}

// Validate 校验结构体标签与跨字段约束。
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Store.Backend {
	case BackendRedis:
		if c.Redis.Addr == "" {
			return core.NewValidationError("redis.addr", "required when store.backend is redis")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return core.NewValidationError("postgres.dsn", "required when store.backend is postgres")
		}
	}
	if c.Service.MaxLimit > 0 && c.Service.DefaultLimit > c.Service.MaxLimit {
		return core.NewValidationError("service.default_limit", "must not exceed service.max_limit")
	}
	if c.Snapshot.Path != "" && c.Snapshot.Key != "" {
		return core.NewValidationError("snapshot", "path and key are mutually exclusive")
	}
	if c.Snapshot.ReloadInterval > 0 && c.Snapshot.Path == "" && c.Snapshot.Key == "" {
		return core.NewValidationError("snapshot.reload_interval", "requires snapshot.path or snapshot.key")
	}
	factory := DefaultFactory()
	known := make(map[string]struct{})
	for _, t := range factory.Types() {
		known[t] = struct{}{}
	}
	for i, n := range c.Post {
		if _, ok := known[n.Type]; !ok {
			return core.NewValidationError(fmt.Sprintf("post[%d].type", i), "unknown node type "+n.Type)
		}
	}
	return nil
}

// Dump 以 YAML 输出生效的配置。密码与 DSN 会被遮盖。
func Dump(c *Config) ([]byte, error) {
	masked := *c
	if masked.Redis.Password != "" {
		masked.Redis.Password = "******"
	}
	if masked.Postgres.DSN != "" {
		masked.Postgres.DSN = "******"
	}
	var buf bytes.Buffer
	enc := yamlv3.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&masked); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}
