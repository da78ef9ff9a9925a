package pipeline

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
)

// NodeConfig 是单个 Node 的配置。
type NodeConfig struct {
	Type   string         `koanf:"type" yaml:"type" json:"type" validate:"required"` // filter.threshold / filter.rule / rerank.topn 等
	Config map[string]any `koanf:"config" yaml:"config,omitempty" json:"config"`     // Node 特定配置
}

// Deps 是 Node 构建时可用的外部依赖。
type Deps struct {
	Store core.FeatureStore
	KV    core.Store // 屏蔽列表等 KV 数据，可为 nil
}

// Builder 根据配置构建 Node。
type Builder func(cfg map[string]any, deps Deps) (Node, error)

// NodeFactory 用于根据配置构建 Node 实例。
type NodeFactory struct {
	builders map[string]Builder
}

func NewNodeFactory() *NodeFactory {
	return &NodeFactory{
		builders: make(map[string]Builder),
	}
}

// Register 注册 Node 构建器。
func (f *NodeFactory) Register(nodeType string, builder Builder) {
	f.builders[nodeType] = builder
}

// Types 返回已注册的 Node 类型（排序后）。
func (f *NodeFactory) Types() []string {
	out := make([]string, 0, len(f.builders))
	for t := range f.builders {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Build 根据类型和配置构建 Node。
func (f *NodeFactory) Build(nodeType string, cfg map[string]any, deps Deps) (Node, error) {
	builder, ok := f.builders[nodeType]
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", nodeType)
	}
	return builder(cfg, deps)
}

// BuildPipeline 根据配置构建 Pipeline。
// 注意：factory 的默认注册在独立的 config 包中，避免循环依赖。
func BuildPipeline(nodes []NodeConfig, factory *NodeFactory, deps Deps) (*Pipeline, error) {
	out := make([]Node, 0, len(nodes))
	for _, nc := range nodes {
		node, err := factory.Build(nc.Type, nc.Config, deps)
		if err != nil {
			return nil, fmt.Errorf("build node %s: %w", nc.Type, err)
		}
		out = append(out, node)
	}
	return &Pipeline{Nodes: out, Logger: zerolog.Nop()}, nil
}
