// Package artrec 是一个艺术作品推荐引擎。
//
// 设计要点：
// - 多引擎：用户/作品协同过滤、内容推荐、热门兜底，由 hybrid 编排器按用户画像选择策略与权重
// - Pipeline：合并后的结果经过 filter / rerank Node 串联的后处理，可配置驱动
// - Labels-first：召回来源、策略、兜底原因等以 Label 全链路透传，便于解释与观测
// - 两种数据面：在线特征存储（内存 / Redis / Postgres）和离线导出的只读快照
package artrec

import (
	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/hybrid"
	"github.com/rushteam/artrec/metrics"
	"github.com/rushteam/artrec/pipeline"
)

// 轻量 facade：便于直接 import "artrec" 使用核心抽象。
type (
	Engine   = hybrid.Engine
	Service  = hybrid.Service
	Request  = hybrid.Request
	Response = hybrid.Response
	Pipeline = pipeline.Pipeline
	Node     = pipeline.Node
)

const (
	StrategyHybrid        = core.StrategyHybrid
	StrategyCollaborative = core.StrategyCollaborative
	StrategyContent       = core.StrategyContent
)

// New 用默认参数组装一个推荐服务（不读取预计算结果）。
func New(store core.FeatureStore, logger zerolog.Logger, m *metrics.Metrics) *Service {
	return hybrid.NewService(hybrid.NewEngine(store, logger, m), nil, hybrid.ServiceConfig{}, logger, m)
}
