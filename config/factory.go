package config

import (
	"fmt"

	"github.com/rushteam/artrec/filter"
	"github.com/rushteam/artrec/pipeline"
	"github.com/rushteam/artrec/pkg/conv"
	"github.com/rushteam/artrec/rerank"
)

// DefaultFactory 创建带有内置 Node 构建器的工厂。
//
// 内置类型：
//
//	filter.threshold  min_score / min_confidence
//	filter.attribute  按请求的 category/style/price 过滤
//	filter.blocked    ids / key / user_key_prefix
//	filter.rule       expr / drop（CEL 表达式）
//	rerank.topn       n
//	rerank.sort       按分数降序
func DefaultFactory() *pipeline.NodeFactory {
	f := pipeline.NewNodeFactory()
	f.Register("filter.threshold", buildThresholdNode)
	f.Register("filter.attribute", buildAttributeNode)
	f.Register("filter.blocked", buildBlockedNode)
	f.Register("filter.rule", buildRuleNode)
	f.Register("rerank.topn", buildTopNNode)
	f.Register("rerank.sort", buildSortNode)
	return f
}

func buildThresholdNode(cfg map[string]any, _ pipeline.Deps) (pipeline.Node, error) {
	t := filter.NewThresholdFilter()
	t.MinScore = conv.ConfigGetFloat64(cfg, "min_score", t.MinScore)
	t.MinConfidence = conv.ConfigGetFloat64(cfg, "min_confidence", t.MinConfidence)
	return filter.NewFilterNode(t), nil
}

func buildAttributeNode(_ map[string]any, deps pipeline.Deps) (pipeline.Node, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("filter.attribute requires a feature store")
	}
	return filter.NewFilterNode(filter.NewAttributeFilter(deps.Store)), nil
}

func buildBlockedNode(cfg map[string]any, deps pipeline.Deps) (pipeline.Node, error) {
	ids := conv.SliceAnyToString(cfg["ids"])
	key := conv.ConfigGet(cfg, "key", "")
	prefix := conv.ConfigGet(cfg, "user_key_prefix", "")
	if (key != "" || prefix != "") && deps.KV == nil {
		return nil, fmt.Errorf("filter.blocked: key or user_key_prefix set but no kv store")
	}
	return filter.NewFilterNode(filter.NewBlockedFilter(ids, deps.KV, key, prefix)), nil
}

func buildRuleNode(cfg map[string]any, deps pipeline.Deps) (pipeline.Node, error) {
	expr := conv.ConfigGet(cfg, "expr", "")
	if expr == "" {
		return nil, fmt.Errorf("filter.rule: expr not found")
	}
	rule, err := filter.NewRuleFilter(expr, deps.Store, conv.ConfigGet(cfg, "drop", false))
	if err != nil {
		return nil, err
	}
	return filter.NewFilterNode(rule), nil
}

func buildTopNNode(cfg map[string]any, _ pipeline.Deps) (pipeline.Node, error) {
	n := conv.ConfigGetInt(cfg, "n", 0)
	if n < 0 {
		return nil, fmt.Errorf("rerank.topn: n must not be negative")
	}
	return &rerank.TopNNode{N: n}, nil
}

func buildSortNode(_ map[string]any, _ pipeline.Deps) (pipeline.Node, error) {
	return rerank.SortNode{}, nil
}
