package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/artrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("artwork", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
}

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Rule 是编译后的推荐过滤规则，使用 CEL (Common Expression Language) 实现。
// 编译一次，可在多个 goroutine 中重复执行。
//
// 表达式语法（CEL 标准语法）：
//   - 分数：item.score > 0.3 / item.confidence >= 0.2
//   - 算法：item.algorithm == "content_based"
//   - 作品：artwork.category == "painting" / "abstract" in artwork.styles
//   - 价格：artwork.price_min < 500.0
//   - 标签：label.recall_source != null && label.recall_source.value.contains("item_cf")
//   - 请求：rctx.user_id != "" && rctx.category == artwork.category
//
// 示例：
//   - `artwork.popularity >= 0.2 || item.score > 0.8` → 热度足够或分数很高
//   - `!("nsfw" in artwork.tags)` → 排除带 nsfw 标签的作品
type Rule struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式。表达式必须返回布尔值。
func Compile(expr string) (*Rule, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, core.NewValidationError("rule", issues.Err().Error())
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, core.NewValidationError("rule", "expression must return bool, got "+ast.OutputType().String())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Rule{expr: expr, prg: prg}, nil
}

// MustCompile 同 Compile，失败时 panic（用于常量规则）。
func MustCompile(expr string) *Rule {
	r, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return r
}

// String 返回原始表达式。
func (r *Rule) String() string { return r.expr }

// Match 对单个推荐求值。artwork 可以为 nil（此时 artwork 变量为空 map）。
func (r *Rule) Match(rec *core.Recommendation, artwork *core.Artwork, rctx *core.RecommendContext) (bool, error) {
	out, _, err := r.prg.Eval(buildInput(rec, artwork, rctx))
	if err != nil {
		// 访问不存在的 key 会报错，表达式应先用 != null 检查
		return false, fmt.Errorf("eval %q: %w", r.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

func buildInput(rec *core.Recommendation, artwork *core.Artwork, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any, len(rec.Labels))
	for k, v := range rec.Labels {
		labels[k] = map[string]any{
			"value":  v.Value,
			"source": v.Source,
		}
	}

	item := map[string]any{
		"id":         rec.ArtworkID,
		"score":      rec.Score,
		"confidence": rec.Confidence,
		"algorithm":  rec.Algorithm,
		"reasons":    rec.Reasons,
		"labels":     labels,
	}

	art := map[string]any{}
	if artwork != nil {
		art = map[string]any{
			"id":         artwork.ID,
			"title":      artwork.Title,
			"category":   artwork.Category,
			"styles":     nonNil(artwork.Styles),
			"tags":       nonNil(artwork.Tags),
			"artist_id":  artwork.ArtistID,
			"price_min":  artwork.PriceMin,
			"price_max":  artwork.PriceMax,
			"popularity": artwork.Popularity,
		}
	}

	rc := map[string]any{}
	if rctx != nil {
		params := rctx.Params
		if params == nil {
			params = map[string]any{}
		}
		rc = map[string]any{
			"user_id":   rctx.UserID,
			"limit":     rctx.Limit,
			"category":  rctx.Category,
			"styles":    nonNil(rctx.Styles),
			"algorithm": string(rctx.Algorithm),
			"params":    params,
		}
	}

	return map[string]any{
		"item":    item,
		"artwork": art,
		"label":   labels,
		"rctx":    rc,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
