// Package extract 从详情页 DOM 中按字段组抽取属性。
//
// 每个 Extractor 负责一组字段，内部按固定顺序尝试多种选择器（见 Strategy），
// 找不到就不输出对应 key，从不返回错误。Run 负责隔离单个 Extractor 的 panic 并做加法合并。
package extract

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/John-Robertt/CineMatch/internal/domain"
	"github.com/John-Robertt/CineMatch/internal/fetch"
)

// Env 是一次抽取的输入。Doc 只属于本次抽取，Extractor 不得在返回后继续持有。
type Env struct {
	Doc         *goquery.Document
	CanonicalID string
	// BaseURL 用于拼接附属页面（例如 /title/<id>/plotsummary/）。
	BaseURL string
	// Fetcher 为 nil 时跳过需要额外请求的策略。
	Fetcher fetch.Fetcher
	Logger  *zap.Logger
}

func (e *Env) logger() *zap.Logger {
	if e == nil || e.Logger == nil {
		return zap.L()
	}
	return e.Logger
}

// Extractor 负责一个字段组。
//
// 约束：
// - 缺失字段不出现在返回值里（不写空串占位）
// - 不返回错误；panic 由 Run 捕获并记为 FieldError
type Extractor interface {
	Name() string
	Extract(ctx context.Context, env *Env) domain.FieldMap
}

// Registry 是有序、名字唯一的 Extractor 列表。合并顺序即注册顺序。
type Registry struct {
	items []Extractor
}

func NewRegistry(extractors ...Extractor) (Registry, error) {
	seen := make(map[string]struct{}, len(extractors))
	items := make([]Extractor, 0, len(extractors))
	for _, x := range extractors {
		if x == nil {
			return Registry{}, fmt.Errorf("extractor 不能为空")
		}
		name := strings.ToLower(strings.TrimSpace(x.Name()))
		if name == "" {
			return Registry{}, fmt.Errorf("extractor.Name 不能为空")
		}
		if _, ok := seen[name]; ok {
			return Registry{}, fmt.Errorf("重复的 extractor：%q", name)
		}
		seen[name] = struct{}{}
		items = append(items, x)
	}
	return Registry{items: items}, nil
}

// DefaultRegistry 按固定顺序注册全部内置 Extractor。
func DefaultRegistry(opts Options) Registry {
	reg, err := NewRegistry(Defaults(opts)...)
	if err != nil {
		// 内置列表名字固定且唯一。
		panic(err)
	}
	return reg
}

func (r Registry) Names() []string {
	out := make([]string, 0, len(r.items))
	for _, x := range r.items {
		out = append(out, x.Name())
	}
	return out
}

func (r Registry) Len() int { return len(r.items) }

// FieldError 表示某个 Extractor 在运行中 panic。只影响它负责的字段组。
type FieldError struct {
	Extractor string
	Value     any
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("extractor=%s panic: %v", e.Extractor, e.Value)
}

// Outcome 记录一个 Extractor 的执行结果（产出的 key 或 FieldError），用于解释缺字段的原因。
type Outcome struct {
	Extractor string
	Keys      []string
	Err       error
}

// Run 按注册顺序执行全部 Extractor，并用 domain.MergeAdditive 依次合并。
// 单个 Extractor panic 时记录 Warn 日志，其结果视为空 FieldMap，其余 Extractor 不受影响。
func Run(ctx context.Context, reg Registry, env *Env) (domain.FieldMap, []Outcome) {
	log := env.logger()
	merged := domain.FieldMap{}
	outcomes := make([]Outcome, 0, len(reg.items))
	for _, x := range reg.items {
		if ctx.Err() != nil {
			outcomes = append(outcomes, Outcome{Extractor: x.Name(), Err: ctx.Err()})
			continue
		}
		fm, err := runOne(ctx, x, env)
		if err != nil {
			log.Warn("extractor failed",
				zap.String("extractor", x.Name()),
				zap.String("canonical_id", env.CanonicalID),
				zap.Error(err),
			)
			outcomes = append(outcomes, Outcome{Extractor: x.Name(), Err: err})
			continue
		}
		outcomes = append(outcomes, Outcome{Extractor: x.Name(), Keys: fm.Keys()})
		merged = domain.MergeAdditive(merged, fm)
	}
	return merged, outcomes
}

func runOne(ctx context.Context, x Extractor, env *Env) (fm domain.FieldMap, err error) {
	defer func() {
		if v := recover(); v != nil {
			env.logger().Debug("extractor panic stack",
				zap.String("extractor", x.Name()),
				zap.ByteString("stack", debug.Stack()),
			)
			fm, err = nil, &FieldError{Extractor: x.Name(), Value: v}
		}
	}()
	return x.Extract(ctx, env), nil
}

// Options 控制可配置的分类规则与上限；零值字段使用默认值。
type Options struct {
	// MaxCast 限制演员条数。
	MaxCast int
	// BoxOffice 按顺序匹配 label，第一条命中的规则决定 key。
	BoxOffice []BoxOfficeRule
	// TechSpecKeywords 是 technical_specs 的 key 白名单（子串匹配）。
	TechSpecKeywords []string
}

const defaultMaxCast = 20

func (o Options) withDefaults() Options {
	if o.MaxCast <= 0 {
		o.MaxCast = defaultMaxCast
	}
	if len(o.BoxOffice) == 0 {
		o.BoxOffice = DefaultBoxOfficeRules()
	}
	if len(o.TechSpecKeywords) == 0 {
		o.TechSpecKeywords = DefaultTechSpecKeywords()
	}
	return o
}

// Defaults 返回内置 Extractor，顺序即合并优先级。
func Defaults(opts Options) []Extractor {
	opts = opts.withDefaults()
	return []Extractor{
		Basic{},
		Synopsis{},
		Cast{Max: opts.MaxCast},
		Storyline{},
		Certification{},
		Details{},
		BoxOffice{Rules: opts.BoxOffice},
		TechnicalSpecs{Keywords: opts.TechSpecKeywords},
	}
}
