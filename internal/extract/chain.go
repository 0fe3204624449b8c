package extract

import (
	"context"

	"github.com/PuerkitoBio/goquery"
)

// Strategy 是回退链中的一环。Try 返回 ok=false 表示“这一招不可信”，交给下一个。
type Strategy[T any] struct {
	Name string
	Try  func(ctx context.Context, env *Env) (T, bool)
}

// FirstOf 依次尝试 chain，返回第一个可信结果与命中的策略名。
func FirstOf[T any](ctx context.Context, env *Env, chain []Strategy[T]) (T, string, bool) {
	for _, s := range chain {
		if v, ok := s.Try(ctx, env); ok {
			return v, s.Name, true
		}
	}
	var zero T
	return zero, "", false
}

// bySelector 取第一个文本经 accept 转换后可信的匹配元素。accept 为 nil 时接受任意非空文本。
func bySelector(sel string, accept func(string) (string, bool)) Strategy[string] {
	return Strategy[string]{
		Name: sel,
		Try: func(_ context.Context, env *Env) (string, bool) {
			var (
				out string
				ok  bool
			)
			env.Doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				txt := textOf(s)
				if txt == "" {
					return true
				}
				if accept == nil {
					out, ok = txt, true
					return false
				}
				out, ok = accept(txt)
				return !ok
			})
			return out, ok
		},
	}
}

// allBySelector 收集全部匹配元素的文本（去重、保序），至少一条才算可信。
func allBySelector(sel string) Strategy[[]string] {
	return Strategy[[]string]{
		Name: sel,
		Try: func(_ context.Context, env *Env) ([]string, bool) {
			var xs []string
			env.Doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
				xs = append(xs, textOf(s))
			})
			xs = dedup(xs)
			return xs, len(xs) > 0
		},
	}
}

// stringChain 按选择器顺序构造字符串回退链。
func stringChain(accept func(string) (string, bool), sels ...string) []Strategy[string] {
	out := make([]Strategy[string], 0, len(sels))
	for _, sel := range sels {
		out = append(out, bySelector(sel, accept))
	}
	return out
}

// firstString 是 FirstOf 的简写：只关心值。
func firstString(ctx context.Context, env *Env, chain []Strategy[string]) string {
	v, _, _ := FirstOf(ctx, env, chain)
	return v
}
