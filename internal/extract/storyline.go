package extract

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

const (
	minStorylineSectionLen = 30
	minPlotSummaryLen      = 10
)

// Storyline 抽取 storyline 命名空间：plot_summary / genres / tagline / keywords。
type Storyline struct{}

func (Storyline) Name() string { return "storyline" }

func (Storyline) Extract(ctx context.Context, env *Env) domain.FieldMap {
	sub := domain.FieldMap{}
	sub.SetString(domain.FieldPlotSummary, firstString(ctx, env, plotSummaryChain))
	if genres, _, ok := FirstOf(ctx, env, genresChain); ok {
		sub.SetList(domain.FieldGenres, genres)
	}
	sub.SetString(domain.FieldTagline, firstString(ctx, env, taglineChain))
	if kws, _, ok := FirstOf(ctx, env, keywordsChain); ok {
		sub.SetList(domain.FieldKeywords, kws)
	}

	fm := domain.FieldMap{}
	fm.SetMap(domain.FieldStoryline, sub)
	return fm
}

var plotSummaryChain = []Strategy[string]{
	bySelector(`span[data-testid="plot-xl"], div[data-testid="plot-xl"]`, acceptPlotSummary),
	{
		Name: `section[data-testid="Storyline"]`,
		Try: func(_ context.Context, env *Env) (string, bool) {
			var out string
			env.Doc.Find(`section[data-testid="Storyline"]`).First().Find("span, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				txt := textOf(s)
				if utf8.RuneCountInString(txt) <= minStorylineSectionLen {
					return true
				}
				out = txt
				return false
			})
			return acceptPlotSummary(out)
		},
	},
}

func acceptPlotSummary(s string) (string, bool) {
	s, ok := acceptPlot(s)
	if !ok || utf8.RuneCountInString(s) <= minPlotSummaryLen {
		return "", false
	}
	return s, true
}

var genresChain = []Strategy[[]string]{
	allBySelector(`a[href*="/search/title/?genres="]`),
	allBySelector(`div[data-testid="genres"] a`),
	allBySelector(`div[data-testid="interests"] a`),
}

var taglineChain = []Strategy[string]{
	labeledSpans(`li[data-testid="storyline-2"]`),
	labeledSpans(`li[data-testid="storyline-taglines"]`),
	{
		Name: "span Tagline",
		Try: func(_ context.Context, env *Env) (string, bool) {
			var out string
			env.Doc.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if !isTaglineLabel(textOf(s)) {
					return true
				}
				out = textOf(s.NextAllFiltered("span").First())
				if out == "" {
					out = textOf(s.Next().Find("span").First())
				}
				return out == ""
			})
			return out, out != ""
		},
	},
}

// labeledSpans 处理 "<li><span>Tagline</span>...<span>值</span></li>" 结构：第一个 span 是 label，第二个是值。
func labeledSpans(itemSel string) Strategy[string] {
	return Strategy[string]{
		Name: itemSel,
		Try: func(_ context.Context, env *Env) (string, bool) {
			var out string
			env.Doc.Find(itemSel).EachWithBreak(func(_ int, item *goquery.Selection) bool {
				spans := item.Find("span")
				if spans.Length() < 2 || !isTaglineLabel(textOf(spans.Eq(0))) {
					return true
				}
				out = textOf(spans.Eq(1))
				return out == ""
			})
			return out, out != ""
		},
	}
}

func isTaglineLabel(s string) bool {
	s = strings.ToLower(s)
	return s != "" && utf8.RuneCountInString(s) < 20 && strings.Contains(s, "tagline")
}

var keywordsChain = []Strategy[[]string]{
	allBySelector(`li[data-testid="storyline-3"] a`),
	allBySelector(`div[data-testid="storyline-plot-keywords"] a`),
}
