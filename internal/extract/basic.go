package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

var (
	titleYearRE   = regexp.MustCompile(`\s*\(\d{4}\)`)
	parenYearRE   = regexp.MustCompile(`\((\d{4})\)`)
	ratingValueRE = regexp.MustCompile(`\d+(?:\.\d+)?`)
	ratingCountRE = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?[KMB]?`)
)

// Basic 抽取 title / year / duration / rating / rating_count。
type Basic struct{}

func (Basic) Name() string { return "basic" }

func (Basic) Extract(ctx context.Context, env *Env) domain.FieldMap {
	fm := domain.FieldMap{}
	fm.SetString(domain.FieldTitle, firstString(ctx, env, titleChain))
	fm.SetString(domain.FieldYear, firstString(ctx, env, yearChain))
	fm.SetString(domain.FieldDuration, firstString(ctx, env, durationChain))
	fm.SetString(domain.FieldRating, firstString(ctx, env, ratingChain))
	fm.SetString(domain.FieldRatingCount, firstString(ctx, env, ratingCountChain))
	return fm
}

var titleChain = stringChain(cleanTitle,
	`h1[data-testid="hero__pageTitle"]`,
	`.title_wrapper h1`,
	`h1`,
)

// cleanTitle 去掉标题里的 "(YYYY)"。
func cleanTitle(s string) (string, bool) {
	s = normSpace(titleYearRE.ReplaceAllString(s, ""))
	return s, s != ""
}

var yearChain = []Strategy[string]{
	bySelector(`a[href*="releaseinfo"]`, firstYear),
	{
		Name: "page (YYYY)",
		Try: func(_ context.Context, env *Env) (string, bool) {
			m := parenYearRE.FindStringSubmatch(env.Doc.Text())
			if m == nil {
				return "", false
			}
			return m[1], true
		},
	},
}

var durationChain = []Strategy[string]{
	{
		Name: `li[data-testid="title-techspec_runtime"]`,
		Try: func(_ context.Context, env *Env) (string, bool) {
			s := withoutLabel(env.Doc.Find(`li[data-testid="title-techspec_runtime"]`).First())
			return s, s != ""
		},
	},
	bySelector(`.title_wrapper .subtext time`, nil),
}

var ratingChain = stringChain(ratingValue,
	`div[data-testid="hero-rating-bar__aggregate-rating__score"]`,
	`.imdbRating span[itemprop="ratingValue"]`,
	`.ratingValue strong`,
)

var ratingCountChain = []Strategy[string]{
	{
		Name: "score + div",
		Try: func(_ context.Context, env *Env) (string, bool) {
			score := env.Doc.Find(`div[data-testid="hero-rating-bar__aggregate-rating__score"]`).First()
			return matchCount(score.NextFiltered("div"))
		},
	},
	{
		Name: `.imdbRating span[itemprop="ratingCount"]`,
		Try: func(_ context.Context, env *Env) (string, bool) {
			return matchCount(env.Doc.Find(`.imdbRating span[itemprop="ratingCount"]`).First())
		},
	},
}

// ratingValue 从 "8.8/10" 这类文本中取评分。
func ratingValue(s string) (string, bool) {
	v := ratingValueRE.FindString(s)
	return v, v != ""
}

// matchCount 取 "1,234,567" 或 "2.6M" 形式的数字（缩写保留原样）。
func matchCount(s *goquery.Selection) (string, bool) {
	if s.Length() == 0 {
		return "", false
	}
	v := ratingCountRE.FindString(strings.TrimSpace(s.Text()))
	return v, v != ""
}
