package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

// BoxOfficeRule 把 label 归类到一个固定 key：label（小写）包含 Match 中全部子串即命中。
type BoxOfficeRule struct {
	Key   string   `json:"key" mapstructure:"key"`
	Match []string `json:"match" mapstructure:"match"`
}

func (r BoxOfficeRule) matches(label string) bool {
	if len(r.Match) == 0 {
		return false
	}
	for _, m := range r.Match {
		if !strings.Contains(label, strings.ToLower(m)) {
			return false
		}
	}
	return true
}

func DefaultBoxOfficeRules() []BoxOfficeRule {
	return []BoxOfficeRule{
		{Key: "budget", Match: []string{"budget"}},
		{Key: "gross_worldwide", Match: []string{"gross", "worldwide"}},
		{Key: "opening_weekend_usa", Match: []string{"opening weekend"}},
		{Key: "gross_usa", Match: []string{"gross us"}},
	}
}

// BoxOffice 抽取 box_office 命名空间；不认识的 label 被忽略。
type BoxOffice struct {
	Rules []BoxOfficeRule
}

func (BoxOffice) Name() string { return "box_office" }

func (b BoxOffice) Extract(_ context.Context, env *Env) domain.FieldMap {
	rules := b.Rules
	if len(rules) == 0 {
		rules = DefaultBoxOfficeRules()
	}

	sub := domain.FieldMap{}
	env.Doc.Find(`li[data-testid*="title-details"], li[data-testid*="boxoffice"]`).Each(func(_ int, item *goquery.Selection) {
		label, value := labeled(item)
		if label == "" || value == "" {
			return
		}
		if key := classify(rules, label); key != "" && !sub.Has(key) {
			sub.SetString(key, value)
		}
	})

	fm := domain.FieldMap{}
	fm.SetMap(domain.FieldBoxOffice, sub)
	return fm
}

// classify 返回第一条命中规则的 key；都不命中返回 ""。
func classify(rules []BoxOfficeRule, label string) string {
	label = strings.ToLower(normSpace(label))
	for _, r := range rules {
		if r.matches(label) {
			return r.Key
		}
	}
	return ""
}
