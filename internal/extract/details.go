package extract

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

// Details 抽取 details 命名空间：title-details 列表中的每一项，以及 release_date / country / languages。
type Details struct{}

func (Details) Name() string { return "details" }

func (Details) Extract(ctx context.Context, env *Env) domain.FieldMap {
	sub := domain.FieldMap{}

	env.Doc.Find(`div[data-testid="title-details"] li.ipc-metadata-list__item, section[data-testid="Details"] li.ipc-metadata-list__item`).Each(func(_ int, item *goquery.Selection) {
		label := textOf(item.Find(labelSel).First())
		key := NormalizeKey(label)
		if key == "" || sub.Has(key) {
			return
		}
		var values []string
		item.Find("a").Not(labelSel).Each(func(_ int, a *goquery.Selection) {
			values = append(values, textOf(a))
		})
		values = dedup(values)
		switch len(values) {
		case 0:
			if _, v := labeled(item); v != "" {
				sub.SetString(key, v)
			}
		case 1:
			sub.SetString(key, values[0])
		default:
			sub.SetList(key, values)
		}
	})

	if !sub.Has("release_date") {
		sub.SetString("release_date", firstString(ctx, env, releaseDateChain))
	}
	if !sub.Has("country") {
		sub.SetString("country", textOf(env.Doc.Find(`a[href*="country_of_origin"]`).First()))
	}
	if !sub.Has("languages") {
		var langs []string
		env.Doc.Find(`a[href*="primary_language"]`).Each(func(_ int, a *goquery.Selection) {
			langs = append(langs, textOf(a))
		})
		sub.SetList("languages", dedup(langs))
	}

	fm := domain.FieldMap{}
	fm.SetMap(domain.FieldDetails, sub)
	return fm
}

var releaseDateChain = []Strategy[string]{
	bySelector(`li[data-testid="title-details-releasedate"] a.ipc-metadata-list-item__list-content-item`, nil),
	// 英雄区的 releaseinfo 链接只有年份，跳过它找完整日期。
	bySelector(`a[href*="releaseinfo"]`, func(s string) (string, bool) {
		return s, len(s) > 4
	}),
	bySelector(`a[href*="releaseinfo"]`, nil),
}
