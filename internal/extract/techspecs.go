package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

func DefaultTechSpecKeywords() []string {
	return []string{"runtime", "color", "aspect", "sound", "camera", "film"}
}

// TechnicalSpecs 抽取 technical_specs 命名空间；只保留 key 含白名单关键字的项。
type TechnicalSpecs struct {
	Keywords []string
}

func (TechnicalSpecs) Name() string { return "technical_specs" }

func (t TechnicalSpecs) Extract(_ context.Context, env *Env) domain.FieldMap {
	kws := t.Keywords
	if len(kws) == 0 {
		kws = DefaultTechSpecKeywords()
	}

	sub := domain.FieldMap{}
	if rt := env.Doc.Find(`li[data-testid="title-techspec_runtime"]`).First(); rt.Length() > 0 {
		sub.SetString("runtime", withoutLabel(rt))
	}

	env.Doc.Find(`li[data-testid^="title-details"], li[data-testid^="title-techspec"]`).Each(func(_ int, item *goquery.Selection) {
		label, value := labeled(item)
		key := NormalizeKey(label)
		if key == "" || value == "" || sub.Has(key) || !whitelisted(kws, key) {
			return
		}
		sub.SetString(key, value)
	})

	fm := domain.FieldMap{}
	fm.SetMap(domain.FieldTechnicalSpecs, sub)
	return fm
}

func whitelisted(kws []string, key string) bool {
	for _, kw := range kws {
		if kw != "" && strings.Contains(key, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
