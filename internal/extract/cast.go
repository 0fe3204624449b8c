package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

var (
	actorHrefRE = regexp.MustCompile(`/name/nm\d+`)
	castAsRE    = regexp.MustCompile(`(?i)^as\s+`)
	castAnnotRE = regexp.MustCompile(`\s*\([^)]*\)\s*`)
)

// Cast 抽取演员表（actor + character），最多 Max 条。
// 角色名缺失时填 "Unknown"，不丢弃该演员。
type Cast struct {
	Max int
}

func (Cast) Name() string { return "cast" }

func (c Cast) Extract(ctx context.Context, env *Env) domain.FieldMap {
	max := c.Max
	if max <= 0 {
		max = defaultMaxCast
	}
	fm := domain.FieldMap{}
	rows, _, ok := FirstOf(ctx, env, castChain(max))
	if ok {
		fm[domain.FieldCast] = domain.Table(rows...)
	}
	return fm
}

func castChain(max int) []Strategy[[]domain.FieldMap] {
	return []Strategy[[]domain.FieldMap]{
		castList(`div[data-testid="title-cast-list"]`, max),
		castList(`section[data-testid="title-cast"]`, max),
		legacyCastTable(max),
	}
}

func castList(containerSel string, max int) Strategy[[]domain.FieldMap] {
	return Strategy[[]domain.FieldMap]{
		Name: containerSel,
		Try: func(_ context.Context, env *Env) ([]domain.FieldMap, bool) {
			box := env.Doc.Find(containerSel).First()
			if box.Length() == 0 {
				return nil, false
			}
			var (
				rows    []domain.FieldMap
				seen    = map[string]struct{}{}
				scanned int
			)
			// 上限作用于扫描过的演员链接（含头像链接），而不是产出的行数。
			box.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
				href, _ := a.Attr("href")
				id := actorHrefRE.FindString(href)
				if id == "" {
					return true
				}
				if scanned >= max {
					return false
				}
				scanned++
				actor := textOf(a)
				if actor == "" {
					// 头像链接没有文字，名字链接紧随其后。
					return true
				}
				if _, ok := seen[id]; ok {
					return true
				}
				seen[id] = struct{}{}
				rows = append(rows, castRow(actor, characterNear(a)))
				return true
			})
			return rows, len(rows) > 0
		},
	}
}

// characterNear 在演员链接所在的卡片里找角色名：
// 1) data-testid 含 character 的元素
// 2) 链接之后第一个有文字的兄弟元素
func characterNear(a *goquery.Selection) string {
	card := a.Closest(`[data-testid="title-cast-item"], li, tr`)
	if card.Length() == 0 {
		card = a.Parent()
	}
	if s := textOf(card.Find(`[data-testid*="character"]`).First()); s != "" {
		return s
	}
scan:
	for _, start := range []*goquery.Selection{a.Next(), a.Parent().Next()} {
		for n := start; n.Length() > 0; n = n.Next() {
			if hasActorLink(n) {
				// 已经走到下一位演员
				break scan
			}
			if s := textOf(n); s != "" {
				return s
			}
		}
	}
	return ""
}

func hasActorLink(s *goquery.Selection) bool {
	if href, ok := s.Attr("href"); ok && actorHrefRE.MatchString(href) {
		return true
	}
	return s.Find(`a[href*="/name/nm"]`).Length() > 0
}

func legacyCastTable(max int) Strategy[[]domain.FieldMap] {
	return Strategy[[]domain.FieldMap]{
		Name: "table.cast_list",
		Try: func(_ context.Context, env *Env) ([]domain.FieldMap, bool) {
			var rows []domain.FieldMap
			env.Doc.Find("table.cast_list tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
				if i == 0 {
					// 表头
					return true
				}
				if i > max {
					return false
				}
				cells := tr.Find("td")
				if cells.Length() < 4 {
					return true
				}
				actor := textOf(cells.Eq(1).Find("a").First())
				if actor == "" {
					return true
				}
				char := cells.Eq(3).Clone()
				char.Find("span").Remove()
				rows = append(rows, castRow(actor, textOf(char)))
				return true
			})
			return rows, len(rows) > 0
		},
	}
}

func castRow(actor, character string) domain.FieldMap {
	return domain.FieldMap{
		domain.FieldActor:     domain.String(actor),
		domain.FieldCharacter: domain.String(CleanCharacter(character)),
	}
}

// CleanCharacter 去掉 "as " 前缀与括号注释（"(voice)" / "(uncredited)"）；结果为空时返回 "Unknown"。
func CleanCharacter(s string) string {
	s = castAsRE.ReplaceAllString(strings.TrimSpace(s), "")
	s = castAnnotRE.ReplaceAllString(s, " ")
	s = normSpace(s)
	if s == "" {
		return domain.UnknownCharacter
	}
	return s
}
