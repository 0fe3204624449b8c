package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

// textOf 返回选区的可见文本（空白折叠）。
func textOf(s *goquery.Selection) string { return normSpace(s.Text()) }

// dedup 去空、去重，保留首次出现的顺序。
func dedup(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = normSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

var (
	keyUnsafeRE = regexp.MustCompile(`[\s()/:]+`)
	keyRepeatRE = regexp.MustCompile(`_+`)
)

// NormalizeKey 把页面上的 label 变成稳定的字段名：
// "Aspect ratio" → "aspect_ratio"，"Sound mix:" → "sound_mix"，"Color (Technicolor)" → "color_technicolor"。
func NormalizeKey(label string) string {
	k := strings.ToLower(normSpace(label))
	k = strings.TrimSuffix(k, ":")
	k = keyUnsafeRE.ReplaceAllString(k, "_")
	k = keyRepeatRE.ReplaceAllString(k, "_")
	return strings.Trim(k, "_")
}

const labelSel = ".ipc-metadata-list-item__label"

// labeled 把 IMDb 元数据列表项拆成 (label, value)。
// value 优先取 label 的下一个兄弟节点，否则取整项文本去掉 label 部分。
func labeled(item *goquery.Selection) (label, value string) {
	l := item.Find(labelSel).First()
	if l.Length() == 0 {
		return "", ""
	}
	label = textOf(l)
	if label == "" {
		return "", ""
	}
	if next := l.Next(); next.Length() > 0 {
		value = textOf(next)
	}
	if value == "" {
		value = normSpace(strings.Replace(textOf(item), label, "", 1))
	}
	return label, value
}

// withoutLabel 返回列表项去掉 label 后的文本；没有 label 时返回整项文本。
func withoutLabel(item *goquery.Selection) string {
	if _, v := labeled(item); v != "" {
		return v
	}
	return textOf(item)
}

var yearRE = regexp.MustCompile(`\b(1[89]\d{2}|2\d{3})\b`)

func firstYear(s string) (string, bool) {
	m := yearRE.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}
