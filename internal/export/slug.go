package export

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// UnknownSlug 是标题为空（或全部字符都被丢弃）时使用的文件名。
const UnknownSlug = "unknown_movie"

const maxSlugRunes = 120

// Slug 把标题转成文件系统安全的文件名片段：
// 去掉重音符号，空白变 `_`，丢弃路径分隔符与 Windows 保留字符，保留大小写。
//
// "Amélie" → "Amelie"；"The Lord of the Rings: The Return of the King" →
// "The_Lord_of_the_Rings_The_Return_of_the_King"。
func Slug(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(title))
	if err != nil {
		folded = strings.TrimSpace(title)
	}

	var b strings.Builder
	n := 0
	lastUnderscore := false
	for _, r := range folded {
		if n >= maxSlugRunes {
			break
		}
		switch {
		case unicode.IsSpace(r) || r == '_':
			if b.Len() > 0 && !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
				n++
			}
			continue
		case strings.ContainsRune(`/\:*?"<>|`, r), unicode.IsControl(r):
			continue
		}
		b.WriteRune(r)
		lastUnderscore = false
		n++
	}

	s := strings.Trim(b.String(), "_.")
	if s == "" {
		return UnknownSlug
	}
	return s
}
