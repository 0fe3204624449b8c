// Package nfo 把 MovieRecord 编码为 Kodi/Jellyfin/Emby 可读取的 movie NFO。
package nfo

import (
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

type movie struct {
	XMLName xml.Name `xml:"movie"`

	Title     string `xml:"title"`
	SortTitle string `xml:"sorttitle,omitempty"`
	Year      int    `xml:"year,omitempty"`
	Runtime   int    `xml:"runtime,omitempty"`

	Outline string `xml:"outline,omitempty"`
	Plot    string `xml:"plot,omitempty"`
	Tagline string `xml:"tagline,omitempty"`
	MPAA    string `xml:"mpaa,omitempty"`

	Ratings  *ratings `xml:"ratings,omitempty"`
	UniqueID uniqueID `xml:"uniqueid"`

	Genres    []string `xml:"genre,omitempty"`
	Tags      []string `xml:"tag,omitempty"`
	Countries []string `xml:"country,omitempty"`
	Premiered string   `xml:"premiered,omitempty"`

	Actors []actor `xml:"actor,omitempty"`

	Website string `xml:"website,omitempty"`
}

type ratings struct {
	Rating []rating `xml:"rating"`
}

type rating struct {
	Name    string `xml:"name,attr"`
	Max     int    `xml:"max,attr"`
	Default bool   `xml:"default,attr"`
	Value   string `xml:"value"`
	Votes   string `xml:"votes,omitempty"`
}

type uniqueID struct {
	Type    string `xml:"type,attr"`
	Default bool   `xml:"default,attr"`
	Value   string `xml:",chardata"`
}

type actor struct {
	Name  string `xml:"name"`
	Role  string `xml:"role,omitempty"`
	Order int    `xml:"order"`
}

// Encode 把 MovieRecord 转成 NFO（XML）。
//
// 规则：
// - 字段缺失允许为空；列表去空白、去重、保持输入顺序
// - title 为空时回退到查询标题，再回退到 canonical id
// - 角色名为 "Unknown" 时不输出 <role>
func Encode(rec domain.MovieRecord) ([]byte, error) {
	title := strings.TrimSpace(rec.Title)
	if title == "" {
		title = strings.TrimSpace(rec.Resolution.QueryTitle)
	}
	if title == "" {
		title = rec.CanonicalID
	}

	year, _ := strconv.Atoi(strings.TrimSpace(rec.Year))
	m := movie{
		Title:     title,
		SortTitle: sortTitle(title),
		Year:      year,
		Runtime:   RuntimeMinutes(rec.Duration),

		Outline: strings.TrimSpace(rec.Summary),
		Plot:    plot(rec),
		Tagline: strings.TrimSpace(rec.Storyline.Tagline),
		MPAA:    strings.TrimSpace(rec.Certification),

		UniqueID: uniqueID{Type: "imdb", Default: true, Value: rec.CanonicalID},

		Genres:    normList(rec.Storyline.Genres),
		Tags:      normList(rec.Storyline.Keywords),
		Countries: countries(rec.Details),
		Premiered: strings.TrimSpace(rec.Details.String("release_date")),

		Website: strings.TrimSpace(rec.URL),
	}

	if v := strings.TrimSpace(rec.Rating); v != "" {
		m.Ratings = &ratings{Rating: []rating{{
			Name:    "imdb",
			Max:     10,
			Default: true,
			Value:   v,
			Votes:   strings.TrimSpace(rec.RatingCount),
		}}}
	}

	seen := map[string]struct{}{}
	for _, c := range rec.Cast {
		name := strings.TrimSpace(c.Actor)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		role := strings.TrimSpace(c.Character)
		if role == domain.UnknownCharacter {
			role = ""
		}
		m.Actors = append(m.Actors, actor{Name: name, Role: role, Order: len(m.Actors)})
	}

	b, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	const header = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>` + "\n"
	return append([]byte(header), b...), nil
}

func plot(rec domain.MovieRecord) string {
	for _, s := range []string{rec.Synopsis, rec.Storyline.PlotSummary, rec.Summary} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func countries(d domain.FieldMap) []string {
	var out []string
	out = append(out, d.Strings("countries_of_origin")...)
	out = append(out, d.String("country"))
	return normList(out)
}

// sortTitle 去掉英文冠词前缀："The Matrix" → "Matrix"。与 title 相同时不输出。
func sortTitle(title string) string {
	lower := strings.ToLower(title)
	for _, art := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(lower, art) && len(title) > len(art) {
			return strings.TrimSpace(title[len(art):])
		}
	}
	return ""
}

var (
	hoursRE   = regexp.MustCompile(`(\d+)\s*h(?:ours?|rs?)?\b`)
	minutesRE = regexp.MustCompile(`(\d+)\s*m(?:in(?:ute)?s?)?\b`)
)

// RuntimeMinutes 把 "2h 28m" / "2 hours 28 minutes" / "148 min" 换算成分钟；无法识别返回 0。
func RuntimeMinutes(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	total := 0
	if m := hoursRE.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		total += h * 60
	}
	if m := minutesRE.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += n
	}
	return total
}

func normList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := m[s]; ok {
			continue
		}
		m[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
