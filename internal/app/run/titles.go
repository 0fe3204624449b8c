package run

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

var trailingYearRE = regexp.MustCompile(`^(.*?)\s*\((\d{4})\)\s*$`)

// ParseQuery 解析一行标题："Heat (1995)" → {Heat 1995}；"Heat\t1995" 同理；没有年份时 Year 为 0。
func ParseQuery(line string) Query {
	line = strings.TrimSpace(line)
	if title, year, ok := strings.Cut(line, "\t"); ok {
		if y, err := strconv.Atoi(strings.TrimSpace(year)); err == nil {
			return Query{Title: strings.TrimSpace(title), Year: y}
		}
	}
	if m := trailingYearRE.FindStringSubmatch(line); m != nil && strings.TrimSpace(m[1]) != "" {
		y, _ := strconv.Atoi(m[2])
		return Query{Title: strings.TrimSpace(m[1]), Year: y}
	}
	return Query{Title: line}
}

// ReadTitles 逐行读取标题列表。空行与 # 开头的注释行被忽略；重复的 (title, year) 只保留第一次。
func ReadTitles(r io.Reader) ([]Query, error) {
	var out []Query
	seen := map[Query]struct{}{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		q := ParseQuery(line)
		if _, ok := seen[q]; ok {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "read titles")
	}
	return out, nil
}

// FromTitles 把不带年份的标题列表转成 Query。
func FromTitles(titles []string) []Query {
	out := make([]Query, 0, len(titles))
	for _, t := range titles {
		out = append(out, Query{Title: t})
	}
	return out
}
