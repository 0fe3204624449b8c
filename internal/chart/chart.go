// Package chart 读取 IMDb Top 榜单作为批量运行的标题来源。
package chart

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/John-Robertt/CineMatch/internal/fetch"
)

// DefaultURL 是 Top 250 榜单页。
const DefaultURL = "https://www.imdb.com/chart/top/"

// Source 标明标题列表的来源。
type Source string

const (
	SourceChart    Source = "chart"
	SourceFallback Source = "fallback"
)

// Fallback 是榜单不可达（或被拦截返回空页）时使用的内置列表。
var Fallback = []string{
	"The Shawshank Redemption", "The Godfather", "The Dark Knight",
	"Schindler's List", "12 Angry Men", "Pulp Fiction",
	"The Lord of the Rings: The Return of the King", "The Good, the Bad and the Ugly",
	"Fight Club", "Forrest Gump", "Inception", "The Matrix",
	"Goodfellas", "One Flew Over the Cuckoo's Nest", "Seven",
	"Interstellar", "Parasite", "Whiplash",
}

// Parse 从榜单 HTML 中读取 `h3.ipc-title__text` 形如 "1. The Shawshank Redemption" 的条目，
// 去掉序号后按页面顺序返回至多 limit 个标题（limit <= 0 不限制）。
// 不带数字序号的标题（例如页面上的其它 h3）被忽略。
func Parse(page []byte, limit int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, eris.Wrap(err, "chart: parse html")
	}
	var titles []string
	doc.Find("h3.ipc-title__text").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if t, ok := splitRanked(strings.TrimSpace(s.Text())); ok {
			titles = append(titles, t)
		}
		return limit <= 0 || len(titles) < limit
	})
	return titles, nil
}

func splitRanked(text string) (string, bool) {
	rank, title, ok := strings.Cut(text, ".")
	if !ok {
		return "", false
	}
	if _, err := strconv.Atoi(strings.TrimSpace(rank)); err != nil {
		return "", false
	}
	title = strings.TrimSpace(title)
	return title, title != ""
}

// TopTitles 抓取并解析榜单；失败或为空时回退到 Fallback。永远返回非空列表（limit > 0 时至多 limit 个）。
func TopTitles(ctx context.Context, f fetch.Fetcher, url string, limit int, logger *zap.Logger) ([]string, Source) {
	if logger == nil {
		logger = zap.L()
	}
	if url == "" {
		url = DefaultURL
	}
	log := logger.With(zap.String("url", url))

	page, err := f.Fetch(ctx, url)
	if err != nil {
		log.Warn("榜单抓取失败，使用内置列表", zap.Error(err))
		return fallback(limit), SourceFallback
	}
	titles, err := Parse(page, limit)
	if err != nil || len(titles) == 0 {
		log.Warn("榜单为空或无法解析，使用内置列表", zap.Error(err))
		return fallback(limit), SourceFallback
	}
	log.Info("榜单已读取", zap.Int("count", len(titles)))
	return titles, SourceChart
}

func fallback(limit int) []string {
	out := append([]string{}, Fallback...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
