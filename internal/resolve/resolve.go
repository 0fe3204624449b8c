// Package resolve 从一组搜索结果里挑出与片名最匹配的唯一候选。
package resolve

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/John-Robertt/CineMatch/internal/domain"
	"github.com/John-Robertt/CineMatch/internal/similarity"
)

// ErrNotFound 表示没有任何候选超过最低置信度（包括搜索结果为空）。
var ErrNotFound = errors.New("未找到匹配的影片")

const (
	DefaultMinConfidence = 0.5
	DefaultYearBonus     = 0.3
)

var (
	defaultIDPattern = regexp.MustCompile(`imdb\.com/title/(tt\d+)`)

	parenYearRe = regexp.MustCompile(`\((\d{4})\)`)
	bareYearRe  = regexp.MustCompile(`\b(\d{4})\b`)
)

type Options struct {
	// MinConfidence 是严格下界：得分必须 > MinConfidence 才算命中。
	MinConfidence float64
	// YearBonus 在请求年份与结果年份一致时加到相似度上。
	YearBonus float64
	// IDPattern 的第一个捕获组是 canonical id；为 nil 时使用 imdb.com/title/(tt\d+)。
	IDPattern *regexp.Regexp
}

func DefaultOptions() Options {
	return Options{
		MinConfidence: DefaultMinConfidence,
		YearBonus:     DefaultYearBonus,
		IDPattern:     defaultIDPattern,
	}
}

func (o Options) idPattern() *regexp.Regexp {
	if o.IDPattern == nil {
		return defaultIDPattern
	}
	return o.IDPattern
}

// Resolve 选出最佳候选。year==0 表示未提供年份。
//
// 规则：
// - 无法从 URL 取出 id 的结果在打分前丢弃
// - 得分 = Score(title, 清洗后的结果标题)，年份一致再加 YearBonus
// - 取严格更大的最高分（并列保留先出现者）
// - 最高分 > MinConfidence 才返回；否则 ErrNotFound
//
// 选择与阈值都基于原始得分；返回的 MatchScore 截断到 1.0。
func Resolve(title string, year int, hits []domain.SearchHit, opts Options) (domain.ResolvedCandidate, error) {
	re := opts.idPattern()

	var (
		best      domain.ResolvedCandidate
		bestScore float64
		found     bool
	)
	for _, h := range hits {
		id, ok := extractID(re, h.URL)
		if !ok {
			continue
		}

		sim := similarity.Score(title, h.Title)
		score := sim
		yearMatched := false
		if year > 0 && HitYear(h.Title, h.Snippet) == year {
			yearMatched = true
			score += opts.YearBonus
		}

		if found && score <= bestScore {
			continue
		}
		found = true
		bestScore = score
		best = domain.ResolvedCandidate{
			CanonicalID: id,
			QueryTitle:  title,
			SourceURL:   h.URL,
			SearchTitle: h.Title,
			Description: h.Snippet,
			Similarity:  sim,
			YearMatched: yearMatched,
			MatchScore:  score,
		}
	}

	if !found || bestScore <= opts.MinConfidence {
		return domain.ResolvedCandidate{}, ErrNotFound
	}
	if best.MatchScore > 1.0 {
		best.MatchScore = 1.0
	}
	return best, nil
}

// ExtractID 用默认模式从 URL 中取 canonical id（例如 tt1375666）。
func ExtractID(rawURL string) (string, bool) {
	return extractID(defaultIDPattern, rawURL)
}

func extractID(re *regexp.Regexp, rawURL string) (string, bool) {
	m := re.FindStringSubmatch(rawURL)
	if len(m) < 2 || strings.TrimSpace(m[1]) == "" {
		return "", false
	}
	return m[1], true
}

// HitYear 从 "标题 摘要" 中取年份：优先第一个 "(YYYY)"，否则第一个独立的 4 位数字。
// 找不到返回 0。
func HitYear(title, snippet string) int {
	text := title + " " + snippet
	if m := parenYearRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := bareYearRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}
