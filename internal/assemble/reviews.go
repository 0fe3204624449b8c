package assemble

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

// ReviewSource 标记影评来自搜索摘要而不是影评页正文。
const ReviewSource = "web_search"

var reviewRatingRE = regexp.MustCompile(`(\d+)/10`)

// BuildReviews 把搜索结果转成影评列表：只保留 imdb.com 的链接，去掉标题里的 " - IMDb"。
// 用户影评额外从 "标题 摘要" 中提取 "N/10" 评分。
func BuildReviews(hits []domain.SearchHit, kind domain.ReviewKind) []domain.Review {
	out := make([]domain.Review, 0, len(hits))
	for _, h := range hits {
		if !strings.Contains(h.URL, "imdb.com") {
			continue
		}
		r := domain.Review{
			Title:   strings.TrimSpace(strings.ReplaceAll(h.Title, " - IMDb", "")),
			Content: h.Snippet,
			URL:     h.URL,
			Kind:    kind,
			Source:  ReviewSource,
		}
		if kind == domain.ReviewUser {
			if m := reviewRatingRE.FindStringSubmatch(h.Title + " " + h.Snippet); m != nil {
				r.Rating = m[1]
			}
		}
		out = append(out, r)
	}
	return out
}

// reviews 搜索一类影评。搜索失败降级为空列表；ctx 已取消时返回 ctx.Err()。
func (a *Assembler) reviews(ctx context.Context, query string, max int, kind domain.ReviewKind) ([]domain.Review, error) {
	if max <= 0 {
		return []domain.Review{}, nil
	}
	hits, err := a.Searcher.TextSearch(ctx, query, max)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		a.logger().Warn("review search failed",
			zap.String("query", query),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return []domain.Review{}, nil
	}
	return BuildReviews(hits, kind), nil
}
