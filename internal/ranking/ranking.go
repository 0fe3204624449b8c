// Package ranking 对评论检索结果做去重、过滤与截断，并组合成推荐流程。
package ranking

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

// DedupeByMovie 每部电影只保留第一条（即最相关的）命中；没有电影标题的命中全部保留。
func DedupeByMovie(hits []domain.DocumentHit) []domain.DocumentHit {
	seen := make(map[string]struct{}, len(hits))
	out := make([]domain.DocumentHit, 0, len(hits))
	for _, h := range hits {
		title := h.Metadata.MovieTitle
		if title == "" {
			out = append(out, h)
			continue
		}
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		out = append(out, h)
	}
	return out
}

// FilterByDistance 保留 Distance 严格小于 threshold 的命中。
func FilterByDistance(hits []domain.DocumentHit, threshold float64) []domain.DocumentHit {
	out := make([]domain.DocumentHit, 0, len(hits))
	for _, h := range hits {
		if h.Distance < threshold {
			out = append(out, h)
		}
	}
	return out
}

// TopK 返回前 k 条；k <= 0 返回空。
func TopK(hits []domain.DocumentHit, k int) []domain.DocumentHit {
	if k <= 0 {
		return []domain.DocumentHit{}
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return append([]domain.DocumentHit{}, hits...)
}

// Searcher 是推荐所需的检索能力（store.SQLite 实现它）。
type Searcher interface {
	SearchDocuments(ctx context.Context, query string, k int) ([]domain.DocumentHit, error)
}

// Overfetch 是推荐时相对 k 的多取倍数，给去重留出余量。
const Overfetch = 3

// Options 控制 Recommend。MaxDistance <= 0 表示不按距离过滤。
type Options struct {
	K           int
	MaxDistance float64
}

// Recommend 检索 Overfetch*k 条命中，按电影去重（可选按距离过滤）后取前 k 条。
func Recommend(ctx context.Context, s Searcher, query string, opts Options) ([]domain.DocumentHit, error) {
	k := opts.K
	if k <= 0 {
		k = 5
	}
	raw, err := s.SearchDocuments(ctx, query, k*Overfetch)
	if err != nil {
		return nil, eris.Wrap(err, "recommend: search")
	}
	if opts.MaxDistance > 0 {
		raw = FilterByDistance(raw, opts.MaxDistance)
	}
	return TopK(DedupeByMovie(raw), k), nil
}
