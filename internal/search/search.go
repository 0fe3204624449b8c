// Package search 定义文本搜索协作者以及 CineMatch 使用的查询串。
package search

import (
	"context"
	"strconv"
	"strings"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

// Searcher 执行一次文本搜索，返回最多 max 条有序结果。
type Searcher interface {
	TextSearch(ctx context.Context, query string, max int) ([]domain.SearchHit, error)
}

// SearcherFunc 让普通函数满足 Searcher。
type SearcherFunc func(ctx context.Context, query string, max int) ([]domain.SearchHit, error)

func (f SearcherFunc) TextSearch(ctx context.Context, query string, max int) ([]domain.SearchHit, error) {
	return f(ctx, query, max)
}

// ResolveQuery 构造定位详情页的查询："<title>" site:imdb.com/title/ [year]
func ResolveQuery(title string, year int) string {
	q := `"` + strings.TrimSpace(title) + `" site:imdb.com/title/`
	if year > 0 {
		q += " " + strconv.Itoa(year)
	}
	return q
}

// ReviewQuery 构造用户影评查询。
func ReviewQuery(title string) string {
	return `"` + strings.TrimSpace(title) + `" "IMDb" "review"`
}

// CriticReviewQuery 构造专业影评查询。
func CriticReviewQuery(title string) string {
	return `"` + strings.TrimSpace(title) + `" "IMDb" "critic review"`
}
