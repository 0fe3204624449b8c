package search

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/John-Robertt/CineMatch/internal/domain"
	"github.com/John-Robertt/CineMatch/internal/fetch"
)

const DefaultDDGBaseURL = "https://html.duckduckgo.com"

// DDG 通过 DuckDuckGo 的 HTML 端点搜索（无需 API key）。
//
// 约束：
// - 只做一次请求，不翻页
// - 不做重试/限速（重试在 client 的 Transport，限速在批量运行器）
type DDG struct {
	// BaseURL 为空时使用 https://html.duckduckgo.com（测试时指向 httptest）。
	BaseURL string
	Client  *http.Client
}

func (d DDG) baseURL() string {
	u := strings.TrimSpace(d.BaseURL)
	if u == "" {
		return DefaultDDGBaseURL
	}
	return strings.TrimRight(u, "/")
}

func (d DDG) TextSearch(ctx context.Context, query string, max int) ([]domain.SearchHit, error) {
	if d.Client == nil {
		return nil, errors.New("http client 不能为空")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query 不能为空")
	}

	u := d.baseURL() + "/html/?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build search request")
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "search %q", query)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &fetch.HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read search response")
	}
	// 被限流或判定为机器人时 DuckDuckGo 返回 202 + anomaly 页面。
	if resp.StatusCode == http.StatusAccepted {
		return nil, &fetch.BlockedError{URL: u, Reason: ddgAnomaly}
	}
	hits, err := ParseDDG(b, max)
	var be *fetch.BlockedError
	if errors.As(err, &be) {
		be.URL = u
	}
	return hits, err
}

const ddgAnomaly = "ddg-anomaly"

// ddgBlocked 识别拦截页：带 anomaly 弹窗，或既没有结果也没有“无结果”提示。
func ddgBlocked(doc *goquery.Document) bool {
	if doc.Find(".anomaly-modal, .anomaly-modal__title, #challenge-form").Length() > 0 {
		return true
	}
	return doc.Find(".result, .no-results, .results").Length() == 0
}

// ParseDDG 解析 DuckDuckGo HTML 结果页。max<=0 表示不限制条数。
// 拦截页返回 *fetch.BlockedError，与“确实没有结果”区分开。
func ParseDDG(html []byte, max int) ([]domain.SearchHit, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "parse search html")
	}
	if ddgBlocked(doc) {
		return nil, &fetch.BlockedError{Reason: ddgAnomaly}
	}

	hits := make([]domain.SearchHit, 0, 10)
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		// 广告位不是自然结果。
		if s.HasClass("result--ad") {
			return true
		}
		a := s.Find("a.result__a").First()
		href, _ := a.Attr("href")
		link := decodeRedirect(href)
		title := normSpace(a.Text())
		if link == "" || title == "" {
			return true
		}
		hits = append(hits, domain.SearchHit{
			Title:   title,
			URL:     link,
			Snippet: normSpace(s.Find(".result__snippet").First().Text()),
		})
		return max <= 0 || len(hits) < max
	})
	return hits, nil
}

// decodeRedirect 把 //duckduckgo.com/l/?uddg=<url> 还原为目标 URL；普通链接原样返回。
func decodeRedirect(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
