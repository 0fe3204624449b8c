// Package fetch 按 URL 取回原始页面。
package fetch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
)

const defaultMaxBytes = 8 << 20

// Fetcher 是文档抓取协作者：按 URL 返回原始字节。
// 非 2xx 返回 *HTTPStatusError；实现不做缓存以外的副作用。
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc 让普通函数满足 Fetcher（测试桩常用）。
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) { return f(ctx, url) }

// HTTP 用给定 client 抓取页面。重试/UA/代理策略由 client 的 Transport 负责（见 infra/httpx）。
type HTTP struct {
	Client *http.Client
	// Headers 附加到每个请求；为空时使用 Transport 的默认浏览器请求头。
	Headers http.Header
	// MaxBytes 限制单页大小；<=0 使用 8MiB。
	MaxBytes int64
}

func (h HTTP) Fetch(ctx context.Context, u string) ([]byte, error) {
	if h.Client == nil {
		return nil, errors.New("http client 不能为空")
	}
	if strings.TrimSpace(u) == "" {
		return nil, errors.New("url 不能为空")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range h.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}

	max := h.MaxBytes
	if max <= 0 {
		max = defaultMaxBytes
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, max))
	if err != nil {
		return nil, err
	}

	// WAF challenge：202 + 空 body，或带 x-amzn-waf-action 头。
	if resp.Header.Get("X-Amzn-Waf-Action") != "" {
		return nil, &BlockedError{URL: u, Reason: "waf-challenge"}
	}
	if len(bytes.TrimSpace(b)) == 0 {
		if resp.StatusCode == http.StatusAccepted {
			return nil, &BlockedError{URL: u, Reason: "waf-challenge"}
		}
		return nil, errors.New("响应 body 为空：" + u)
	}
	return b, nil
}
