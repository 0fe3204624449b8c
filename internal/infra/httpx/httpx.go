// Package httpx 提供抓取搜索页与详情页共用的 HTTP client。
package httpx

import (
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTimeout        = 20 * time.Second
	DefaultRetryMax       = 2
	DefaultAcceptLanguage = "en-US,en;q=0.9"
)

// Transport 把“UA 池 + 浏览器请求头 + 代理 + keep-alive 策略 + 有界重试”固化为统一策略。
// 调用方（search / fetch）只关心 URL 与解析，不关心网络细节。
type Transport struct {
	Base *http.Transport

	ua *uaPool

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int

	// AcceptLanguage 固定为英文：详情页的 label（Budget / Runtime ...）按英文解析。
	AcceptLanguage string

	// DisableKeepAlives 决定是否对 Request 设置 Close=true。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool

	Logger *zap.Logger
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对“可重放”的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var (
		lastResp *http.Response
		lastErr  error
	)
	for attempt := 0; attempt <= max; attempt++ {
		if lastResp != nil {
			drain(lastResp)
			lastResp = nil
		}

		resp, err := t.Base.RoundTrip(t.prepare(req))
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		lastResp, lastErr = resp, err
		if req.Context().Err() != nil {
			break
		}
		if attempt < max {
			t.logger().Debug("retrying request",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		}
	}
	if lastResp != nil {
		// 重试耗尽：把最后一次的 429/5xx 原样交给调用方，由其转换为 HTTPStatusError。
		return lastResp, nil
	}
	return nil, lastErr
}

// prepare 复制请求并补齐浏览器风格的请求头；调用方显式设置的 header 优先。
func (t *Transport) prepare(req *http.Request) *http.Request {
	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", t.ua.random())
	}
	if r.Header.Get("Accept") == "" {
		r.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	}
	if r.Header.Get("Accept-Language") == "" {
		lang := t.AcceptLanguage
		if lang == "" {
			lang = DefaultAcceptLanguage
		}
		r.Header.Set("Accept-Language", lang)
	}
	if t.DisableKeepAlives {
		r.Close = true
	}
	return r
}

func (t *Transport) logger() *zap.Logger {
	if t.Logger == nil {
		return zap.L()
	}
	return t.Logger
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

type Options struct {
	// ProxyURL 非空时所有请求走代理，且禁用 keep-alive（每请求新连接）。
	ProxyURL string
	Timeout  time.Duration
	// RetryMax < 0 表示不重试；0 使用默认值。
	RetryMax       int
	AcceptLanguage string
	Logger         *zap.Logger
}

// NewClient 构造抓取用的 HTTP client。
//
// 规则：
// - 内置 UA 池：每个请求随机 UA
// - 网络错误与 429/502/503/504 做有界重试；其余状态码直接返回
// - 总超时由 http.Client.Timeout 兜底
func NewClient(opts Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}

	disableKeepAlives := false
	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	retry := opts.RetryMax
	switch {
	case retry == 0:
		retry = DefaultRetryMax
	case retry < 0:
		retry = 0
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	tr := &Transport{
		Base:              base,
		ua:                globalUA,
		RetryMax:          retry,
		AcceptLanguage:    opts.AcceptLanguage,
		DisableKeepAlives: disableKeepAlives,
		Logger:            opts.Logger,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
