package fetch

import (
	"fmt"
	"strings"
)

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d url=%s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d url=%s location=%s", e.StatusCode, e.URL, loc)
}

// BlockedError 表示请求落到了“验证/拦截”页面（例如 WAF challenge）。
// 不尝试绕过，直接视为抓取失败，由上层提示用户配置代理或降低并发。
type BlockedError struct {
	URL    string
	Reason string // 例如 "waf-challenge"
}

func (e *BlockedError) Error() string {
	if e == nil {
		return "blocked"
	}
	if strings.TrimSpace(e.Reason) == "" {
		return "blocked: " + e.URL
	}
	return "blocked: " + strings.TrimSpace(e.Reason) + " url=" + e.URL
}
