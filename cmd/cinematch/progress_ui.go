package main

import (
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/CineMatch/internal/app/run"
	"github.com/John-Robertt/CineMatch/internal/config"
	"github.com/John-Robertt/CineMatch/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端上的批量进度输出。
//
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出
// - keepalive：长时间无条目完成时定期输出一行，并列出仍在处理的标题
type progressUI struct {
	w   io.Writer
	eff config.EffectiveConfig

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	workers int
	total   int
	done    int
	ok      int
	fail    int
	skip    int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer, eff config.EffectiveConfig) *progressUI {
	return &progressUI{
		w:                  w,
		eff:                eff,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(opts run.Options, total int) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	mode := "apply"
	modeHint := ""
	if opts.DryRun {
		mode = "dry-run"
		modeHint = " (不写入导出文件/索引/报告)"
	}

	fmt.Fprintf(p.w, "[%s] cinematch bulk (%s)\n", now.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	if p.eff.ConfigFile != "" {
		fmt.Fprintf(p.w, "  config: %s\n", p.eff.ConfigFile)
	}
	fmt.Fprintf(p.w, "  data: %s\n", opts.DataDir)
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
	fmt.Fprintf(p.w, "  titles: %d\n", total)
	fmt.Fprintf(p.w, "  concurrency: %d\n", opts.Concurrency)
	fmt.Fprintf(p.w, "  rate: %s\n", formatRate(opts.RatePerSec))
	fmt.Fprintf(p.w, "  skip_existing: %s\n", onOff(opts.SkipExisting))
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(p.eff.ProxyURL))
	fmt.Fprintf(p.w, "  cache: %s\n", onOff(p.eff.Cache))
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "plan":
		p.skip = intField(fields, "skipped")
		fmt.Fprintf(p.w, "规划: titles=%d skipped=%d pending=%d (%s)\n",
			intField(fields, "titles"), p.skip, intField(fields, "pending"), formatShortDuration(dur),
		)
	case "exec":
		p.workers = intField(fields, "workers")
		p.total = intField(fields, "total_items")
		fmt.Fprintf(p.w, "执行: workers=%d total_items=%d\n\n", p.workers, p.total)
		if p.total > 0 && !p.tickerStarted {
			p.startTickerLocked()
		}
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnItemDone(idx, total int, q run.Query, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = idx
	p.total = total

	switch res.Status {
	case domain.StatusProcessed:
		p.ok++
	case domain.StatusSkipped:
		p.skip++
	default:
		p.fail++
	}

	label := q.Title
	if q.Year > 0 {
		label = fmt.Sprintf("%s (%d)", q.Title, q.Year)
	}
	label = truncate(label, 60)

	switch res.Status {
	case domain.StatusFailed, domain.StatusNotFound:
		fmt.Fprintf(p.w, "[%d/%d] %s %s %s: %s (%s)\n",
			idx, total, label, statusTag(res.Status), res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	default:
		fmt.Fprintf(p.w, "[%d/%d] %s %s %s score=%.2f%s (%s)\n",
			idx, total, label, statusTag(res.Status), res.CanonicalID, res.MatchScore,
			formatMissing(res.MissingFields), formatShortDuration(dur),
		)
	}

	p.lastPrinted = time.Now()

	// 最后一条完成：停止 ticker，避免在结束打印后又冒出 keepalive。
	if p.tickerStarted && p.done >= p.total {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) OnProgress(done, total, ok, fail, skip, active int, activeTitles []string, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.printProgressLocked(done, total, ok, fail, skip, active, activeTitles, elapsed)
}

func (p *progressUI) printProgressLocked(done, total, ok, fail, skip, active int, activeTitles []string, elapsed time.Duration) {
	line := fmt.Sprintf("进度: done=%d/%d ok=%d fail=%d skip=%d active=%d elapsed=%s",
		done, total, ok, fail, skip, active, formatElapsed(elapsed),
	)
	if len(activeTitles) > 0 {
		titles := append([]string(nil), activeTitles...)
		sort.Strings(titles)
		line += " titles=" + truncate(strings.Join(titles, ", "), 120)
	}
	fmt.Fprintln(p.w, line)
	p.lastPrinted = time.Now()
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true
	stop := p.stopCh

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && p.done >= p.total {
					p.mu.Unlock()
					return
				}
				if p.total > 0 && time.Since(p.lastPrinted) > threshold {
					active := min(p.workers, p.total-p.done)
					p.printProgressLocked(p.done, p.total, p.ok, p.fail, p.skip, active, nil, time.Since(p.startedAt))
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func statusTag(status string) string {
	switch status {
	case domain.StatusProcessed:
		return "OK"
	case domain.StatusSkipped:
		return "SKIP"
	case domain.StatusNotFound:
		return "MISS"
	case domain.StatusFailed:
		return "FAIL"
	default:
		return strings.ToUpper(status)
	}
}

func formatMissing(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	return " missing=" + truncate(strings.Join(fields, ","), 80)
}

func formatRate(perSec float64) string {
	if perSec <= 0 {
		return "off"
	}
	return fmt.Sprintf("%.2f/s", perSec)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

// truncate 按 rune 截断（标题可能含多字节字符）。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return int(x)
	default:
		return 0
	}
}
