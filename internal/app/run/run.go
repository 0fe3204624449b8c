// Package run 是批量运行器：对一组标题并发执行“解析 + 抽取 + 落盘”，
// 并把每个标题的结果汇总为稳定的 RunReport。
package run

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/John-Robertt/CineMatch/internal/assemble"
	"github.com/John-Robertt/CineMatch/internal/domain"
)

// Query 是一个待处理的标题（Year 为 0 表示未提供）。
type Query struct {
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
}

// Assembler 是单个标题的组装能力（*assemble.Assembler 实现它）。
type Assembler interface {
	Assemble(ctx context.Context, title string, year int) (domain.MovieRecord, error)
}

// Sink 决定记录如何落盘。Exists 用于跳过已导出的标题；Save 返回主输出文件路径。
type Sink interface {
	Exists(title string) bool
	Save(ctx context.Context, rec domain.MovieRecord) (string, error)
}

// Options 控制一次批量运行。
type Options struct {
	DataDir string

	// Concurrency 是 worker 数；< 1 按 1 处理。
	Concurrency int
	// RatePerSec 限制标题的启动速率（所有 worker 共享）；<= 0 不限速。
	RatePerSec float64
	// SkipExisting 为 true 时，Sink 中已存在的标题直接标记为 skipped。
	SkipExisting bool
	// DryRun 为 true 时只组装不落盘。
	DryRun bool

	Logger *zap.Logger
}

// Execute 执行一次批量运行，并返回对外稳定的 RunReport。
// 单个标题的失败只影响该条目。
func Execute(ctx context.Context, opts Options, queries []Query, asm Assembler, sink Sink) domain.RunReport {
	return ExecuteWithObserver(ctx, opts, queries, asm, sink, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, opts Options, queries []Query, asm Assembler, sink Sink, obs Observer) domain.RunReport {
	started := time.Now().UTC()
	log := opts.Logger
	if log == nil {
		log = zap.L()
	}

	if obs != nil {
		obs.OnStart(opts, len(queries))
	}

	rr := domain.RunReport{
		DataDir:   opts.DataDir,
		DryRun:    opts.DryRun,
		StartedAt: started,
		Items:     make([]domain.ItemResult, 0, len(queries)),
	}

	// 规划阶段：去掉空标题，跳过已存在的标题。
	planStarted := time.Now()
	pending := make([]Query, 0, len(queries))
	skipped := 0
	for _, q := range queries {
		q.Title = strings.TrimSpace(q.Title)
		if q.Title == "" {
			continue
		}
		if opts.SkipExisting && sink != nil && sink.Exists(q.Title) {
			rr.Items = append(rr.Items, domain.ItemResult{
				Title:         q.Title,
				Year:          q.Year,
				Status:        domain.StatusSkipped,
				MissingFields: []string{},
			})
			skipped++
			log.Debug("已导出，跳过", zap.String("title", q.Title))
			continue
		}
		pending = append(pending, q)
	}
	if obs != nil {
		obs.OnPhaseDone("plan", map[string]any{
			"titles":  len(queries),
			"skipped": skipped,
			"pending": len(pending),
		}, time.Since(planStarted))
	}

	// 执行阶段：按标题并发（worker pool），共享限速器。
	workers := max(opts.Concurrency, 1)
	var limiter *rate.Limiter
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
	}

	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"workers":      workers,
			"total_items":  len(pending),
			"rate_per_sec": opts.RatePerSec,
		}, 0)
	}

	type execResult struct {
		q   Query
		res domain.ItemResult
		dur time.Duration
	}

	jobs := make(chan Query)
	results := make(chan execResult, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for q := range jobs {
				oneStarted := time.Now()
				r := execOne(ctx, opts, q, asm, sink, limiter, log)
				results <- execResult{q: q, res: r, dur: time.Since(oneStarted)}
			}
		}()
	}

	go func() {
		for _, q := range pending {
			jobs <- q
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	done := 0
	for it := range results {
		done++
		rr.Items = append(rr.Items, it.res)
		if obs != nil {
			obs.OnItemDone(done, len(pending), it.q, it.res, it.dur)
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

func execOne(ctx context.Context, opts Options, q Query, asm Assembler, sink Sink, limiter *rate.Limiter, log *zap.Logger) domain.ItemResult {
	item := domain.ItemResult{
		Title:         q.Title,
		Year:          q.Year,
		Status:        domain.StatusProcessed, // 失败时覆盖
		MissingFields: []string{},
	}
	log = log.With(zap.String("title", q.Title))

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			fail(&item, domain.ErrCodeCanceled, fmt.Sprintf("等待限速被中断：%v", err))
			return item
		}
	}
	if err := ctx.Err(); err != nil {
		fail(&item, domain.ErrCodeCanceled, err.Error())
		return item
	}

	rec, err := asm.Assemble(ctx, q.Title, q.Year)
	if err != nil {
		status, code := Classify(ctx, err)
		item.Status = status
		item.ErrorCode = code
		item.ErrorMsg = err.Error()
		log.Warn("组装失败", zap.String("error_code", code), zap.Error(err))
		return item
	}

	item.CanonicalID = rec.CanonicalID
	item.MatchScore = rec.Resolution.MatchScore
	item.MissingFields = rec.MissingFields()

	if opts.DryRun || sink == nil {
		return item
	}
	out, err := sink.Save(ctx, rec)
	if err != nil {
		fail(&item, domain.ErrCodeIOFailed, fmt.Sprintf("落盘失败：%v", err))
		log.Warn("落盘失败", zap.Error(err))
		return item
	}
	item.Output = out
	return item
}

func fail(item *domain.ItemResult, code, msg string) {
	item.Status = domain.StatusFailed
	item.ErrorCode = code
	item.ErrorMsg = msg
}

// Classify 把组装错误映射为 (status, error_code)。
func Classify(ctx context.Context, err error) (string, string) {
	if assemble.IsNotFound(err) {
		return domain.StatusNotFound, domain.ErrCodeNotFound
	}
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return domain.StatusFailed, domain.ErrCodeCanceled
	}
	switch assemble.StageOf(err) {
	case assemble.StageSearch, assemble.StageResolve:
		return domain.StatusFailed, domain.ErrCodeSearchFailed
	case assemble.StageParse:
		return domain.StatusFailed, domain.ErrCodeParseFailed
	default:
		return domain.StatusFailed, domain.ErrCodeFetchFailed
	}
}
