// Package assemble 把“搜索 → 解析候选 → 抓取详情页 → 抽取字段 → 附加影评”串成一条线性流水线。
package assemble

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/CineMatch/internal/domain"
	"github.com/John-Robertt/CineMatch/internal/extract"
	"github.com/John-Robertt/CineMatch/internal/fetch"
	"github.com/John-Robertt/CineMatch/internal/resolve"
	"github.com/John-Robertt/CineMatch/internal/search"
)

const (
	DefaultBaseURL       = "https://www.imdb.com"
	DefaultMaxResults    = 10
	DefaultUserReviews   = 15
	DefaultCriticReviews = 10
)

// Assembler 为单个标题产出一条 MovieRecord。
//
// 约束：
// - 本层不重试、不 sleep（重试属于 HTTP client，限速属于批量运行器）
// - NotFound 时不抓取任何页面
// - 并发安全：所有协作者只读，FieldMap/DOM 每次调用独立
type Assembler struct {
	Searcher search.Searcher
	Fetcher  fetch.Fetcher
	Registry extract.Registry
	Resolve  resolve.Options

	// BaseURL 为空时使用 https://www.imdb.com。
	BaseURL string
	// MaxResults 是解析阶段搜索的条数上限。
	MaxResults int
	// UserReviews / CriticReviews 为 0 时使用默认值，<0 表示不抓取。
	UserReviews   int
	CriticReviews int

	Logger *zap.Logger
	Now    func() time.Time
}

// New 用默认参数构造 Assembler。
func New(s search.Searcher, f fetch.Fetcher, logger *zap.Logger) *Assembler {
	return &Assembler{
		Searcher: s,
		Fetcher:  f,
		Registry: extract.DefaultRegistry(extract.Options{}),
		Resolve:  resolve.DefaultOptions(),
		Logger:   logger,
	}
}

// Result 是 Assemble 的完整产出：记录本身加上每个 extractor 的执行轨迹。
type Result struct {
	Record   domain.MovieRecord
	Outcomes []extract.Outcome
}

// Assemble 为 title（year==0 表示未知）组装一条记录。
func (a *Assembler) Assemble(ctx context.Context, title string, year int) (domain.MovieRecord, error) {
	res, err := a.AssembleTrace(ctx, title, year)
	return res.Record, err
}

// AssembleTrace 与 Assemble 相同，但额外返回 extractor 轨迹（用于解释缺字段）。
func (a *Assembler) AssembleTrace(ctx context.Context, title string, year int) (Result, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Result{}, &Error{Stage: StageSearch, Err: errors.New("title 不能为空")}
	}
	if a.Searcher == nil || a.Fetcher == nil {
		return Result{}, &Error{Title: title, Stage: StageSearch, Err: errors.New("searcher/fetcher 未配置")}
	}
	log := a.logger().With(zap.String("title", title))

	hits, err := a.Searcher.TextSearch(ctx, search.ResolveQuery(title, year), a.maxResults())
	if err != nil {
		return Result{}, &Error{Title: title, Stage: StageSearch, Err: err}
	}

	cand, err := resolve.Resolve(title, year, hits, a.Resolve)
	if err != nil {
		return Result{}, &Error{Title: title, Stage: StageResolve, Err: err}
	}
	log = log.With(zap.String("canonical_id", cand.CanonicalID))
	log.Debug("title resolved",
		zap.Float64("match_score", cand.MatchScore),
		zap.String("search_title", cand.SearchTitle),
	)

	pageURL := a.baseURL() + "/title/" + cand.CanonicalID + "/"
	html, err := a.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return Result{}, &Error{Title: title, Stage: StageFetch, Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Result{}, &Error{Title: title, Stage: StageParse, Err: err}
	}

	fm, outcomes := extract.Run(ctx, a.registry(), &extract.Env{
		Doc:         doc,
		CanonicalID: cand.CanonicalID,
		BaseURL:     a.baseURL(),
		Fetcher:     a.Fetcher,
		Logger:      log,
	})
	rec := domain.RecordFromFields(cand.CanonicalID, pageURL, fm)

	// 两类影评互不依赖；搜索失败只降级为空列表，只有取消会让整组一起退出。
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rec.UserReviews, err = a.reviews(gctx, search.ReviewQuery(title), a.userReviews(), domain.ReviewUser)
		return err
	})
	g.Go(func() error {
		var err error
		rec.FeaturedReviews, err = a.reviews(gctx, search.CriticReviewQuery(title), a.criticReviews(), domain.ReviewCritic)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, &Error{Title: title, Stage: StageSearch, Err: err}
	}

	rec.Resolution = cand
	rec.ScrapedAt = a.now().UTC()

	log.Info("record assembled",
		zap.Int("cast", len(rec.Cast)),
		zap.Int("user_reviews", len(rec.UserReviews)),
		zap.Int("featured_reviews", len(rec.FeaturedReviews)),
		zap.Strings("missing", rec.MissingFields()),
	)
	return Result{Record: rec, Outcomes: outcomes}, nil
}

func (a *Assembler) baseURL() string {
	u := strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	if u == "" {
		return DefaultBaseURL
	}
	return u
}

func (a *Assembler) registry() extract.Registry {
	if a.Registry.Len() == 0 {
		return extract.DefaultRegistry(extract.Options{})
	}
	return a.Registry
}

func (a *Assembler) maxResults() int {
	if a.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return a.MaxResults
}

func (a *Assembler) userReviews() int {
	if a.UserReviews == 0 {
		return DefaultUserReviews
	}
	return a.UserReviews
}

func (a *Assembler) criticReviews() int {
	if a.CriticReviews == 0 {
		return DefaultCriticReviews
	}
	return a.CriticReviews
}

func (a *Assembler) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.L()
	}
	return a.Logger
}

func (a *Assembler) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}
