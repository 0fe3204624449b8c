package assemble

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/John-Robertt/CineMatch/internal/domain"
	"github.com/John-Robertt/CineMatch/internal/fetch"
	"github.com/John-Robertt/CineMatch/internal/search"
)

const detailPage = `<html><head><title>Inception (2010) - IMDb</title></head><body>
<h1 data-testid="hero__pageTitle">Inception</h1>
<a href="/title/tt1375666/releaseinfo">2010</a>
<div data-testid="hero-rating-bar__aggregate-rating__score"><span>8.8</span>/10</div><div>2.6M</div>
<span data-testid="plot-xl">A thief who steals corporate secrets through the use of dream-sharing technology.</span>
<section data-testid="title-cast">
  <div data-testid="title-cast-item">
    <a href="/name/nm0000138/">Leonardo DiCaprio</a>
    <div data-testid="cast-item-characters-link">Cobb</div>
  </div>
</section>
</body></html>`

var inceptionHit = domain.SearchHit{
	Title:   "Inception (2010) - IMDb",
	URL:     "https://www.imdb.com/title/tt1375666/",
	Snippet: "Directed by Christopher Nolan. 2010.",
}

type stubSearcher struct {
	mu      sync.Mutex
	queries []string
	byQuery map[string][]domain.SearchHit
	errs    map[string]error
}

func (s *stubSearcher) TextSearch(ctx context.Context, query string, max int) ([]domain.SearchHit, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if err := s.errs[query]; err != nil {
		return nil, err
	}
	return s.byQuery[query], nil
}

type stubFetcher struct {
	calls int32
	pages map[string]string
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	if p, ok := f.pages[url]; ok {
		return []byte(p), nil
	}
	return nil, &fetch.HTTPStatusError{URL: url, StatusCode: http.StatusNotFound}
}

func newTestAssembler(s search.Searcher, f fetch.Fetcher) *Assembler {
	a := New(s, f, zap.NewNop())
	a.Now = func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.FixedZone("X", 3600)) }
	return a
}

func TestAssemble_EndToEndWithStubs(t *testing.T) {
	s := &stubSearcher{
		byQuery: map[string][]domain.SearchHit{
			search.ResolveQuery("Inception", 2010): {inceptionHit},
			search.ReviewQuery("Inception"): {
				{Title: "A mind-bending ride 9/10 - IMDb", URL: "https://www.imdb.com/review/rw1/", Snippet: "Loved it."},
				{Title: "Inception review", URL: "https://blog.example/inception", Snippet: "not imdb"},
			},
		},
		errs: map[string]error{
			search.CriticReviewQuery("Inception"): errors.New("rate limited"),
		},
	}
	f := &stubFetcher{pages: map[string]string{
		"https://www.imdb.com/title/tt1375666/": detailPage,
	}}

	rec, err := newTestAssembler(s, f).Assemble(context.Background(), "Inception", 2010)
	require.NoError(t, err)

	assert.Equal(t, "tt1375666", rec.CanonicalID)
	assert.Equal(t, rec.CanonicalID, rec.Resolution.CanonicalID)
	assert.Equal(t, 1.0, rec.Resolution.MatchScore)
	assert.Equal(t, "https://www.imdb.com/title/tt1375666/", rec.URL)
	assert.Equal(t, "Inception", rec.Title)
	assert.Equal(t, "2010", rec.Year)
	assert.Equal(t, "8.8", rec.Rating)
	assert.Equal(t, []domain.CastMember{{Actor: "Leonardo DiCaprio", Character: "Cobb"}}, rec.Cast)
	// /plotsummary/ 返回 404：回退到详情页短简介
	assert.Contains(t, rec.Summary, "dream-sharing technology")

	require.Len(t, rec.UserReviews, 1)
	assert.Equal(t, domain.Review{
		Title:   "A mind-bending ride 9/10",
		Content: "Loved it.",
		URL:     "https://www.imdb.com/review/rw1/",
		Kind:    domain.ReviewUser,
		Rating:  "9",
		Source:  ReviewSource,
	}, rec.UserReviews[0])
	assert.Empty(t, rec.FeaturedReviews, "影评搜索失败应降级为空列表")
	assert.NotNil(t, rec.FeaturedReviews)

	assert.Equal(t, time.UTC, rec.ScrapedAt.Location())
}

func TestAssemble_NotFoundNeverFetches(t *testing.T) {
	s := &stubSearcher{}
	f := &stubFetcher{}

	_, err := newTestAssembler(s, f).Assemble(context.Background(), "Qwzx Nonexistent", 0)
	require.Error(t, err)

	assert.True(t, IsNotFound(err))
	assert.Equal(t, StageResolve, StageOf(err))
	assert.EqualValues(t, 0, atomic.LoadInt32(&f.calls), "NotFound 时不应抓取任何页面")
	assert.Len(t, s.queries, 1, "NotFound 时不应搜索影评")
}

func TestAssemble_SearchFailure(t *testing.T) {
	boom := errors.New("search down")
	s := &stubSearcher{errs: map[string]error{search.ResolveQuery("Heat", 0): boom}}

	_, err := newTestAssembler(s, &stubFetcher{}).Assemble(context.Background(), "Heat", 0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StageSearch, StageOf(err))
	assert.False(t, IsNotFound(err))
}

func TestAssemble_FetchFailureIsTyped(t *testing.T) {
	s := &stubSearcher{byQuery: map[string][]domain.SearchHit{
		search.ResolveQuery("Inception", 2010): {inceptionHit},
	}}

	_, err := newTestAssembler(s, &stubFetcher{}).Assemble(context.Background(), "Inception", 2010)
	require.Error(t, err)

	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, StageFetch, ae.Stage)
	assert.Equal(t, "Inception", ae.Title)

	var he *fetch.HTTPStatusError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusNotFound, he.StatusCode)
}

func TestAssemble_EmptyTitle(t *testing.T) {
	_, err := newTestAssembler(&stubSearcher{}, &stubFetcher{}).Assemble(context.Background(), "  ", 0)
	assert.Equal(t, StageSearch, StageOf(err))
}

func TestAssemble_ConcurrentCallsAreIndependent(t *testing.T) {
	s := &stubSearcher{byQuery: map[string][]domain.SearchHit{
		search.ResolveQuery("Inception", 2010): {inceptionHit},
	}}
	f := &stubFetcher{pages: map[string]string{"https://www.imdb.com/title/tt1375666/": detailPage}}
	a := newTestAssembler(s, f)

	var wg sync.WaitGroup
	recs := make([]domain.MovieRecord, 8)
	for i := range recs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := a.Assemble(context.Background(), "Inception", 2010)
			assert.NoError(t, err)
			recs[i] = rec
		}(i)
	}
	wg.Wait()
	for _, r := range recs[1:] {
		assert.Equal(t, recs[0], r)
	}
}

// 通过真实的 DDG 解析与 HTTP 抓取跑通整条流水线。
func TestAssemble_OverHTTP(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/html/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if !strings.Contains(q, "site:imdb.com/title/") {
			_, _ = w.Write([]byte(`<html><body><div class="no-results">No results.</div></body></html>`))
			return
		}
		_, _ = w.Write([]byte(`<div class="result"><a class="result__a" href="` + srvURL +
			`/l/?uddg=https%3A%2F%2Fwww.imdb.com%2Ftitle%2Ftt1375666%2F">Inception (2010) - IMDb</a>` +
			`<a class="result__snippet">2010 film</a></div>`))
	})
	mux.HandleFunc("/title/tt1375666/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(detailPage))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	a := newTestAssembler(
		search.DDG{BaseURL: srv.URL, Client: srv.Client()},
		fetch.HTTP{Client: srv.Client()},
	)
	a.BaseURL = srv.URL

	rec, err := a.Assemble(context.Background(), "Inception", 2010)
	require.NoError(t, err)
	assert.Equal(t, "tt1375666", rec.CanonicalID)
	assert.Equal(t, srv.URL+"/title/tt1375666/", rec.URL)
	assert.Equal(t, "Inception", rec.Title)
	assert.Empty(t, rec.UserReviews)
}

// 搜索被拦截时必须报告为搜索失败，而不是“没找到”。
func TestAssemble_BlockedSearchIsNotNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`<html><body><div class="anomaly-modal__title">Unfortunately, bots use DuckDuckGo too.</div></body></html>`))
	}))
	defer srv.Close()

	f := &stubFetcher{}
	a := newTestAssembler(search.DDG{BaseURL: srv.URL, Client: srv.Client()}, f)

	_, err := a.Assemble(context.Background(), "Inception", 2010)
	require.Error(t, err)
	assert.Equal(t, StageSearch, StageOf(err))
	assert.False(t, IsNotFound(err))
	var be *fetch.BlockedError
	assert.True(t, errors.As(err, &be), "期望 *fetch.BlockedError，实际 %T", err)
	assert.EqualValues(t, 0, atomic.LoadInt32(&f.calls))
}

type cancelingSearcher struct {
	stubSearcher
	cancel context.CancelFunc
}

func (s *cancelingSearcher) TextSearch(ctx context.Context, query string, max int) ([]domain.SearchHit, error) {
	if query == search.ReviewQuery("Inception") {
		s.cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.stubSearcher.TextSearch(ctx, query, max)
}

func TestAssemble_CanceledDuringReviewSearch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &cancelingSearcher{
		stubSearcher: stubSearcher{byQuery: map[string][]domain.SearchHit{
			search.ResolveQuery("Inception", 2010): {inceptionHit},
		}},
		cancel: cancel,
	}
	f := &stubFetcher{pages: map[string]string{
		"https://www.imdb.com/title/tt1375666/": detailPage,
	}}

	_, err := newTestAssembler(s, f).Assemble(ctx, "Inception", 2010)
	require.Error(t, err, "影评搜索期间取消应中止整条记录")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StageSearch, StageOf(err))
	assert.False(t, IsNotFound(err))
}

func TestBuildReviews(t *testing.T) {
	hits := []domain.SearchHit{
		{Title: "Brilliant - IMDb", URL: "https://www.imdb.com/review/rw2/", Snippet: "Rated 10/10 by me"},
		{Title: "Elsewhere", URL: "https://example.com/r"},
	}
	critic := BuildReviews(hits, domain.ReviewCritic)
	require.Len(t, critic, 1)
	assert.Equal(t, "Brilliant", critic[0].Title)
	assert.Empty(t, critic[0].Rating, "专业影评不提取评分")

	user := BuildReviews(hits, domain.ReviewUser)
	assert.Equal(t, "10", user[0].Rating)
}
