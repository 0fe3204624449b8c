package cache

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/CineMatch/internal/fetch"
)

const detailURL = "https://www.imdb.com/title/tt1375666/"

func TestKey(t *testing.T) {
	k, err := Key("https://www.imdb.com/title/tt1375666/plotsummary/")
	require.NoError(t, err)
	assert.Equal(t, "www.imdb.com_title_tt1375666_plotsummary", k)

	k1, _ := Key("https://html.duckduckgo.com/html/?q=a")
	k2, _ := Key("https://html.duckduckgo.com/html/?q=b")
	assert.NotEqual(t, k1, k2, "不同查询串必须映射到不同 key")
	assert.NotContains(t, k1, "/")

	_, err = Key("/relative/only")
	assert.Error(t, err)
}

func TestStore_ReadWritePage(t *testing.T) {
	s := New(t.TempDir(), false)
	require.NoError(t, s.WritePage(detailURL, []byte("<html/>")))

	b, ok, err := s.ReadPage(detailURL)
	require.NoError(t, err)
	require.True(t, ok, "期望命中缓存")
	assert.Equal(t, "<html/>", string(b))

	path, err := s.PagePath(detailURL)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestStore_ReadOnlyRejectWrite(t *testing.T) {
	s := New(t.TempDir(), true)
	err := s.WritePage(detailURL, []byte("<html/>"))
	assert.ErrorIs(t, err, ErrReadOnly)

	_, ok, err := s.ReadPage(detailURL)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetcher_ReadThrough(t *testing.T) {
	calls := 0
	next := fetch.FetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		calls++
		return []byte("<html>page</html>"), nil
	})
	f := Fetcher{Next: next, Store: New(t.TempDir(), false)}

	for i := 0; i < 3; i++ {
		b, err := f.Fetch(context.Background(), detailURL)
		require.NoError(t, err)
		assert.Equal(t, "<html>page</html>", string(b))
	}
	assert.Equal(t, 1, calls, "命中缓存后不应再次抓取")
}

func TestFetcher_ReadOnlyStillFetches(t *testing.T) {
	calls := 0
	next := fetch.FetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		calls++
		return []byte("x"), nil
	})
	f := Fetcher{Next: next, Store: New(t.TempDir(), true)}

	_, err := f.Fetch(context.Background(), detailURL)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), detailURL)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFetcher_ErrorIsNotCached(t *testing.T) {
	f := Fetcher{
		Next: fetch.FetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
			return nil, &fetch.HTTPStatusError{URL: url, StatusCode: 503}
		}),
		Store: New(t.TempDir(), false),
	}
	_, err := f.Fetch(context.Background(), detailURL)
	var he *fetch.HTTPStatusError
	assert.True(t, errors.As(err, &he))

	_, ok, _ := f.Store.ReadPage(detailURL)
	assert.False(t, ok)
}
