package resolve

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

func TestResolve_Inception(t *testing.T) {
	hits := []domain.SearchHit{
		{
			Title:   "Inception (2010) - IMDb",
			URL:     "https://www.imdb.com/title/tt1375666/",
			Snippet: "Inception: Directed by Christopher Nolan. 2010. A thief who steals corporate secrets...",
		},
	}

	got, err := Resolve("Inception", 2010, hits, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "tt1375666", got.CanonicalID)
	assert.Equal(t, 1.0, got.Similarity)
	assert.True(t, got.YearMatched)
	// 原始得分 1.3，对外截断为 1.0
	assert.Equal(t, 1.0, got.MatchScore)
	assert.Equal(t, "Inception", got.QueryTitle)
	assert.Equal(t, "https://www.imdb.com/title/tt1375666/", got.SourceURL)
}

func TestResolve_EmptyHitsIsNotFound(t *testing.T) {
	_, err := Resolve("Inception", 2010, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_ThresholdIsStrict(t *testing.T) {
	// Score("ab","ac") = 2*1/4 = 0.5，恰好等于阈值 → 不命中
	hits := []domain.SearchHit{{Title: "ac", URL: "https://www.imdb.com/title/tt0000001/"}}
	_, err := Resolve("ab", 0, hits, DefaultOptions())
	assert.ErrorIs(t, err, ErrNotFound)

	opts := DefaultOptions()
	opts.MinConfidence = 0.49
	got, err := Resolve("ab", 0, hits, opts)
	require.NoError(t, err)
	assert.Equal(t, "tt0000001", got.CanonicalID)
}

func TestResolve_YearBonusBreaksTie(t *testing.T) {
	hits := []domain.SearchHit{
		{Title: "Dune (1984) - IMDb", URL: "https://www.imdb.com/title/tt0087182/", Snippet: "David Lynch"},
		{Title: "Dune (2021) - IMDb", URL: "https://www.imdb.com/title/tt1160419/", Snippet: "Denis Villeneuve"},
	}

	got, err := Resolve("Dune", 2021, hits, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "tt1160419", got.CanonicalID)
	assert.True(t, got.YearMatched)

	got, err = Resolve("Dune", 1984, hits, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "tt0087182", got.CanonicalID)
}

func TestResolve_TieKeepsFirst(t *testing.T) {
	hits := []domain.SearchHit{
		{Title: "Heat - IMDb", URL: "https://www.imdb.com/title/tt0113277/"},
		{Title: "Heat - IMDb", URL: "https://www.imdb.com/title/tt0091209/"},
	}
	got, err := Resolve("Heat", 0, hits, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "tt0113277", got.CanonicalID)
	assert.False(t, got.YearMatched)
}

func TestResolve_HitsWithoutIDAreIgnored(t *testing.T) {
	hits := []domain.SearchHit{
		{Title: "The Matrix", URL: "https://www.imdb.com/name/nm0000206/"},
		{Title: "The Matrix", URL: "https://en.wikipedia.org/wiki/The_Matrix"},
	}
	_, err := Resolve("The Matrix", 1999, hits, DefaultOptions())
	assert.ErrorIs(t, err, ErrNotFound)

	hits = append(hits, domain.SearchHit{Title: "The Matrix Reloaded (2003) - IMDb", URL: "https://m.imdb.com/title/tt0234215/"})
	got, err := Resolve("The Matrix", 0, hits, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "tt0234215", got.CanonicalID)
}

func TestResolve_Deterministic(t *testing.T) {
	hits := []domain.SearchHit{
		{Title: "Seven (1995) - IMDb", URL: "https://www.imdb.com/title/tt0114369/", Snippet: "Se7en"},
		{Title: "The Seventh Seal (1957) - IMDb", URL: "https://www.imdb.com/title/tt0050976/"},
		{Title: "Seven Samurai (1954) - IMDb", URL: "https://www.imdb.com/title/tt0047478/"},
	}
	first, err := Resolve("Seven", 1995, hits, DefaultOptions())
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		got, err := Resolve("Seven", 1995, hits, DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}

func TestResolve_CustomIDPattern(t *testing.T) {
	opts := DefaultOptions()
	opts.IDPattern = regexp.MustCompile(`themoviedb\.org/movie/(\d+)`)
	hits := []domain.SearchHit{{Title: "Parasite", URL: "https://www.themoviedb.org/movie/496243-parasite"}}

	got, err := Resolve("Parasite", 0, hits, opts)
	require.NoError(t, err)
	assert.Equal(t, "496243", got.CanonicalID)
}

func TestHitYear(t *testing.T) {
	assert.Equal(t, 2010, HitYear("Inception (2010) - IMDb", "released 2011"))
	assert.Equal(t, 1999, HitYear("The Matrix - IMDb", "Released in 1999, the film..."))
	assert.Equal(t, 0, HitYear("Heat - IMDb", "no year here"))
}

func TestExtractID(t *testing.T) {
	id, ok := ExtractID("https://www.imdb.com/title/tt0111161/?ref_=chttp")
	assert.True(t, ok)
	assert.Equal(t, "tt0111161", id)

	_, ok = ExtractID("https://www.imdb.com/chart/top/")
	assert.False(t, ok)
}
