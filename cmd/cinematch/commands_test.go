package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/CineMatch/internal/domain"
	"github.com/John-Robertt/CineMatch/internal/extract"
)

func TestReviewCount(t *testing.T) {
	assert.Equal(t, -1, reviewCount(0), "配置中的 0 表示不抓取")
	assert.Equal(t, 3, reviewCount(3))
}

func TestTraceOf(t *testing.T) {
	got := traceOf([]extract.Outcome{
		{Extractor: "title", Keys: []string{"title"}},
		{Extractor: "cast", Err: errors.New("boom")},
	})
	require.Len(t, got, 2)
	assert.Equal(t, []string{"title"}, got[0].Keys)
	assert.Empty(t, got[0].Error)
	assert.Equal(t, []string{}, got[1].Keys, "无输出的 extractor 也要有非 nil 的 keys")
	assert.Equal(t, "boom", got[1].Error)
}

func TestToRecommendations(t *testing.T) {
	hits := []domain.DocumentHit{{
		Document: domain.Document{
			Content: strings.Repeat("梦", 250),
			Metadata: domain.DocumentMeta{
				MovieID: "tt1375666", MovieTitle: "Inception", Year: "2010",
				ReviewTitle: "Great", ReviewType: "user",
			},
		},
		Distance: 0.2,
		Score:    4,
	}}
	got := toRecommendations(hits)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, "tt1375666", got[0].MovieID)
	assert.Equal(t, 201, len([]rune(got[0].Excerpt)), "200 个字符加省略号")

	var buf bytes.Buffer
	printRecommendations(&buf, recommendOutput{Query: "dreams", Results: got})
	assert.True(t, strings.HasPrefix(buf.String(), "1. Inception (2010) [tt1375666] distance=0.200\n   Great\n"))

	buf.Reset()
	printRecommendations(&buf, recommendOutput{Query: "dreams"})
	assert.Contains(t, buf.String(), "没有与 \"dreams\" 相关的结果")
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt(" short ", 10))
	assert.Equal(t, "abc…", excerpt("abc def", 4))
}

func TestLoadQueries_FromFileWithLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles.txt")
	require.NoError(t, os.WriteFile(path, []byte("Alien (1979)\n# skip\nHeat\nZodiac\n"), 0o644))

	bulkOpts.titles, bulkOpts.limit = path, 2
	t.Cleanup(func() { bulkOpts.titles, bulkOpts.limit = "", DefaultBulkLimit })

	qs, err := loadQueries(&cobra.Command{}, nil)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "Alien", qs[0].Title)
	assert.Equal(t, 1979, qs[0].Year)
	assert.Equal(t, "Heat", qs[1].Title)
}

func TestLoadQueries_Stdin(t *testing.T) {
	bulkOpts.titles, bulkOpts.limit = "-", 0
	t.Cleanup(func() { bulkOpts.titles, bulkOpts.limit = "", DefaultBulkLimit })

	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("Heat\t1995\nHeat (1995)\n"))
	qs, err := loadQueries(cmd, nil)
	require.NoError(t, err)
	require.Len(t, qs, 1, "重复的 (title, year) 只保留一次")
	assert.Equal(t, 1995, qs[0].Year)
}

func TestLoadQueries_MissingFile(t *testing.T) {
	bulkOpts.titles = filepath.Join(t.TempDir(), "nope.txt")
	t.Cleanup(func() { bulkOpts.titles = "" })

	_, err := loadQueries(&cobra.Command{}, nil)
	assert.Error(t, err)
}

func TestWriteReportFile(t *testing.T) {
	dir := t.TempDir()
	rr := domain.RunReport{DataDir: dir, StartedAt: time.Now(), FinishedAt: time.Now()}
	rr.Finalize()
	require.NoError(t, writeReportFile(dir, rr))

	b, err := os.ReadFile(reportPath(dir))
	require.NoError(t, err)
	var got domain.RunReport
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, dir, got.DataDir)
	assert.NotNil(t, got.Items)
}

func TestEmitJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, emitJSON(&buf, map[string]string{"a": "<b>"}, false))
	assert.Equal(t, "{\"a\":\"<b>\"}\n", buf.String(), "单行且不转义 HTML")

	buf.Reset()
	require.NoError(t, emitJSON(&buf, map[string]int{"a": 1}, true))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}
