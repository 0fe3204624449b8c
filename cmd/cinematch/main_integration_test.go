package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/John-Robertt/CineMatch/internal/domain"
	"github.com/John-Robertt/CineMatch/internal/export"
)

// runCLI 以子进程方式执行 cinematch（stdout/stderr 都不是 TTY）。
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	repoRoot := filepath.Clean(filepath.Join(wd, "..", ".."))

	cmd := exec.Command("go", append([]string{"run", "./cmd/cinematch"}, args...)...)
	cmd.Dir = repoRoot
	cmd.Env = append(os.Environ(), "CINEMATCH_LOG_LEVEL=error")

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return out.String(), errBuf.String(), err
}

func exportRecord(t *testing.T, dataDir, query, id, title, review string) {
	t.Helper()
	rec := domain.RecordFromFields(id, "https://www.imdb.com/title/"+id+"/", domain.FieldMap{
		domain.FieldTitle: domain.String(title),
		domain.FieldYear:  domain.String("2010"),
	})
	rec.UserReviews = []domain.Review{{Title: "Review", Content: review, Kind: domain.ReviewUser}}
	rec.Resolution = domain.ResolvedCandidate{CanonicalID: id, QueryTitle: query, MatchScore: 1}
	rec.ScrapedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := export.New(dataDir, zap.NewNop()).Save(rec)
	require.NoError(t, err)
}

func TestCLI_Bulk_NoTTY_StdoutOnlyRunReportJSON(t *testing.T) {
	// stdout 非 TTY 时只能输出一个 RunReport JSON；进度/配置走 stderr 或直接禁用。
	root := t.TempDir()
	dataDir := filepath.Join(root, "data")

	// 已导出的标题会被跳过，因此本测试不访问网络。
	exportRecord(t, dataDir, "Inception", "tt1375666", "Inception", "A dream within a dream heist.")
	titles := filepath.Join(root, "titles.txt")
	require.NoError(t, os.WriteFile(titles, []byte("# top\nInception\n"), 0o644))

	stdout, stderr, err := runCLI(t, "--data", dataDir, "bulk", "--titles", titles)
	require.NoError(t, err, "stderr=%s\nstdout=%s", stderr, stdout)

	var rr domain.RunReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &rr), "stdout 不是合法的 RunReport JSON：%q", stdout)
	assert.Equal(t, 1, rr.Summary.Skipped)
	assert.NotContains(t, stdout, "配置（生效）")
	assert.NotContains(t, stdout, "进度:")
	assert.Contains(t, stderr, "完成：processed=")

	_, err = os.Stat(filepath.Join(dataDir, "cache", "report.json"))
	assert.NoError(t, err, "非 dry-run 必须写入 report.json")
}

func TestCLI_IngestThenRecommend(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	exportRecord(t, dataDir, "Inception", "tt1375666", "Inception",
		"A mind-bending heist inside layered dreams, with a spinning top at the end.")
	exportRecord(t, dataDir, "The Notebook", "tt0332280", "The Notebook",
		"A sweeping romance about memory and lifelong devotion between two lovers.")

	stdout, stderr, err := runCLI(t, "--data", dataDir, "ingest", "--all")
	require.NoError(t, err, "stderr=%s", stderr)
	var ing ingestOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &ing))
	assert.Len(t, ing.Movies, 2)
	assert.Equal(t, 2, ing.TotalDocuments)

	// 重复 ingest 不会产生重复文档。
	stdout, stderr, err = runCLI(t, "--data", dataDir, "ingest", "--all")
	require.NoError(t, err, "stderr=%s", stderr)
	require.NoError(t, json.Unmarshal([]byte(stdout), &ing))
	assert.Equal(t, 2, ing.TotalDocuments)

	stdout, stderr, err = runCLI(t, "--data", dataDir, "recommend", "dream", "heist")
	require.NoError(t, err, "stderr=%s", stderr)
	var rec recommendOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &rec))
	require.NotEmpty(t, rec.Results)
	assert.Equal(t, "tt1375666", rec.Results[0].MovieID)
	assert.Equal(t, "dream heist", rec.Query)
}

func TestCLI_InvalidConfigExitCode(t *testing.T) {
	root := t.TempDir()
	cfg := filepath.Join(root, "cinematch.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{"rate_per_sec": -1}`), 0o644))

	stdout, _, err := runCLI(t, "--config", cfg, "recommend", "x")
	require.Error(t, err)
	var ee *exec.ExitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 2, ee.ExitCode())

	var doc errorDoc
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(stdout)), &doc))
	assert.Equal(t, "config_invalid", doc.ErrorCode)
}
