package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
	StatusNotFound  = "not_found"
)

const (
	ErrCodeNotFound      = "not_found"
	ErrCodeSearchFailed  = "search_failed"
	ErrCodeFetchFailed   = "fetch_failed"
	ErrCodeParseFailed   = "parse_failed"
	ErrCodeIOFailed      = "io_failed"
	ErrCodeConfigInvalid = "config_invalid"
	ErrCodeCanceled      = "canceled"
)

// RunReport 是一次批量运行对外稳定输出（report.json / stdout JSON）的结构。
type RunReport struct {
	DataDir string `json:"data_dir"`
	DryRun  bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	NotFound  int `json:"not_found"`
}

// ItemResult 描述单个标题的处理结果。
// 调用方据此区分“没找到” / “找到但缺字段” / “网络或解析失败”。
type ItemResult struct {
	Title       string  `json:"title"`
	Year        int     `json:"year,omitempty"`
	CanonicalID string  `json:"canonical_id"`
	MatchScore  float64 `json:"match_score"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	// MissingFields 列出未能抽取到的顶层字段（found but some fields missing）。
	MissingFields []string `json:"missing_fields"`
	Output        string   `json:"output"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) items 稳定排序：按 title 字典序；title=="" 的条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Title
		b := r.Items[j].Title
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		case StatusNotFound:
			s.NotFound++
		}
	}
	r.Summary = s
}

func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	if r.Items == nil {
		r.Items = []ItemResult{}
	}
	return json.Marshal(Alias(r))
}
