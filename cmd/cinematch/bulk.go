package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/John-Robertt/CineMatch/internal/app/run"
	"github.com/John-Robertt/CineMatch/internal/chart"
	"github.com/John-Robertt/CineMatch/internal/config"
	"github.com/John-Robertt/CineMatch/internal/domain"
	"github.com/John-Robertt/CineMatch/internal/infra/fsx"
)

// DefaultBulkLimit 是未指定 --limit 时从榜单取的标题数。
const DefaultBulkLimit = 25

var bulkOpts struct {
	limit  int
	titles string
	dryRun bool
	force  bool
	index  bool
}

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "批量抓取榜单（或标题文件）中的电影并导出",
	Long: `bulk 默认读取 IMDb Top 榜单的前 N 个标题（榜单不可用时使用内置列表），
也可以用 --titles 指定文件（每行一个标题，可写成 "Title (1999)"；"-" 表示 stdin）。
已导出的标题默认跳过；--force 重新抓取。非 dry-run 时报告写入 <data>/cache/report.json。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := zap.L()

		p, err := newPipeline(eff, bulkOpts.dryRun, log)
		if err != nil {
			return err
		}

		queries, err := loadQueries(cmd, p)
		if err != nil {
			return err
		}

		sink := run.ExportSink{Writer: p.writer, Index: bulkOpts.index}
		if !bulkOpts.dryRun {
			st, err := openStore(ctx, eff)
			if err != nil {
				emitError(domain.ErrCodeIOFailed, err)
				return &exitError{code: 1}
			}
			defer st.Close()
			sink.Store = st
		}

		progressW, interactive := pickProgressWriter()
		var obs run.Observer
		if interactive {
			obs = newProgressUI(progressW, eff)
		}

		rr := run.ExecuteWithObserver(ctx, run.Options{
			DataDir:      eff.DataDir,
			Concurrency:  eff.Concurrency,
			RatePerSec:   eff.RatePerSec,
			SkipExisting: !bulkOpts.force,
			DryRun:       bulkOpts.dryRun,
			Logger:       log,
		}, queries, p.assembler, sink, obs)

		if !bulkOpts.dryRun {
			if err := writeReportFile(eff.DataDir, rr); err != nil {
				fmt.Fprintf(os.Stderr, "写入 report.json 失败：%v\n", err)
				emitReport(rr)
				return &exitError{code: 1}
			}
		}

		emitReport(rr)
		if interactive {
			emitLocations(progressW, eff, bulkOpts.dryRun)
		}
		if rr.Summary.Failed > 0 || rr.Summary.NotFound > 0 {
			return &exitError{code: 1}
		}
		return nil
	},
}

func init() {
	f := bulkCmd.Flags()
	f.IntVar(&bulkOpts.limit, "limit", DefaultBulkLimit, "最多处理的标题数；<=0 表示不限（仅对 --titles 有意义）")
	f.StringVar(&bulkOpts.titles, "titles", "", "标题文件路径；\"-\" 表示 stdin；为空时读取 IMDb 榜单")
	f.BoolVar(&bulkOpts.dryRun, "dry-run", false, "只解析与抽取，不写任何文件")
	f.BoolVar(&bulkOpts.force, "force", false, "不跳过已导出的标题")
	f.BoolVar(&bulkOpts.index, "index", false, "把评论写入全文索引（recommend 使用）")
}

// loadQueries 读取标题文件；未指定时从榜单取标题。
func loadQueries(cmd *cobra.Command, p *pipeline) ([]run.Query, error) {
	limit := bulkOpts.limit
	if bulkOpts.titles == "" {
		if limit <= 0 {
			limit = DefaultBulkLimit
		}
		titles, src := chart.TopTitles(cmd.Context(), p.fetcher, eff.IMDb.ChartURL, limit, zap.L())
		zap.L().Info("标题来源", zap.String("source", string(src)), zap.Int("titles", len(titles)))
		return run.FromTitles(titles), nil
	}

	var r io.Reader = cmd.InOrStdin()
	if bulkOpts.titles != "-" {
		f, err := os.Open(bulkOpts.titles)
		if err != nil {
			return nil, fmt.Errorf("打开标题文件失败：%w", err)
		}
		defer f.Close()
		r = f
	}
	qs, err := run.ReadTitles(r)
	if err != nil {
		return nil, fmt.Errorf("读取标题文件失败：%w", err)
	}
	if limit > 0 && len(qs) > limit {
		qs = qs[:limit]
	}
	return qs, nil
}

// emitReport 遵守输出契约：stdout 是终端时打印摘要，否则 stdout 只输出一个 RunReport JSON。
func emitReport(rr domain.RunReport) {
	summary := fmt.Sprintf("完成：processed=%d skipped=%d failed=%d not_found=%d\n",
		rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.NotFound,
	)
	if isTTY(os.Stdout) {
		fmt.Fprint(os.Stdout, summary)
		for _, it := range rr.Items {
			if it.Status != domain.StatusFailed && it.Status != domain.StatusNotFound {
				continue
			}
			key := it.Title
			if key == "" {
				key = "<unknown>"
			}
			fmt.Fprintf(os.Stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
		}
		return
	}

	_ = emitJSON(os.Stdout, rr, false)
	fmt.Fprint(os.Stderr, summary)
}

func reportPath(dataDir string) string {
	return filepath.Join(dataDir, "cache", "report.json")
}

func writeReportFile(dataDir string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	return fsx.WriteFile(reportPath(dataDir), append(b, '\n'), fsx.Replace)
}

func emitLocations(w io.Writer, eff config.EffectiveConfig, dryRun bool) {
	if w == nil {
		return
	}
	if !dryRun {
		fmt.Fprintf(w, "report: %s\n", reportPath(eff.DataDir))
	}
	fmt.Fprintf(w, "out: %s\n", eff.DataDir)
}
