package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/John-Robertt/CineMatch/internal/app/run"
	"github.com/John-Robertt/CineMatch/internal/domain"
	"github.com/John-Robertt/CineMatch/internal/extract"
)

var scrapeOpts struct {
	year  int
	save  bool
	index bool
	trace bool
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <title>",
	Short: "解析并抓取单个标题，输出记录 JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		title := strings.Join(args, " ")
		log := zap.L()

		p, err := newPipeline(eff, !scrapeOpts.save, log)
		if err != nil {
			return err
		}

		res, err := p.assembler.AssembleTrace(ctx, title, scrapeOpts.year)
		if err != nil {
			_, code := run.Classify(ctx, err)
			emitError(code, err)
			return &exitError{code: 1}
		}

		out := scrapeOutput{Record: res.Record, Missing: res.Record.MissingFields()}
		if scrapeOpts.trace {
			out.Trace = traceOf(res.Outcomes)
		}

		if scrapeOpts.save {
			st, err := openStore(ctx, eff)
			if err != nil {
				emitError(domain.ErrCodeIOFailed, err)
				return &exitError{code: 1}
			}
			defer st.Close()
			sink := run.ExportSink{Writer: p.writer, Store: st, Index: scrapeOpts.index}
			out.Output, err = sink.Save(ctx, res.Record)
			if err != nil {
				emitError(domain.ErrCodeIOFailed, err)
				return &exitError{code: 1}
			}
		}

		tty := isTTY(os.Stdout)
		if err := emitJSON(os.Stdout, out, tty); err != nil {
			return err
		}
		if len(out.Missing) > 0 {
			fmt.Fprintf(os.Stderr, "缺少字段：%s\n", strings.Join(out.Missing, ", "))
		}
		return nil
	},
}

func init() {
	f := scrapeCmd.Flags()
	f.IntVar(&scrapeOpts.year, "year", 0, "上映年份（可选，用于消歧）")
	f.BoolVar(&scrapeOpts.save, "save", false, "导出 JSON/CSV/NFO 并写入 SQLite")
	f.BoolVar(&scrapeOpts.index, "index", false, "与 --save 一起使用：把评论写入全文索引")
	f.BoolVar(&scrapeOpts.trace, "trace", false, "附带每个 extractor 的执行轨迹")
}

type scrapeOutput struct {
	Record  domain.MovieRecord `json:"record"`
	Missing []string           `json:"missing_fields"`
	Output  string             `json:"output,omitempty"`
	Trace   []traceEntry       `json:"trace,omitempty"`
}

type traceEntry struct {
	Extractor string   `json:"extractor"`
	Keys      []string `json:"keys"`
	Error     string   `json:"error,omitempty"`
}

func traceOf(outcomes []extract.Outcome) []traceEntry {
	out := make([]traceEntry, 0, len(outcomes))
	for _, o := range outcomes {
		e := traceEntry{Extractor: o.Extractor, Keys: o.Keys}
		if e.Keys == nil {
			e.Keys = []string{}
		}
		if o.Err != nil {
			e.Error = o.Err.Error()
		}
		out = append(out, e)
	}
	return out
}
