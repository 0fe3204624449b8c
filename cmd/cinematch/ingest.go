package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/John-Robertt/CineMatch/internal/domain"
	"github.com/John-Robertt/CineMatch/internal/export"
	"github.com/John-Robertt/CineMatch/internal/ingest"
)

var ingestOpts struct {
	all      bool
	maxWords int
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [title...]",
	Short: "把已导出记录的评论清洗、切块并写入全文索引",
	Long: `ingest 读取 <data>/json 下已导出的记录，清洗评论文本、按词数切块，
替换该影片在索引中的旧文档。可重复执行：文档 ID 由内容决定。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L()
		if !ingestOpts.all && len(args) == 0 {
			return fmt.Errorf("需要至少一个标题，或使用 --all")
		}

		w := export.New(eff.DataDir, log)
		var recs []domain.MovieRecord
		if ingestOpts.all {
			all, err := w.LoadAll()
			if err != nil {
				emitError(domain.ErrCodeIOFailed, err)
				return &exitError{code: 1}
			}
			recs = all
		} else {
			for _, title := range args {
				rec, err := w.Load(title)
				if err != nil {
					emitError(domain.ErrCodeNotFound, err)
					return &exitError{code: 1}
				}
				recs = append(recs, rec)
			}
		}

		st, err := openStore(ctx, eff)
		if err != nil {
			emitError(domain.ErrCodeIOFailed, err)
			return &exitError{code: 1}
		}
		defer st.Close()

		out := ingestOutput{Movies: make([]ingestedMovie, 0, len(recs))}
		for _, rec := range recs {
			docs := ingest.BuildDocuments(rec, ingestOpts.maxWords)
			if _, err := st.DeleteMovieDocuments(ctx, rec.CanonicalID); err != nil {
				emitError(domain.ErrCodeIOFailed, err)
				return &exitError{code: 1}
			}
			if err := st.SaveRecord(ctx, rec); err != nil {
				emitError(domain.ErrCodeIOFailed, err)
				return &exitError{code: 1}
			}
			if err := st.AddDocuments(ctx, docs); err != nil {
				emitError(domain.ErrCodeIOFailed, err)
				return &exitError{code: 1}
			}
			log.Info("评论已入索引", zap.String("canonical_id", rec.CanonicalID), zap.Int("documents", len(docs)))
			out.Movies = append(out.Movies, ingestedMovie{
				CanonicalID: rec.CanonicalID,
				Title:       export.Name(rec),
				Documents:   len(docs),
			})
		}

		if out.TotalDocuments, err = st.Count(ctx); err != nil {
			emitError(domain.ErrCodeIOFailed, err)
			return &exitError{code: 1}
		}
		return emitJSON(os.Stdout, out, isTTY(os.Stdout))
	},
}

func init() {
	f := ingestCmd.Flags()
	f.BoolVar(&ingestOpts.all, "all", false, "处理 <data>/json 下的全部记录")
	f.IntVar(&ingestOpts.maxWords, "max-words", ingest.DefaultMaxWords, "每个切块的最大词数")
}

type ingestOutput struct {
	Movies         []ingestedMovie `json:"movies"`
	TotalDocuments int             `json:"total_documents"`
}

type ingestedMovie struct {
	CanonicalID string `json:"canonical_id"`
	Title       string `json:"title"`
	Documents   int    `json:"documents"`
}
