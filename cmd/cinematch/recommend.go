package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/CineMatch/internal/domain"
	"github.com/John-Robertt/CineMatch/internal/ranking"
)

var recommendOpts struct {
	k           int
	maxDistance float64
	json        bool
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <query>",
	Short: "按自由文本描述在已索引的评论中检索电影",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.TrimSpace(strings.Join(args, " "))

		st, err := openStore(ctx, eff)
		if err != nil {
			emitError(domain.ErrCodeIOFailed, err)
			return &exitError{code: 1}
		}
		defer st.Close()

		hits, err := ranking.Recommend(ctx, st, query, ranking.Options{
			K:           recommendOpts.k,
			MaxDistance: recommendOpts.maxDistance,
		})
		if err != nil {
			emitError(domain.ErrCodeIOFailed, err)
			return &exitError{code: 1}
		}

		out := recommendOutput{Query: query, Results: toRecommendations(hits)}
		if isTTY(os.Stdout) && !recommendOpts.json {
			printRecommendations(os.Stdout, out)
			return nil
		}
		return emitJSON(os.Stdout, out, isTTY(os.Stdout))
	},
}

func init() {
	f := recommendCmd.Flags()
	f.IntVar(&recommendOpts.k, "k", 5, "最多返回的电影数")
	f.Float64Var(&recommendOpts.maxDistance, "max-distance", 0, "只保留距离小于该值的命中；0 表示不过滤")
	f.BoolVar(&recommendOpts.json, "json", false, "终端上也输出 JSON")
}

type recommendOutput struct {
	Query   string           `json:"query"`
	Results []recommendation `json:"results"`
}

type recommendation struct {
	Rank        int     `json:"rank"`
	MovieID     string  `json:"movie_id"`
	Title       string  `json:"title"`
	Year        string  `json:"year,omitempty"`
	Distance    float64 `json:"distance"`
	Score       float64 `json:"score"`
	ReviewTitle string  `json:"review_title,omitempty"`
	ReviewType  string  `json:"review_type,omitempty"`
	Excerpt     string  `json:"excerpt"`
}

func toRecommendations(hits []domain.DocumentHit) []recommendation {
	out := make([]recommendation, 0, len(hits))
	for i, h := range hits {
		m := h.Metadata
		out = append(out, recommendation{
			Rank:        i + 1,
			MovieID:     m.MovieID,
			Title:       m.MovieTitle,
			Year:        m.Year,
			Distance:    h.Distance,
			Score:       h.Score,
			ReviewTitle: m.ReviewTitle,
			ReviewType:  m.ReviewType,
			Excerpt:     excerpt(h.Content, 200),
		})
	}
	return out
}

// excerpt 按 rune 截断，保证不切断多字节字符。
func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + "…"
}

func printRecommendations(w io.Writer, out recommendOutput) {
	if len(out.Results) == 0 {
		fmt.Fprintf(w, "没有与 %q 相关的结果（先运行 ingest 建立索引）\n", out.Query)
		return
	}
	for _, r := range out.Results {
		title := r.Title
		if r.Year != "" {
			title += " (" + r.Year + ")"
		}
		fmt.Fprintf(w, "%d. %s [%s] distance=%.3f\n", r.Rank, title, r.MovieID, r.Distance)
		if r.ReviewTitle != "" {
			fmt.Fprintf(w, "   %s\n", r.ReviewTitle)
		}
		fmt.Fprintf(w, "   %s\n", r.Excerpt)
	}
}
