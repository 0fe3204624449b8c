package extract

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

const (
	defaultBaseURL = "https://www.imdb.com"
	minLongPlotLen = 50
)

// Synopsis 抽取 summary / synopsis：优先 /plotsummary/ 页的完整梗概，其次详情页的短简介。
type Synopsis struct{}

func (Synopsis) Name() string { return "synopsis" }

func (Synopsis) Extract(ctx context.Context, env *Env) domain.FieldMap {
	fm := domain.FieldMap{}
	text, _, ok := FirstOf(ctx, env, synopsisChain)
	if !ok {
		return fm
	}
	fm.SetString(domain.FieldSummary, text)
	fm.SetString(domain.FieldSynopsis, text)
	return fm
}

var synopsisChain = []Strategy[string]{
	{Name: "plotsummary", Try: longPlot},
	bySelector(`span[data-testid="plot-xl"]`, acceptPlot),
	bySelector(`.summary_text`, acceptPlot),
}

// PlotSummaryURL 返回 canonical id 对应的完整梗概页。
func PlotSummaryURL(baseURL, id string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + "/title/" + id + "/plotsummary/"
}

func longPlot(ctx context.Context, env *Env) (string, bool) {
	if env.Fetcher == nil || env.CanonicalID == "" {
		return "", false
	}
	u := PlotSummaryURL(env.BaseURL, env.CanonicalID)
	b, err := env.Fetcher.Fetch(ctx, u)
	if err != nil {
		env.logger().Debug("plot summary unavailable", zap.String("url", u), zap.Error(err))
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return "", false
	}
	text := textOf(doc.Find("section ul li").First())
	return text, utf8.RuneCountInString(text) > minLongPlotLen
}

// acceptPlot 拒绝 "Add a Plot" 之类的占位文本。
func acceptPlot(s string) (string, bool) {
	if s == "" || strings.Contains(strings.ToLower(s), "add a plot") {
		return "", false
	}
	return s, true
}
