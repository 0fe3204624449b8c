// Package export 把 MovieRecord 落盘为 JSON / CSV / NFO。
//
// 目录布局（相对 Writer.Dir）：
//
//	json/imdb_data_<slug>.json
//	csv/imdb_data_<slug>.csv
//	csv/imdb_cast_<slug>.csv
//	csv/imdb_reviews_<slug>.csv
//	nfo/<slug>.nfo
//
// 文件名使用查询标题（没有时回退到页面标题），因此 Exists(query) 能在
// 批量运行中跳过已导出的标题。
package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/John-Robertt/CineMatch/internal/domain"
	"github.com/John-Robertt/CineMatch/internal/infra/fsx"
	"github.com/John-Robertt/CineMatch/internal/nfo"
)

// Writer 是导出目录的句柄。零值不可用：Dir 必须非空。
type Writer struct {
	Dir    string
	Logger *zap.Logger

	// SkipNFO 为 true 时不写 nfo/。
	SkipNFO bool
}

// Paths 是一次 Save 实际写出的文件；未写出的文件为空串。
type Paths struct {
	JSON       string `json:"json"`
	CSV        string `json:"csv"`
	CastCSV    string `json:"cast_csv,omitempty"`
	ReviewsCSV string `json:"reviews_csv,omitempty"`
	NFO        string `json:"nfo,omitempty"`
}

func New(dir string, logger *zap.Logger) *Writer {
	return &Writer{Dir: dir, Logger: logger}
}

// Name 返回记录导出时使用的标题：查询标题优先，其次页面标题，最后 canonical id。
func Name(rec domain.MovieRecord) string {
	for _, s := range []string{rec.Resolution.QueryTitle, rec.Title, rec.CanonicalID} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func (w *Writer) JSONPath(title string) string {
	return filepath.Join(w.Dir, "json", "imdb_data_"+Slug(title)+".json")
}

func (w *Writer) csvPath(prefix, title string) string {
	return filepath.Join(w.Dir, "csv", prefix+Slug(title)+".csv")
}

func (w *Writer) nfoPath(title string) string {
	return filepath.Join(w.Dir, "nfo", Slug(title)+".nfo")
}

// Exists 报告该标题是否已经导出过 JSON。
func (w *Writer) Exists(title string) bool {
	fi, err := os.Stat(w.JSONPath(title))
	return err == nil && fi.Mode().IsRegular()
}

// Load 读回已导出的 JSON 记录。
func (w *Writer) Load(title string) (domain.MovieRecord, error) {
	return loadFile(w.JSONPath(title))
}

// LoadAll 读回 json/ 下的全部导出记录（按文件名排序）。目录不存在时返回空。
func (w *Writer) LoadAll() ([]domain.MovieRecord, error) {
	paths, err := filepath.Glob(filepath.Join(w.Dir, "json", "imdb_data_*.json"))
	if err != nil {
		return nil, eris.Wrap(err, "glob json exports")
	}
	sort.Strings(paths)
	out := make([]domain.MovieRecord, 0, len(paths))
	for _, p := range paths {
		rec, err := loadFile(p)
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func loadFile(p string) (domain.MovieRecord, error) {
	var rec domain.MovieRecord
	b, err := os.ReadFile(p)
	if err != nil {
		return rec, eris.Wrapf(err, "read %s", p)
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, eris.Wrapf(err, "decode %s", p)
	}
	return rec, nil
}

// Save 写出 JSON、主 CSV，以及非空时的 cast / reviews CSV 和 NFO。
// JSON 与 CSV 覆盖旧文件；NFO 已存在时保留（可能被媒体库手工编辑过）。
func (w *Writer) Save(rec domain.MovieRecord) (Paths, error) {
	var p Paths
	if strings.TrimSpace(w.Dir) == "" {
		return p, eris.New("export: 输出目录为空")
	}
	name := Name(rec)
	log := w.logger().With(zap.String("title", name), zap.String("canonical_id", rec.CanonicalID))

	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return p, eris.Wrap(err, "encode record json")
	}
	p.JSON = w.JSONPath(name)
	if err := fsx.WriteFile(p.JSON, append(b, '\n'), fsx.Replace); err != nil {
		return p, eris.Wrapf(err, "write %s", p.JSON)
	}

	b, err = csvutil.Marshal([]mainRow{flatten(rec)})
	if err != nil {
		return p, eris.Wrap(err, "encode record csv")
	}
	p.CSV = w.csvPath("imdb_data_", name)
	if err := fsx.WriteFile(p.CSV, b, fsx.Replace); err != nil {
		return p, eris.Wrapf(err, "write %s", p.CSV)
	}

	if len(rec.Cast) > 0 {
		b, err = csvutil.Marshal(rec.Cast)
		if err != nil {
			return p, eris.Wrap(err, "encode cast csv")
		}
		p.CastCSV = w.csvPath("imdb_cast_", name)
		if err := fsx.WriteFile(p.CastCSV, b, fsx.Replace); err != nil {
			return p, eris.Wrapf(err, "write %s", p.CastCSV)
		}
	}

	reviews := make([]domain.Review, 0, len(rec.UserReviews)+len(rec.FeaturedReviews))
	reviews = append(reviews, rec.UserReviews...)
	reviews = append(reviews, rec.FeaturedReviews...)
	if len(reviews) > 0 {
		b, err = csvutil.Marshal(reviews)
		if err != nil {
			return p, eris.Wrap(err, "encode reviews csv")
		}
		p.ReviewsCSV = w.csvPath("imdb_reviews_", name)
		if err := fsx.WriteFile(p.ReviewsCSV, b, fsx.Replace); err != nil {
			return p, eris.Wrapf(err, "write %s", p.ReviewsCSV)
		}
	}

	if !w.SkipNFO {
		b, err = nfo.Encode(rec)
		if err != nil {
			return p, eris.Wrap(err, "encode nfo")
		}
		path := w.nfoPath(name)
		switch err := fsx.WriteFile(path, b, fsx.NoOverwrite); {
		case err == nil:
			p.NFO = path
		case errors.Is(err, os.ErrExist):
			log.Debug("nfo 已存在，保留", zap.String("path", path))
		default:
			return p, eris.Wrapf(err, "write %s", path)
		}
	}

	log.Info("记录已导出", zap.String("json", p.JSON))
	return p, nil
}

func (w *Writer) logger() *zap.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return zap.L()
}

// mainRow 是主 CSV 的单行：只含标量字段，序列字段以 "; " 连接。
type mainRow struct {
	CanonicalID   string `csv:"canonical_id"`
	URL           string `csv:"url"`
	QueryTitle    string `csv:"query_title"`
	Title         string `csv:"title"`
	Year          string `csv:"year"`
	Duration      string `csv:"duration"`
	Rating        string `csv:"rating"`
	RatingCount   string `csv:"rating_count"`
	Certification string `csv:"certification"`
	Genres        string `csv:"genres"`
	Summary       string `csv:"summary"`
	Synopsis      string `csv:"synopsis"`
	MatchScore    string `csv:"match_score"`
	ScrapedAt     string `csv:"scraped_at"`
}

func flatten(rec domain.MovieRecord) mainRow {
	row := mainRow{
		CanonicalID:   rec.CanonicalID,
		URL:           rec.URL,
		QueryTitle:    rec.Resolution.QueryTitle,
		Title:         rec.Title,
		Year:          rec.Year,
		Duration:      rec.Duration,
		Rating:        rec.Rating,
		RatingCount:   rec.RatingCount,
		Certification: rec.Certification,
		Genres:        strings.Join(rec.Storyline.Genres, "; "),
		Summary:       rec.Summary,
		Synopsis:      rec.Synopsis,
		MatchScore:    strconv.FormatFloat(rec.Resolution.MatchScore, 'f', 4, 64),
	}
	if !rec.ScrapedAt.IsZero() {
		row.ScrapedAt = rec.ScrapedAt.UTC().Format(time.RFC3339)
	}
	return row
}
