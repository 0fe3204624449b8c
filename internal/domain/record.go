package domain

import "time"

// FieldMap 中约定的 key。extractor 与 RecordFromFields 共用同一套名字。
const (
	FieldTitle          = "title"
	FieldYear           = "year"
	FieldDuration       = "duration"
	FieldRating         = "rating"
	FieldRatingCount    = "rating_count"
	FieldCertification  = "certification"
	FieldSummary        = "summary"
	FieldSynopsis       = "synopsis"
	FieldCast           = "cast"
	FieldStoryline      = "storyline"
	FieldDetails        = "details"
	FieldBoxOffice      = "box_office"
	FieldTechnicalSpecs = "technical_specs"

	FieldActor     = "actor"
	FieldCharacter = "character"

	FieldPlotSummary = "plot_summary"
	FieldGenres      = "genres"
	FieldTagline     = "tagline"
	FieldKeywords    = "keywords"
)

// UnknownCharacter 是无法解析角色名时的占位值（cast 条目不因此被丢弃）。
const UnknownCharacter = "Unknown"

// MovieRecord 是一次“解析 + 抽取”得到的最终实体。
//
// 约束：
// - CanonicalID 必须等于 Resolution.CanonicalID（同一输入不得漂移）
// - 组装完成后只读；是否落盘由调用方决定
type MovieRecord struct {
	CanonicalID string `json:"canonical_id"`
	URL         string `json:"url"`

	Title         string `json:"title,omitempty"`
	Year          string `json:"year,omitempty"`
	Duration      string `json:"duration,omitempty"`
	Rating        string `json:"rating,omitempty"`
	RatingCount   string `json:"rating_count,omitempty"`
	Certification string `json:"certification,omitempty"`
	Summary       string `json:"summary,omitempty"`
	Synopsis      string `json:"synopsis,omitempty"`

	Cast      []CastMember `json:"cast"`
	Storyline Storyline    `json:"storyline"`

	Details        FieldMap `json:"details"`
	BoxOffice      FieldMap `json:"box_office"`
	TechnicalSpecs FieldMap `json:"technical_specs"`

	UserReviews     []Review `json:"user_reviews"`
	FeaturedReviews []Review `json:"featured_reviews"`

	Resolution ResolvedCandidate `json:"resolution"`
	ScrapedAt  time.Time         `json:"scraped_at"`
}

type CastMember struct {
	Actor     string `json:"actor" csv:"actor"`
	Character string `json:"character" csv:"character"`
}

type Storyline struct {
	PlotSummary string   `json:"plot_summary,omitempty"`
	Genres      []string `json:"genres"`
	Tagline     string   `json:"tagline,omitempty"`
	Keywords    []string `json:"keywords"`
}

type ReviewKind string

const (
	ReviewUser   ReviewKind = "user"
	ReviewCritic ReviewKind = "critic"
)

type Review struct {
	Title   string     `json:"title" csv:"title"`
	Content string     `json:"content" csv:"content"`
	URL     string     `json:"url" csv:"url"`
	Kind    ReviewKind `json:"type" csv:"type"`
	Rating  string     `json:"rating,omitempty" csv:"rating,omitempty"`
	Source  string     `json:"source,omitempty" csv:"source,omitempty"`
}

// RecordFromFields 把合并后的 FieldMap 映射为强类型 MovieRecord。
// 未知 key 被忽略；缺失字段保持零值（序列字段为非 nil 的空切片，保证 JSON 结构稳定）。
func RecordFromFields(canonicalID, url string, fm FieldMap) MovieRecord {
	r := MovieRecord{
		CanonicalID:   canonicalID,
		URL:           url,
		Title:         fm.String(FieldTitle),
		Year:          fm.String(FieldYear),
		Duration:      fm.String(FieldDuration),
		Rating:        fm.String(FieldRating),
		RatingCount:   fm.String(FieldRatingCount),
		Certification: fm.String(FieldCertification),
		Summary:       fm.String(FieldSummary),
		Synopsis:      fm.String(FieldSynopsis),
		Cast:          []CastMember{},

		Details:        nonNil(fm.Sub(FieldDetails).Clone()),
		BoxOffice:      nonNil(fm.Sub(FieldBoxOffice).Clone()),
		TechnicalSpecs: nonNil(fm.Sub(FieldTechnicalSpecs).Clone()),

		UserReviews:     []Review{},
		FeaturedReviews: []Review{},
	}

	for _, row := range fm.Rows(FieldCast) {
		r.Cast = append(r.Cast, CastMember{
			Actor:     row.String(FieldActor),
			Character: row.String(FieldCharacter),
		})
	}

	st := fm.Sub(FieldStoryline)
	r.Storyline = Storyline{
		PlotSummary: st.String(FieldPlotSummary),
		Genres:      append([]string{}, st.Strings(FieldGenres)...),
		Tagline:     st.String(FieldTagline),
		Keywords:    append([]string{}, st.Strings(FieldKeywords)...),
	}
	return r
}

func nonNil(m FieldMap) FieldMap {
	if m == nil {
		return FieldMap{}
	}
	return m
}

// MissingFields 列出抽取后仍为空的顶层字段（按固定顺序），用于报告“找到但缺字段”。
func (r MovieRecord) MissingFields() []string {
	checks := []struct {
		key   string
		empty bool
	}{
		{FieldTitle, r.Title == ""},
		{FieldYear, r.Year == ""},
		{FieldDuration, r.Duration == ""},
		{FieldRating, r.Rating == ""},
		{FieldRatingCount, r.RatingCount == ""},
		{FieldCertification, r.Certification == ""},
		{FieldSummary, r.Summary == ""},
		{FieldCast, len(r.Cast) == 0},
		{FieldStoryline, r.Storyline.PlotSummary == "" && len(r.Storyline.Genres) == 0 &&
			r.Storyline.Tagline == "" && len(r.Storyline.Keywords) == 0},
		{FieldDetails, len(r.Details) == 0},
		{FieldBoxOffice, len(r.BoxOffice) == 0},
		{FieldTechnicalSpecs, len(r.TechnicalSpecs) == 0},
	}
	out := make([]string, 0, len(checks))
	for _, c := range checks {
		if c.empty {
			out = append(out, c.key)
		}
	}
	return out
}
