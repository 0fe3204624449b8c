package nfo

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

type movieOut struct {
	Title     string   `xml:"title"`
	SortTitle string   `xml:"sorttitle"`
	Year      int      `xml:"year"`
	Runtime   int      `xml:"runtime"`
	Outline   string   `xml:"outline"`
	Plot      string   `xml:"plot"`
	Tagline   string   `xml:"tagline"`
	MPAA      string   `xml:"mpaa"`
	Genres    []string `xml:"genre"`
	Tags      []string `xml:"tag"`
	Countries []string `xml:"country"`
	Premiered string   `xml:"premiered"`
	Website   string   `xml:"website"`
	UniqueID  struct {
		Type  string `xml:"type,attr"`
		Value string `xml:",chardata"`
	} `xml:"uniqueid"`
	Ratings struct {
		Rating []struct {
			Name  string `xml:"name,attr"`
			Value string `xml:"value"`
			Votes string `xml:"votes"`
		} `xml:"rating"`
	} `xml:"ratings"`
	Actors []struct {
		Name  string `xml:"name"`
		Role  string `xml:"role"`
		Order int    `xml:"order"`
	} `xml:"actor"`
}

func TestEncode_XMLRoundTrip(t *testing.T) {
	rec := domain.RecordFromFields("tt0133093", "https://www.imdb.com/title/tt0133093/", domain.FieldMap{
		domain.FieldTitle:         domain.String("The Matrix"),
		domain.FieldYear:          domain.String("1999"),
		domain.FieldDuration:      domain.String("2h 16m"),
		domain.FieldRating:        domain.String("8.7"),
		domain.FieldRatingCount:   domain.String("2.1M"),
		domain.FieldCertification: domain.String("R"),
		domain.FieldSummary:       domain.String("Short."),
		domain.FieldSynopsis:      domain.String("Long synopsis."),
		domain.FieldCast: domain.Table(
			domain.FieldMap{domain.FieldActor: domain.String("Keanu Reeves"), domain.FieldCharacter: domain.String("Neo")},
			domain.FieldMap{domain.FieldActor: domain.String("Keanu Reeves"), domain.FieldCharacter: domain.String("Neo")},
			domain.FieldMap{domain.FieldActor: domain.String("Hugo Weaving"), domain.FieldCharacter: domain.String(domain.UnknownCharacter)},
		),
		domain.FieldStoryline: domain.Map(domain.FieldMap{
			domain.FieldGenres:   domain.List("Action", "Sci-Fi", "Action"),
			domain.FieldKeywords: domain.List("simulation"),
			domain.FieldTagline:  domain.String("Free your mind."),
		}),
		domain.FieldDetails: domain.Map(domain.FieldMap{
			"countries_of_origin": domain.List("United States", "Australia"),
			"country":             domain.String("United States"),
			"release_date":        domain.String("March 31, 1999 (United States)"),
		}),
	})

	b, err := Encode(rec)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>`))

	var out movieOut
	require.NoError(t, xml.Unmarshal(b, &out))

	assert.Equal(t, "The Matrix", out.Title)
	assert.Equal(t, "Matrix", out.SortTitle)
	assert.Equal(t, 1999, out.Year)
	assert.Equal(t, 136, out.Runtime)
	assert.Equal(t, "Short.", out.Outline)
	assert.Equal(t, "Long synopsis.", out.Plot)
	assert.Equal(t, "Free your mind.", out.Tagline)
	assert.Equal(t, "R", out.MPAA)
	assert.Equal(t, []string{"Action", "Sci-Fi"}, out.Genres)
	assert.Equal(t, []string{"simulation"}, out.Tags)
	assert.Equal(t, []string{"United States", "Australia"}, out.Countries)
	assert.Equal(t, "imdb", out.UniqueID.Type)
	assert.Equal(t, "tt0133093", out.UniqueID.Value)
	require.Len(t, out.Ratings.Rating, 1)
	assert.Equal(t, "8.7", out.Ratings.Rating[0].Value)
	assert.Equal(t, "2.1M", out.Ratings.Rating[0].Votes)

	require.Len(t, out.Actors, 2, "同名演员只输出一次")
	assert.Equal(t, "Neo", out.Actors[0].Role)
	assert.Equal(t, "", out.Actors[1].Role, "Unknown 角色不输出 role")
	assert.Equal(t, 1, out.Actors[1].Order)
}

func TestEncode_TitleFallback(t *testing.T) {
	rec := domain.RecordFromFields("tt0000001", "", domain.FieldMap{})
	b, err := Encode(rec)
	require.NoError(t, err)

	var out movieOut
	require.NoError(t, xml.Unmarshal(b, &out))
	assert.Equal(t, "tt0000001", out.Title)
	assert.Empty(t, out.Ratings.Rating)

	rec.Resolution.QueryTitle = "Some Query"
	b, err = Encode(rec)
	require.NoError(t, err)
	require.NoError(t, xml.Unmarshal(b, &out))
	assert.Equal(t, "Some Query", out.Title)
}

func TestRuntimeMinutes(t *testing.T) {
	cases := map[string]int{
		"2h 28m":             148,
		"2 hours 28 minutes": 148,
		"148 min":            148,
		"1 hour":             60,
		"45m":                45,
		"":                   0,
		"unknown":            0,
	}
	for in, want := range cases {
		assert.Equal(t, want, RuntimeMinutes(in), "输入：%q", in)
	}
}
