package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeAdditive_FirstWriterWins(t *testing.T) {
	a := FieldMap{FieldTitle: String("Inception")}
	b := FieldMap{FieldTitle: String("Inception (2010)"), FieldYear: String("2010")}

	got := MergeAdditive(a, b)

	assert.Equal(t, "Inception", got.String(FieldTitle), "后来的 extractor 不允许覆盖已存在的 key")
	assert.Equal(t, "2010", got.String(FieldYear))
	// 输入不被修改
	assert.False(t, a.Has(FieldYear))
	assert.Equal(t, "Inception (2010)", b.String(FieldTitle))
}

func TestMergeAdditive_RecursesIntoNamespaces(t *testing.T) {
	a := FieldMap{FieldTechnicalSpecs: Map(FieldMap{"runtime": String("2h 28m")})}
	b := FieldMap{FieldTechnicalSpecs: Map(FieldMap{
		"runtime":      String("148 min"),
		"aspect_ratio": String("2.39 : 1"),
	})}

	got := MergeAdditive(a, b).Sub(FieldTechnicalSpecs)

	assert.Equal(t, "2h 28m", got.String("runtime"))
	assert.Equal(t, "2.39 : 1", got.String("aspect_ratio"))
	assert.Len(t, a.Sub(FieldTechnicalSpecs), 1, "a 的命名空间不应被原地修改")
}

func TestMergeAdditive_KindMismatchKeepsFirst(t *testing.T) {
	a := FieldMap{FieldDetails: String("oops")}
	b := FieldMap{FieldDetails: Map(FieldMap{"country": String("USA")})}

	got := MergeAdditive(a, b)
	s, ok := got[FieldDetails].Str()
	assert.True(t, ok)
	assert.Equal(t, "oops", s)
}

func TestMergeAdditive_NilInputs(t *testing.T) {
	assert.Empty(t, MergeAdditive(nil, nil))
	got := MergeAdditive(nil, FieldMap{FieldYear: String("1999")})
	assert.Equal(t, "1999", got.String(FieldYear))
}

func TestFieldMap_SetSkipsEmpty(t *testing.T) {
	m := FieldMap{}
	m.SetString(FieldTitle, "")
	m.SetList(FieldGenres, nil)
	m.SetMap(FieldDetails, FieldMap{})
	assert.Empty(t, m)
}

func TestValue_JSONKeepsShape(t *testing.T) {
	in := FieldMap{
		FieldTitle:   String("Heat"),
		FieldDetails: Map(FieldMap{"languages": List("English", "Spanish")}),
		FieldCast: Table(
			FieldMap{FieldActor: String("Al Pacino"), FieldCharacter: String("Vincent Hanna")},
		),
	}

	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out FieldMap
	require.NoError(t, json.Unmarshal(b, &out))

	assert.Equal(t, KindString, out[FieldTitle].Kind())
	assert.Equal(t, []string{"English", "Spanish"}, out.Sub(FieldDetails).Strings("languages"))
	rows := out.Rows(FieldCast)
	require.Len(t, rows, 1)
	assert.Equal(t, "Vincent Hanna", rows[0].String(FieldCharacter))
}
