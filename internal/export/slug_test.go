package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	cases := []struct{ in, want string }{
		{"The Matrix", "The_Matrix"},
		{"  Inception ", "Inception"},
		{"Amélie", "Amelie"},
		{"Léon: The Professional", "Leon_The_Professional"},
		{"The Lord of the Rings: The Return of the King", "The_Lord_of_the_Rings_The_Return_of_the_King"},
		{"AC/DC  Live", "ACDC_Live"},
		{"Who?", "Who"},
		{"", UnknownSlug},
		{"///", UnknownSlug},
		{"千与千寻", "千与千寻"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slug(tc.in), "输入：%q", tc.in)
	}
}

func TestSlug_Truncates(t *testing.T) {
	s := Slug(strings.Repeat("a", 500))
	assert.Len(t, []rune(s), maxSlugRunes)
}
