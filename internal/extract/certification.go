package extract

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

// Certification 抽取分级（例如 PG-13 / R / 12A）。
type Certification struct{}

func (Certification) Name() string { return "certification" }

func (Certification) Extract(ctx context.Context, env *Env) domain.FieldMap {
	fm := domain.FieldMap{}
	fm.SetString(domain.FieldCertification, firstString(ctx, env, certificationChain))
	return fm
}

var certificationChain = stringChain(acceptCertificate,
	`a[href*="parentalguide"]`,
	`span.certificate`,
	`.subtext .certificate`,
)

// acceptCertificate 排除 "Parents guide" 之类的导航链接文本。
func acceptCertificate(s string) (string, bool) {
	if s == "" || utf8.RuneCountInString(s) > 16 || strings.Contains(strings.ToLower(s), "guide") {
		return "", false
	}
	return s, true
}
