// Package similarity 给两个片名打一个 [0,1] 的相似度分数。
//
// 算法为 Ratcliff/Obershelp：M 为所有匹配块的字符总数，T 为两串长度之和，分数 = 2*M/T。
// 与 Python difflib.SequenceMatcher(None, a, b).ratio() 在 autojunk 关闭时一致（按 rune 计数）。
package similarity

import (
	"regexp"
	"strings"
)

var (
	siteSuffixRe = regexp.MustCompile(`(?i)\s*[-–]\s*imdb.*$`)
	yearTailRe   = regexp.MustCompile(`\s*\(\d{4}\).*$`)
)

// Clean 去掉搜索结果标题里的站点后缀（" - IMDb"）与结尾的 "(YYYY)..."。
func Clean(s string) string {
	s = siteSuffixRe.ReplaceAllString(s, "")
	s = yearTailRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Score 返回 a 与 b 的相似度。
//
// 约束：
// - 大小写不敏感（Unicode 小写）
// - 比较前两侧都做 Clean；a 为用户输入时通常不含噪声，结果不变
// - Score(x, x) == 1；Score("", "") == 1；Score(a, b) == Score(b, a)
func Score(a, b string) float64 {
	ra := []rune(strings.ToLower(Clean(a)))
	rb := []rune(strings.ToLower(Clean(b)))

	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	// 匹配块的选取对参数顺序敏感（并列时取最靠前的块），先排成规范顺序。
	if string(rb) < string(ra) {
		ra, rb = rb, ra
	}
	return 2.0 * float64(matchedRunes(ra, rb)) / float64(total)
}

// matchedRunes 递归地找最长公共子串，再在其左右两侧继续，返回匹配字符总数。
func matchedRunes(a, b []rune) int {
	type span struct{ alo, ahi, blo, bhi int }

	sum := 0
	stack := []span{{0, len(a), 0, len(b)}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		i, j, k := longestMatch(a, b, s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}
		sum += k
		if s.alo < i && s.blo < j {
			stack = append(stack, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			stack = append(stack, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return sum
}

// longestMatch 返回 a[alo:ahi] 与 b[blo:bhi] 的最长公共子串 (i, j, k)。
// 长度相同时取 i 最小者，再取 j 最小者。
func longestMatch(a, b []rune, alo, ahi, blo, bhi int) (besti, bestj, bestk int) {
	besti, bestj = alo, blo
	width := bhi - blo
	prev := make([]int, width+1)
	cur := make([]int, width+1)
	for i := alo; i < ahi; i++ {
		for j := blo; j < bhi; j++ {
			if a[i] != b[j] {
				cur[j-blo+1] = 0
				continue
			}
			k := prev[j-blo] + 1
			cur[j-blo+1] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		prev, cur = cur, prev
	}
	return besti, bestj, bestk
}
