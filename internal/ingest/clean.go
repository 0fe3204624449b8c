// Package ingest 把记录中的评论整理成可索引的 Document：清洗 HTML、切块、附加元数据。
package ingest

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var urlRE = regexp.MustCompile(`https?://\S+|www\.\S+`)

// CleanText 先解码 HTML 实体，再去掉标签（script/style 的内容一并丢弃）、URL，
// 最后把连续空白压成一个空格。
func CleanText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	s = html.UnescapeString(s)

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF 或残缺输入：都保留已解析部分
			return collapse(urlRE.ReplaceAllString(b.String(), ""))
		case html.StartTagToken, html.EndTagToken:
			name, _ := z.TagName()
			if bytes.Equal(name, []byte("script")) || bytes.Equal(name, []byte("style")) {
				if tt == html.StartTagToken {
					skip++
				} else if skip > 0 {
					skip--
				}
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DefaultMaxWords 是单个块的最大词数。
const DefaultMaxWords = 500

// ChunkText 按空白分词，每 maxWords 个词拼成一块。maxWords <= 0 时使用默认值。
func ChunkText(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(words)+maxWords-1)/maxWords)
	for i := 0; i < len(words); i += maxWords {
		end := min(i+maxWords, len(words))
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}
