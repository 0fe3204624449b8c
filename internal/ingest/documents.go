package ingest

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

// MinContentLen 是清洗后评论的最短长度，更短的评论不入索引。
const MinContentLen = 20

// DocumentSource 是 Document.Metadata.Source 的固定值。
const DocumentSource = "imdb"

// BuildDocuments 把记录的用户评论与精选评论（按此顺序）清洗、切块，转成 Document。
//
// OriginalIndex 是评论在拼接后序列中的下标。ID 由 (movie_id, 下标, 块号, 内容) 派生，
// 同一条记录重复入库会覆盖而不是追加。
func BuildDocuments(rec domain.MovieRecord, maxWords int) []domain.Document {
	reviews := make([]domain.Review, 0, len(rec.UserReviews)+len(rec.FeaturedReviews))
	reviews = append(reviews, rec.UserReviews...)
	reviews = append(reviews, rec.FeaturedReviews...)

	movieID := rec.CanonicalID
	if movieID == "" {
		movieID = "unknown"
	}
	movieTitle := rec.Title
	if movieTitle == "" {
		movieTitle = rec.Resolution.QueryTitle
	}

	var docs []domain.Document
	for idx, r := range reviews {
		cleaned := CleanText(r.Content)
		if len(cleaned) < MinContentLen {
			continue
		}
		kind := string(r.Kind)
		if kind == "" {
			kind = string(domain.ReviewUser)
		}
		for ci, chunk := range ChunkText(cleaned, maxWords) {
			docs = append(docs, domain.Document{
				ID:      documentID(movieID, idx, ci, chunk),
				Content: chunk,
				Metadata: domain.DocumentMeta{
					Source:        DocumentSource,
					MovieID:       movieID,
					MovieTitle:    movieTitle,
					Year:          rec.Year,
					ReviewTitle:   strings.TrimSpace(r.Title),
					ReviewType:    kind,
					OriginalIndex: idx,
					Chunk:         ci,
				},
			})
		}
	}
	return docs
}

func documentID(movieID string, idx, chunk int, content string) string {
	name := movieID + "#" + strconv.Itoa(idx) + "#" + strconv.Itoa(chunk) + "#" + content
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
