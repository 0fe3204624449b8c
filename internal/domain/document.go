package domain

// Document 是一条可被索引的评论文本块（评论清洗、切块后的结果）。
type Document struct {
	ID       string       `json:"id"`
	Content  string       `json:"content"`
	Metadata DocumentMeta `json:"metadata"`
}

type DocumentMeta struct {
	Source        string `json:"source"`
	MovieID       string `json:"movie_id"`
	MovieTitle    string `json:"movie_title"`
	Year          string `json:"year"`
	ReviewTitle   string `json:"review_title"`
	ReviewType    string `json:"review_type"`
	OriginalIndex int    `json:"original_index"`
	Chunk         int    `json:"chunk"`
}

// DocumentHit 是一次检索命中。Distance 越小越相关，Score 越大越相关。
type DocumentHit struct {
	Document
	Distance float64 `json:"distance"`
	Score    float64 `json:"score"`
}
