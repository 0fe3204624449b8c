package domain

// SearchHit 是外部搜索返回的一条原始结果（只在解析阶段存在）。
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// ResolvedCandidate 是 Candidate Matcher 选出的唯一候选，也是 MovieRecord 的来源标记。
//
// MatchScore 截断到 [0,1]；Similarity 与 YearMatched 保留打分的组成部分，便于追溯。
type ResolvedCandidate struct {
	CanonicalID string  `json:"canonical_id"`
	QueryTitle  string  `json:"query_title"`
	SourceURL   string  `json:"source_url"`
	SearchTitle string  `json:"search_title"`
	Description string  `json:"description,omitempty"`
	Similarity  float64 `json:"similarity"`
	YearMatched bool    `json:"year_matched"`
	MatchScore  float64 `json:"match_score"`
}
