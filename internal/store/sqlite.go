// Package store 是记录与评论文本块的持久化索引（modernc.org/sqlite + FTS5）。
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/John-Robertt/CineMatch/internal/domain"
)

// ErrNotFound 表示按 canonical id 查不到记录。
var ErrNotFound = errors.New("store: not found")

// SQLite 保存 MovieRecord（JSON）与评论 Document（FTS5 全文索引）。
// 可被多个 goroutine 并发使用。
type SQLite struct {
	db *sql.DB
}

// Open 打开（必要时创建）dsn 指向的数据库，开启 WAL 并执行建表。
func Open(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		// 每个连接都是独立的内存库
		db.SetMaxOpenConns(1)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS movies (
	canonical_id TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	year         TEXT NOT NULL DEFAULT '',
	record       TEXT NOT NULL,
	scraped_at   DATETIME,
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS review_docs (
	id             TEXT PRIMARY KEY,
	movie_id       TEXT NOT NULL,
	movie_title    TEXT NOT NULL DEFAULT '',
	year           TEXT NOT NULL DEFAULT '',
	source         TEXT NOT NULL DEFAULT '',
	review_title   TEXT NOT NULL DEFAULT '',
	review_type    TEXT NOT NULL DEFAULT '',
	original_index INTEGER NOT NULL DEFAULT 0,
	chunk          INTEGER NOT NULL DEFAULT 0,
	content        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_docs_movie_id ON review_docs(movie_id);

CREATE VIRTUAL TABLE IF NOT EXISTS review_fts USING fts5(doc_id UNINDEXED, content);
`

func (s *SQLite) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// SaveRecord 按 canonical id 插入或覆盖一条记录。
func (s *SQLite) SaveRecord(ctx context.Context, rec domain.MovieRecord) error {
	if rec.CanonicalID == "" {
		return eris.New("sqlite: record 缺少 canonical_id")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal record")
	}
	var scraped any
	if !rec.ScrapedAt.IsZero() {
		scraped = rec.ScrapedAt.UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO movies (canonical_id, title, year, record, scraped_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(canonical_id) DO UPDATE SET
			title = excluded.title,
			year = excluded.year,
			record = excluded.record,
			scraped_at = excluded.scraped_at,
			updated_at = excluded.updated_at`,
		rec.CanonicalID, rec.Title, rec.Year, string(b), scraped, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save record %s", rec.CanonicalID)
}

// GetRecord 读取记录；不存在时返回 ErrNotFound。
func (s *SQLite) GetRecord(ctx context.Context, canonicalID string) (domain.MovieRecord, error) {
	var rec domain.MovieRecord
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM movies WHERE canonical_id = ?`, canonicalID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, eris.Wrapf(err, "sqlite: get record %s", canonicalID)
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return rec, eris.Wrapf(err, "sqlite: unmarshal record %s", canonicalID)
	}
	return rec, nil
}

// AddDocuments 在一个事务内按 ID upsert 文档并同步全文索引。
func (s *SQLite) AddDocuments(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, d := range docs {
		m := d.Metadata
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO review_docs (id, movie_id, movie_title, year, source, review_title, review_type, original_index, chunk, content)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				movie_id = excluded.movie_id,
				movie_title = excluded.movie_title,
				year = excluded.year,
				source = excluded.source,
				review_title = excluded.review_title,
				review_type = excluded.review_type,
				original_index = excluded.original_index,
				chunk = excluded.chunk,
				content = excluded.content`,
			d.ID, m.MovieID, m.MovieTitle, m.Year, m.Source, m.ReviewTitle, m.ReviewType, m.OriginalIndex, m.Chunk, d.Content,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert doc %s", d.ID)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM review_fts WHERE doc_id = ?`, d.ID); err != nil {
			return eris.Wrapf(err, "sqlite: reindex doc %s", d.ID)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO review_fts (doc_id, content) VALUES (?, ?)`, d.ID, d.Content); err != nil {
			return eris.Wrapf(err, "sqlite: index doc %s", d.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// DeleteMovieDocuments 删除某部电影的全部文档，返回删除条数。
func (s *SQLite) DeleteMovieDocuments(ctx context.Context, movieID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM review_fts WHERE doc_id IN (SELECT id FROM review_docs WHERE movie_id = ?)`, movieID,
	); err != nil {
		return 0, eris.Wrapf(err, "sqlite: unindex movie %s", movieID)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM review_docs WHERE movie_id = ?`, movieID)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete docs %s", movieID)
	}
	n, _ := res.RowsAffected()
	return int(n), eris.Wrap(tx.Commit(), "sqlite: commit")
}

// SearchDocuments 对评论做全文检索，按相关度从高到低返回至多 k 条。
//
// Score 为 -bm25（越大越相关）；Distance = 1/(1+Score)，落在 (0,1]，越小越相关。
// query 中没有任何可检索的词时返回空结果。
func (s *SQLite) SearchDocuments(ctx context.Context, query string, k int) ([]domain.DocumentHit, error) {
	match := MatchExpr(query)
	if match == "" || k <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.content, d.source, d.movie_id, d.movie_title, d.year,
		       d.review_title, d.review_type, d.original_index, d.chunk,
		       bm25(review_fts) AS rank
		FROM review_fts
		JOIN review_docs d ON d.id = review_fts.doc_id
		WHERE review_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, match, k)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search documents")
	}
	defer rows.Close()

	var out []domain.DocumentHit
	for rows.Next() {
		var h domain.DocumentHit
		var rank float64
		m := &h.Metadata
		if err := rows.Scan(&h.ID, &h.Content, &m.Source, &m.MovieID, &m.MovieTitle, &m.Year,
			&m.ReviewTitle, &m.ReviewType, &m.OriginalIndex, &m.Chunk, &rank); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		h.Score = -rank
		if h.Score < 0 {
			h.Score = 0
		}
		h.Distance = 1 / (1 + h.Score)
		out = append(out, h)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate documents")
}

// Count 返回已索引的文档数。
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM review_docs`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count documents")
}

// CountRecords 返回已保存的记录数。
func (s *SQLite) CountRecords(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count records")
}

// MatchExpr 把自由文本转成 FTS5 查询：只保留字母数字组成的词，逐个加引号后以 OR 连接。
// "mind-bending heist!" → `"mind" OR "bending" OR "heist"`。
func MatchExpr(query string) string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}
