package run

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/John-Robertt/CineMatch/internal/domain"
	"github.com/John-Robertt/CineMatch/internal/export"
	"github.com/John-Robertt/CineMatch/internal/ingest"
	"github.com/John-Robertt/CineMatch/internal/store"
)

// ExportSink 把记录写成导出文件；Store 非空时同时写入 SQLite，
// Index 为 true 时再把评论切块写入全文索引。
type ExportSink struct {
	Writer *export.Writer
	Store  *store.SQLite
	Index  bool
	// MaxWords 是评论切块的词数上限；<= 0 使用 ingest 默认值。
	MaxWords int
}

var _ Sink = ExportSink{}

func (s ExportSink) Exists(title string) bool {
	return s.Writer.Exists(title)
}

func (s ExportSink) Save(ctx context.Context, rec domain.MovieRecord) (string, error) {
	p, err := s.Writer.Save(rec)
	if err != nil {
		return "", err
	}
	if s.Store == nil {
		return p.JSON, nil
	}
	if err := s.Store.SaveRecord(ctx, rec); err != nil {
		return p.JSON, err
	}
	if s.Index {
		docs := ingest.BuildDocuments(rec, s.MaxWords)
		if err := s.Store.AddDocuments(ctx, docs); err != nil {
			return p.JSON, eris.Wrapf(err, "index reviews for %s", rec.CanonicalID)
		}
	}
	return p.JSON, nil
}
