package main

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/John-Robertt/CineMatch/internal/assemble"
	"github.com/John-Robertt/CineMatch/internal/config"
	"github.com/John-Robertt/CineMatch/internal/export"
	"github.com/John-Robertt/CineMatch/internal/extract"
	"github.com/John-Robertt/CineMatch/internal/fetch"
	"github.com/John-Robertt/CineMatch/internal/infra/cache"
	"github.com/John-Robertt/CineMatch/internal/infra/httpx"
	"github.com/John-Robertt/CineMatch/internal/search"
	"github.com/John-Robertt/CineMatch/internal/store"
)

// DBFileName 是数据目录下的 SQLite 文件名。
const DBFileName = "cinematch.db"

// pipeline 是一次命令执行所需的全部协作者。
type pipeline struct {
	fetcher   fetch.Fetcher
	assembler *assemble.Assembler
	writer    *export.Writer
}

// newPipeline 按生效配置组装 HTTP client、页面缓存、搜索与 Assembler。
// readOnly 为 true 时页面缓存只读（dry-run 不落盘）。
func newPipeline(eff config.EffectiveConfig, readOnly bool, logger *zap.Logger) (*pipeline, error) {
	opts := eff.HTTP
	opts.Logger = logger
	client, err := httpx.NewClient(opts)
	if err != nil {
		return nil, err
	}

	var f fetch.Fetcher = fetch.HTTP{Client: client}
	if eff.Cache {
		f = cache.Fetcher{Next: f, Store: cache.New(eff.DataDir, readOnly), Logger: logger}
	}

	asm := &assemble.Assembler{
		Searcher:      search.DDG{BaseURL: eff.Search.BaseURL, Client: client},
		Fetcher:       f,
		Registry:      extract.DefaultRegistry(eff.Extract),
		Resolve:       eff.Resolve,
		BaseURL:       eff.IMDb.BaseURL,
		MaxResults:    eff.Search.MaxResults,
		UserReviews:   reviewCount(eff.Search.UserReviews),
		CriticReviews: reviewCount(eff.Search.CriticReviews),
		Logger:        logger,
	}

	return &pipeline{
		fetcher:   f,
		assembler: asm,
		writer:    export.New(eff.DataDir, logger),
	}, nil
}

// reviewCount 把配置中的 0（不抓取）映射为 Assembler 的 -1；Assembler 把 0 当作“使用默认值”。
func reviewCount(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

// openStore 打开 <data>/cinematch.db（数据目录不存在时先创建）。
func openStore(ctx context.Context, eff config.EffectiveConfig) (*store.SQLite, error) {
	if err := os.MkdirAll(eff.DataDir, 0o755); err != nil {
		return nil, err
	}
	return store.Open(ctx, filepath.Join(eff.DataDir, DBFileName))
}
