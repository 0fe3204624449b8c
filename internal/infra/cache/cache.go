// Package cache 在 <data>/cache/ 下缓存抓取到的页面。
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/John-Robertt/CineMatch/internal/fetch"
	"github.com/John-Robertt/CineMatch/internal/infra/fsx"
)

// Store 提供 <data>/cache/pages/ 下的页面缓存读写。
//
// 约束：
// - dry-run：只允许读（ReadOnly=true）
// - 正常运行：允许写（ReadOnly=false）
type Store struct {
	Root     string // <data>
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

const maxKeyLen = 120

var unsafeKeyRE = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Key 把 URL 映射为稳定、不含路径分隔符的文件名主干。
// 例如 https://www.imdb.com/title/tt1375666/plotsummary/ → www.imdb.com_title_tt1375666_plotsummary。
func Key(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("url 缺少 host：%q", rawURL)
	}
	s := u.Host + "/" + u.Path
	if u.RawQuery != "" {
		s += "?" + u.RawQuery
	}
	k := strings.Trim(unsafeKeyRE.ReplaceAllString(s, "_"), "_.")
	if len(k) > maxKeyLen || u.RawQuery != "" {
		// 查询串可能很长且含任意字符：截断后追加摘要保证唯一。
		sum := sha256.Sum256([]byte(s))
		if len(k) > maxKeyLen {
			k = k[:maxKeyLen]
		}
		k += "-" + hex.EncodeToString(sum[:6])
	}
	return k, nil
}

// PagePath 返回 URL 对应缓存文件的绝对路径。
func (s Store) PagePath(rawURL string) (string, error) {
	k, err := Key(rawURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, "cache", "pages", k+".html"), nil
}

func (s Store) ReadPage(rawURL string) ([]byte, bool, error) {
	path, err := s.PagePath(rawURL)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s Store) WritePage(rawURL string, html []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	path, err := s.PagePath(rawURL)
	if err != nil {
		return err
	}
	return fsx.WriteFile(path, html, fsx.Replace)
}

// Fetcher 是带读穿缓存的 fetch.Fetcher：命中直接返回，未命中时委托 Next 并写回。
// 写回失败只记日志，不影响本次抓取结果。
type Fetcher struct {
	Next   fetch.Fetcher
	Store  Store
	Logger *zap.Logger
}

func (f Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if f.Next == nil {
		return nil, errors.New("cache: next fetcher 不能为空")
	}
	log := f.Logger
	if log == nil {
		log = zap.L()
	}

	b, ok, err := f.Store.ReadPage(rawURL)
	if err != nil {
		log.Warn("page cache read failed", zap.String("url", rawURL), zap.Error(err))
	}
	if ok && len(b) > 0 {
		log.Debug("page cache hit", zap.String("url", rawURL))
		return b, nil
	}

	b, err = f.Next.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if err := f.Store.WritePage(rawURL, b); err != nil && !errors.Is(err, ErrReadOnly) {
		log.Warn("page cache write failed", zap.String("url", rawURL), zap.Error(err))
	}
	return b, nil
}
