package assemble

import (
	"errors"
	"fmt"

	"github.com/John-Robertt/CineMatch/internal/resolve"
)

// Stage 标识失败发生在流水线的哪一步。
type Stage string

const (
	StageSearch  Stage = "search"
	StageResolve Stage = "resolve"
	StageFetch   Stage = "fetch"
	StageParse   Stage = "parse"
)

// Error 是单个标题组装失败的可追溯错误。
// 上层据此把失败归类为 not_found / search_failed / fetch_failed / parse_failed。
type Error struct {
	Title string
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("title=%q stage=%s: %v", e.Title, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound 报告 err 是否为“没有找到匹配的影片”。
func IsNotFound(err error) bool {
	return errors.Is(err, resolve.ErrNotFound)
}

// StageOf 返回 err 链上第一个 *Error 的阶段；不是组装错误时返回 ""。
func StageOf(err error) Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}
