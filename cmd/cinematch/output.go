package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

func isTTY(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

// emitJSON 把 v 以 JSON 写到 w；终端上缩进，管道中单行。
func emitJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

type errorDoc struct {
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// emitError 输出结构化错误：非 TTY 时 stdout 仍然只有一个 JSON 文档。
func emitError(code string, err error) {
	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stderr, "%s：%v\n", code, err)
		return
	}
	_ = emitJSON(os.Stdout, errorDoc{ErrorCode: code, ErrorMsg: err.Error()}, false)
	fmt.Fprintf(os.Stderr, "%s：%v\n", code, err)
}
