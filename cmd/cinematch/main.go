package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/John-Robertt/CineMatch/internal/config"
)

var (
	eff     config.EffectiveConfig
	rootCLI config.CLIArgs
)

var rootCmd = &cobra.Command{
	Use:   "cinematch",
	Short: "电影标题 → 规范化 IMDb 记录（解析、抽取、导出、检索）",
	Long: `cinematch 把自由文本的电影标题解析为 IMDb 条目，逐字段抽取详情页，
导出为 JSON/CSV/NFO，并可把评论写入本地全文索引用于推荐。

stdout 不是终端时只输出一个 JSON 文档；日志与进度走 stderr。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("读取当前目录失败：%w", err)
		}

		flags := cmd.Flags()
		rootCLI.ConcurrencySet = flags.Changed("concurrency")
		rootCLI.RateSet = flags.Changed("rate")
		rootCLI.ProxySet = flags.Changed("proxy")

		e, err := config.LoadEffective(cwd, rootCLI)
		if err != nil {
			return err
		}
		eff = e

		if err := config.InitLogger(eff.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		zap.L().Debug("配置已加载",
			zap.String("config_file", eff.ConfigFile),
			zap.String("data_dir", eff.DataDir),
			zap.Int("concurrency", eff.Concurrency),
		)
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootCLI.ConfigFile, "config", "", "配置文件路径（默认 <data>/cinematch.json 或 ./cinematch.json）")
	pf.StringVar(&rootCLI.DataDir, "data", "", "数据目录（默认 ./data）")
	pf.IntVar(&rootCLI.Concurrency, "concurrency", config.DefaultConcurrency, "批量运行的并发数 [1,32]")
	pf.Float64Var(&rootCLI.RatePerSec, "rate", config.DefaultRatePerSec, "每秒启动的标题数上限；0 表示不限速")
	pf.StringVar(&rootCLI.ProxyURL, "proxy", "", "HTTP/SOCKS5 代理；--proxy= 关闭配置中的代理")
	pf.StringVar(&rootCLI.LogLevel, "log-level", "", "日志级别（debug|info|warn|error）")

	rootCmd.AddCommand(scrapeCmd, bulkCmd, ingestCmd, recommendCmd)
}

// exitError 让子命令决定进程退出码，同时已经自行输出过结果。
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

func main() {
	// Ctrl-C 取消进行中的标题；已完成的条目照常写入报告。
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		if code := config.Code(err); code != "" {
			emitError(code, err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "错误：%v\n", err)
		os.Exit(1)
	}
}
