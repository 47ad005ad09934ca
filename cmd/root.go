package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/moyu-x/file-sorter/internal"
	"github.com/moyu-x/file-sorter/internal/app"
)

var (
	// 全局参数
	sourceDir  string // 源目录
	configPath string // 配置文件路径
	logLevel   string // 日志级别
	quiet      bool   // 只输出警告和错误
)

// rootCmd 不带子命令时直接整理源目录
var rootCmd = &cobra.Command{
	Use:   "file-sorter",
	Short: "按文件类型整理目录中的文件",
	Long: `File Sorter 是一个命令行工具，按扩展名把目录中的文件移动到分类子目录。

主要功能:
- 按扩展名将文件归入 Videos、Pictures、Documents 等分类
- 支持自定义分类表，未知扩展名归入 Other
- 同名冲突可选择跳过、重命名或覆盖
- 预览模式只显示将要执行的操作
- 所有移动都记录在操作日志中，可以撤销
- 统计分类分布、查找内容相同的文件
- 监听目录，出现新文件时自动整理`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSort,
}

// Execute 执行根命令，出错时以非零状态退出
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&sourceDir, "source", "s", internal.DefaultSourceDir, "源目录路径")
	flags.StringVarP(&configPath, "config", "c", "", "配置文件路径 (也可通过 "+internal.ConfigEnvVar+" 指定)")
	flags.StringVar(&logLevel, "log-level", "", "日志级别: debug, info, warn, error")
	flags.BoolVarP(&quiet, "quiet", "q", false, "只输出警告和错误")

	addSortFlags(rootCmd)
}

func commonOptions() app.CommonOptions {
	return app.CommonOptions{
		Source:     sourceDir,
		ConfigPath: configPath,
		LogLevel:   logLevel,
		Quiet:      quiet,
	}
}
