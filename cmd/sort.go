package cmd

import (
	"github.com/spf13/cobra"

	"github.com/moyu-x/file-sorter/internal"
	"github.com/moyu-x/file-sorter/internal/app"
)

// 整理相关参数，根命令、sort 和 watch 共用
var (
	destDir           string
	dryRun            bool
	organizeByDate    bool
	exifDates         bool
	duplicateStrategy string
	detectContent     bool
	skipIdentical     bool
)

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "按分类整理源目录中的文件",
	Long: `扫描源目录顶层的文件，按扩展名移动到 <目标目录>/<分类>/ 下。
每次移动都会写入操作日志，可以用 undo 命令撤销。`,
	Args: cobra.NoArgs,
	RunE: runSort,
}

func addSortFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&destDir, "dest", "d", "", "目标根目录 (默认为源目录)")
	flags.BoolVarP(&dryRun, "dry-run", "n", false, "预览模式，不实际移动文件")
	flags.BoolVar(&organizeByDate, "organize-by-date", false, "在分类目录下按 YYYY-MM 建子目录")
	flags.BoolVar(&exifDates, "exif-dates", false, "按日期整理时优先使用照片的 EXIF 拍摄时间")
	flags.StringVar(&duplicateStrategy, "duplicate-strategy", string(internal.StrategyRename), "同名冲突策略: skip, rename, replace")
	flags.BoolVar(&detectContent, "detect-content", false, "扩展名未知时按文件内容识别类型")
	flags.BoolVar(&skipIdentical, "skip-identical", false, "目标已有相同内容的文件时跳过")
}

func sortOptions() *app.SortOptions {
	return &app.SortOptions{
		CommonOptions:     commonOptions(),
		Dest:              destDir,
		DryRun:            dryRun,
		OrganizeByDate:    organizeByDate,
		ExifDates:         exifDates,
		DuplicateStrategy: duplicateStrategy,
		DetectContent:     detectContent,
		SkipIdentical:     skipIdentical,
	}
}

func runSort(cmd *cobra.Command, args []string) error {
	opts := sortOptions()

	progress := newProgress(cmd.ErrOrStderr(), quiet)
	opts.Progress = progress.update

	summary, err := app.RunSort(cmd.Context(), opts)
	progress.finish()
	if summary != nil {
		printSummary(cmd.OutOrStdout(), summary, quiet)
	}
	return err
}

func init() {
	addSortFlags(sortCmd)
	rootCmd.AddCommand(sortCmd)
}
