package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/moyu-x/file-sorter/internal/app"
	"github.com/moyu-x/file-sorter/pkg/sorter"
	"github.com/moyu-x/file-sorter/pkg/watch"
)

var debounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "监听源目录，出现新文件时自动整理",
	Long: `先整理一次源目录，然后持续监听。新文件写入稳定后（防抖时间内没有新事件）
再次执行整理。按 Ctrl+C 退出。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		return app.RunWatch(cmd.Context(), &app.WatchOptions{
			SortOptions: *sortOptions(),
			Debounce:    debounce,
			OnSort: func(summary *sorter.Summary) {
				if summary.Stats.Scanned > 0 {
					printSummary(out, summary, quiet)
				}
			},
		})
	},
}

func init() {
	addSortFlags(watchCmd)
	watchCmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "最后一次文件变化后等待的时间")
	rootCmd.AddCommand(watchCmd)
}
