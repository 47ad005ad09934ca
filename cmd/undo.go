package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/moyu-x/file-sorter/internal/app"
)

var undoCmd = &cobra.Command{
	Use:   "undo [count]",
	Short: "撤销最近的移动操作",
	Long: `按时间倒序把最近 count 次移动的文件移回原位置（默认 1 次）。
目标文件已不存在或原位置已被占用的记录不会被撤销，并保留在操作日志中。`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUndo,
}

func runUndo(cmd *cobra.Command, args []string) error {
	count := 1
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("撤销数量必须是正整数: %q", args[0])
		}
		count = n
	}

	result, err := app.RunUndo(cmd.Context(), &app.UndoOptions{
		CommonOptions: commonOptions(),
		Count:         count,
	})
	if result != nil {
		printUndo(cmd.OutOrStdout(), result, quiet)
	}
	return err
}

func init() {
	rootCmd.AddCommand(undoCmd)
}
