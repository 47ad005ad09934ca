package cmd

import (
	"github.com/spf13/cobra"

	"github.com/moyu-x/file-sorter/internal/app"
)

var workers int

var duplicatesCmd = &cobra.Command{
	Use:     "duplicates",
	Aliases: []string{"dups"},
	Short:   "查找源目录中内容相同的文件",
	Long: `使用 xxHash 计算源目录顶层文件的哈希值，列出内容相同的文件组。
只报告，不删除或移动任何文件。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := app.RunDuplicates(cmd.Context(), &app.DuplicatesOptions{
			CommonOptions: commonOptions(),
			Workers:       workers,
		})
		if err != nil {
			return err
		}
		printDuplicates(cmd.OutOrStdout(), rep)
		return nil
	},
}

func init() {
	duplicatesCmd.Flags().IntVarP(&workers, "workers", "w", 0, "并行计算哈希的数量 (默认使用配置或 CPU 核数)")
	rootCmd.AddCommand(duplicatesCmd)
}
