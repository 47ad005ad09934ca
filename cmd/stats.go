package cmd

import (
	"github.com/spf13/cobra"

	"github.com/moyu-x/file-sorter/internal/app"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "按分类统计源目录中的文件",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := commonOptions()
		stats, err := app.RunStats(cmd.Context(), &opts)
		if err != nil {
			return err
		}
		printStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
