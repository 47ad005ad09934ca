package cmd

import (
	"github.com/spf13/cobra"

	"github.com/moyu-x/file-sorter/internal/app"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "显示合并用户配置后的分类表",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := commonOptions()
		c, err := app.ListCategories(&opts)
		if err != nil {
			return err
		}
		printCategories(cmd.OutOrStdout(), c)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
