package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tkellogg/dura/internal/config"
)

var (
	watchInclude  []string
	watchExclude  []string
	watchMaxDepth int
)

func init() {
	watchCmd.Flags().StringSliceVarP(&watchInclude, "include", "i", nil, "Relative path patterns to re-include under an exclude")
	watchCmd.Flags().StringSliceVarP(&watchExclude, "exclude", "e", nil, "Relative path patterns to prune from traversal")
	watchCmd.Flags().IntVarP(&watchMaxDepth, "depth", "d", 255, "Maximum recursion depth below the watch root")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch [DIR]",
	Short: "Add or replace a watch spec for DIR",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		cfg := config.Load()
		if err := cfg.SetWatch(dir, config.RepoSpec{
			Include:  watchInclude,
			Exclude:  watchExclude,
			MaxDepth: watchMaxDepth,
		}); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("watching %s\n", dir)
		return nil
	},
}
