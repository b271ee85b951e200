package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tkellogg/dura/internal/config"
)

func init() {
	rootCmd.AddCommand(unwatchCmd)
}

var unwatchCmd = &cobra.Command{
	Use:   "unwatch [DIR]",
	Short: "Remove a watch spec for DIR",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		cfg := config.Load()
		removed, err := cfg.Unwatch(dir)
		if err != nil {
			return err
		}
		if !removed {
			fmt.Printf("%s was not watched\n", dir)
			return nil
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("stopped watching %s\n", dir)
		return nil
	},
}
