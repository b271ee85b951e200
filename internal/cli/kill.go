package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tkellogg/dura/internal/runtimelock"
)

func init() {
	rootCmd.AddCommand(killCmd)
}

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Clear the runtime lock, causing the live daemon to self-exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runtimelock.Clear(); err != nil {
			return err
		}
		fmt.Println("runtime lock cleared")
		return nil
	},
}
