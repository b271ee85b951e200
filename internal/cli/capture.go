package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tkellogg/dura/internal/config"
	"github.com/tkellogg/dura/internal/snapshot"
)

func init() {
	rootCmd.AddCommand(captureCmd)
}

var captureCmd = &cobra.Command{
	Use:   "capture [DIR]",
	Short: "Snapshot one repository's uncommitted edits",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		cfg := config.Load()
		result, err := snapshot.Capture(dir, cfg.Identity(), nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "capture: %s\n", err)
			return err
		}
		if result != nil {
			fmt.Println(result.NewCommit.String())
		}
		return nil
	},
}
