package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "dura",
	Short: "Protect uncommitted work with background git snapshots",
	Long: `dura is a background daemon that protects uncommitted edits across a
collection of watched repositories by recording them as hidden snapshot
commits on side branches. It never touches HEAD, the active branch, the
working tree, or the index — only new objects and refs under refs/heads/dura
and refs/tags/dura are written.`,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dura %s\n", Version)
	},
}

// Execute runs the root command. If the first argument names a
// "dura-<cmd>" external subcommand found on PATH, control is handed off
// to it instead (see extend.go).
func Execute() error {
	if handed, err := tryExternalSubcommand(); handed {
		return err
	}
	return rootCmd.Execute()
}
