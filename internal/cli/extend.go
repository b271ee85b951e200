package cli

import (
	"os"
	"os/exec"
)

// builtinCommands are the subcommands dura implements itself; anything
// else is a candidate for the dura-<cmd> extension mechanism.
var builtinCommands = map[string]bool{
	"capture": true,
	"serve":   true,
	"watch":   true,
	"unwatch": true,
	"kill":    true,
	"version": true,
	"help":    true,
}

// tryExternalSubcommand looks for a "dura-<cmd>" executable on PATH when
// the first argument is not one of dura's own subcommands, mirroring
// git's and cargo's plugin conventions. When found, it runs it with the
// remaining arguments, inheriting this process's stdio, and exits this
// process with the child's exit code — control never returns to the
// caller in that case, matching the reference CLI's hand-off semantics.
func tryExternalSubcommand() (handed bool, err error) {
	if len(os.Args) < 2 {
		return false, nil
	}
	name := os.Args[1]
	if builtinCommands[name] || name == "-h" || name == "--help" || name == "-v" || name == "--version" {
		return false, nil
	}

	bin, lookErr := exec.LookPath("dura-" + name)
	if lookErr != nil {
		return false, nil
	}

	cmd := exec.Command(bin, os.Args[2:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if runErr := cmd.Run(); runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
	os.Exit(0)
	return true, nil // unreachable
}
