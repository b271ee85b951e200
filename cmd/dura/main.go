package main

import (
	"os"

	"github.com/tkellogg/dura/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
