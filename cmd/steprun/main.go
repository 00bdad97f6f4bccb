// Package main is the entry point for the steprun CLI.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/steprun/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "steprun:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
