// Package main is the entry point for the integrate CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Quarlos/integrationMTS/internal/cli"
)

// Version information (set via ldflags during build).
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cmd := cli.NewRootCommand()
	cmd.Version = version

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			// Usage errors from cobra: unknown flags, missing required flags
			return cli.ExitCommandError
		}
		return exitErr.Code
	}
	return cli.ExitSuccess
}
