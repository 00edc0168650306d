// Package main provides the forge CLI entrypoint.
//
// Usage:
//
//	forge <command> [options]
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/scicore-run/forge/cli/cmd"
)

// commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "forge",
		Usage:          "Submit and wait for scientific-computing tasks",
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.SubmitCommand(),
			cmd.WaitCommand(),
			cmd.WatchCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit() instead of always
// exiting 1.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
