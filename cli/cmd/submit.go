package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/scicore-run/forge/cli/render"
	"github.com/scicore-run/forge/manifest"
	"github.com/scicore-run/forge/submission"
)

// Exit codes. submit/wait/watch share one convention: 0 success, 1 runtime
// failure (connector error, partial batch failure), 2 bad input/config.
const (
	exitSuccess      = 0
	exitRuntimeError = 1
	exitConfigError  = 2
)

// SubmitCommand returns the submit command: create one task, or expand a
// manifest's io.batch into many.
func SubmitCommand() *cli.Command {
	return &cli.Command{
		Name:      "submit",
		Usage:     "Submit a manifest as one task, or expand it into a batch",
		UsageText: "forge submit --manifest <path> [--batch] [--rate <n>] [--stop-on-error]",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{Name: "manifest", Required: true, Usage: "Path to manifest YAML file"},
			&cli.BoolFlag{Name: "batch", Usage: "Expand via the manifest's io.batch config instead of single-task submission"},
			&cli.Float64Flag{Name: "rate", Usage: "Max task publications per second for batch submission (0 = unlimited)"},
			&cli.BoolFlag{Name: "stop-on-error", Usage: "Stop batch submission on the first task failure"},
		),
		Action: submitAction,
	}
}

func submitAction(c *cli.Context) error {
	man, err := manifest.Load(c.String("manifest"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	cl, err := buildClient(c.Context, c)
	if err != nil {
		return err
	}
	defer func() { _ = cl.Close() }()

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	if !c.Bool("batch") {
		result, err := cl.CreateSingle(c.Context, man)
		if err != nil {
			return cli.Exit(fmt.Sprintf("submit failed: %v", err), exitRuntimeError)
		}
		return r.Render(result)
	}

	opts := submission.BatchOptions{RatePerSec: c.Float64("rate"), StopOnError: c.Bool("stop-on-error")}
	result, err := cl.CreateBatch(c.Context, man, opts)
	if err != nil {
		return cli.Exit(fmt.Sprintf("batch submission failed: %v", err), exitRuntimeError)
	}

	if err := r.Render(result); err != nil {
		return err
	}

	for _, t := range result.Tasks {
		if t.Error != nil {
			return cli.Exit("", exitRuntimeError)
		}
	}
	return nil
}
