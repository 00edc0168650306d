package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/scicore-run/forge/cli/render"
	"github.com/scicore-run/forge/cli/tui"
	"github.com/scicore-run/forge/client"
	"github.com/scicore-run/forge/wait"
)

// WatchCommand returns the watch command: follow an entire work's task set
// to completion, timeout, or idle.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch a work's task set until all tasks complete",
		UsageText: "forge watch --work <id> [--timeout <sec>] [--idle <sec>] [--expected <n>] [--tui]",
		Flags: append(ReadOnlyFlags(),
			TUIFlag,
			&cli.StringFlag{Name: "work", Required: true, Usage: "WorkId to watch"},
			&cli.Float64Flag{Name: "timeout", Usage: "Seconds to wait before giving up (0 = no timeout)"},
			&cli.Float64Flag{Name: "idle", Usage: "Seconds of no new completions before giving up (0 = disabled)"},
			&cli.IntFlag{Name: "expected", Usage: "Expected task count (0 = read work:<id>:tasks set size)"},
			&cli.IntFlag{Name: "poll-ms", Usage: "Poll interval in milliseconds", Value: 1000},
		),
		Action: watchAction,
	}
}

func watchAction(c *cli.Context) error {
	cl, err := buildClient(c.Context, c)
	if err != nil {
		return err
	}
	defer func() { _ = cl.Close() }()

	workID := c.String("work")
	opts := wait.WatchOptions{
		TimeoutSec: c.Float64("timeout"),
		IdleSec:    c.Float64("idle"),
		Expected:   c.Int("expected"),
		PollMs:     c.Int("poll-ms"),
	}

	if !c.Bool("tui") {
		result, err := cl.WatchWork(c.Context, workID, opts)
		if err != nil {
			return cli.Exit(fmt.Sprintf("watch failed: %v", err), exitRuntimeError)
		}
		r, err := render.NewRenderer(c)
		if err != nil {
			return cli.Exit(err.Error(), exitConfigError)
		}
		if err := r.Render(result); err != nil {
			return err
		}
		return exitForState(result.State)
	}

	return watchWithTUI(c, cl, workID, opts)
}

// watchWithTUI fans watchWork's OnEvent callback into a channel the TUI
// model reads from, and runs WatchWork itself on a background goroutine so
// the Bubble Tea event loop can own the terminal.
func watchWithTUI(c *cli.Context, cl *client.Client, workID string, opts wait.WatchOptions) error {
	events := make(chan wait.Event)
	done := make(chan tui.DoneMsg, 1)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	opts.OnEvent = func(e wait.Event) {
		select {
		case events <- e:
		case <-ctx.Done():
		}
	}

	go func() {
		result, err := cl.WatchWork(ctx, workID, opts)
		close(events)
		done <- tui.DoneMsg{Result: result, Err: err}
	}()

	model := tui.NewWatchModel(workID, events, done)
	if err := tui.Run(model); err != nil {
		return cli.Exit(fmt.Sprintf("tui error: %v", err), exitRuntimeError)
	}
	return nil
}
