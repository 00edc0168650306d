package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/scicore-run/forge/cli/render"
	"github.com/scicore-run/forge/wait"
)

// WaitCommand returns the wait command: block for one task, or a set of
// tasks, to complete.
func WaitCommand() *cli.Command {
	return &cli.Command{
		Name:      "wait",
		Usage:     "Wait for one or more tasks to complete",
		UsageText: "forge wait --work <id> --task <id> [--task <id> ...] [--timeout <sec>] [--fail-fast]",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{Name: "work", Required: true, Usage: "WorkId the task(s) belong to"},
			&cli.StringSliceFlag{Name: "task", Required: true, Usage: "TaskId to wait for (repeatable)"},
			&cli.Float64Flag{Name: "timeout", Usage: "Seconds to wait before giving up (0 = no timeout)"},
			&cli.BoolFlag{Name: "fail-fast", Usage: "Return as soon as any task exits non-zero (many-task wait only)"},
		),
		Action: waitAction,
	}
}

func waitAction(c *cli.Context) error {
	cl, err := buildClient(c.Context, c)
	if err != nil {
		return err
	}
	defer func() { _ = cl.Close() }()

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	workID := c.String("work")
	taskIDs := c.StringSlice("task")

	if len(taskIDs) == 1 {
		result, err := cl.WaitForTask(c.Context, workID, taskIDs[0], wait.WaitForTaskOptions{TimeoutSec: c.Float64("timeout")})
		if err != nil {
			return cli.Exit(fmt.Sprintf("wait failed: %v", err), exitRuntimeError)
		}
		if err := r.Render(result); err != nil {
			return err
		}
		return exitForState(result.State)
	}

	result, err := cl.WaitForMany(c.Context, workID, taskIDs, wait.WaitForManyOptions{
		TimeoutSec: c.Float64("timeout"),
		FailFast:   c.Bool("fail-fast"),
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("wait failed: %v", err), exitRuntimeError)
	}
	if err := r.Render(result); err != nil {
		return err
	}
	return exitForState(result.State)
}

// exitForState maps a terminal wait state to an exit code: only DONE is a
// clean success, everything else signals the caller should inspect output.
func exitForState(state wait.State) error {
	if state == wait.StateDone {
		return nil
	}
	return cli.Exit("", exitRuntimeError)
}
