package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/scicore-run/forge/cli/render"
)

// moduleVersion is the canonical library version.
const moduleVersion = "0.1.0"

// versionResponse is the response for the version command.
type versionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// VersionCommand returns the version command. It never contacts the
// kv/queue/store connections.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  []cli.Flag{FormatFlag},
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}
		return r.Render(versionResponse{Version: moduleVersion, Commit: commit})
	}
}
