// Package cmd provides CLI commands for the forge binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// ConfigFlag points at an optional YAML config file of defaults.
	ConfigFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to YAML config file (defaults for kv/queue/store connections)",
	}

	// TUIFlag enables Bubble Tea interactive mode. Only valid for watch.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (watch only)",
	}
)

// ReadOnlyFlags returns the shared flags for the submit/wait/watch commands.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{FormatFlag, ConfigFlag}
}
