// Package tui provides the Bubble Tea live-progress view for watchWork.
//
// TUI is opt-in only (--tui on the watch command) and read-only: it renders
// the same Event/WatchResult payloads the non-TUI renderer would print, it
// never drives submission or waiting itself.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#3B82F6")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlightColor).
			Padding(0, 2).
			Width(16).
			Align(lipgloss.Center)

	StatLabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Align(lipgloss.Center)

	StatValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Align(lipgloss.Center)

	TaskDoneStyle = lipgloss.NewStyle().Foreground(successColor)
	TaskFailStyle = lipgloss.NewStyle().Foreground(warningColor)
)
