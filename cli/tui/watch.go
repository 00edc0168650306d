package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/scicore-run/forge/wait"
)

// eventMsg wraps one Event emitted by watchWork.
type eventMsg wait.Event

// DoneMsg wraps watchWork's terminal result, or the error it returned.
type DoneMsg struct {
	Result wait.WatchResult
	Err    error
}

// WatchModel is a Bubble Tea model rendering watchWork's live progress. It
// is fed by two channels a caller drives from the OnEvent callback and the
// WatchWork return value: it never calls into the wait engine itself.
type WatchModel struct {
	workID string
	events <-chan wait.Event
	done   <-chan DoneMsg

	total    int
	finished []wait.TaskResult
	state    wait.State
	err      error
	quitting bool
}

// NewWatchModel creates a model for workID. events should receive one
// wait.Event per OnEvent callback invocation; done should receive exactly
// one value when WatchWork returns, then be left open (not closed) so a
// stray late send doesn't panic.
func NewWatchModel(workID string, events <-chan wait.Event, done <-chan DoneMsg) WatchModel {
	return WatchModel{workID: workID, events: events, done: done}
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), waitForDone(m.done))
}

func waitForEvent(events <-chan wait.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

func waitForDone(done <-chan DoneMsg) tea.Cmd {
	return func() tea.Msg {
		d, ok := <-done
		if !ok {
			return nil
		}
		return d
	}
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case eventMsg:
		if msg.Type == "task:done" {
			m.finished = append(m.finished, wait.TaskResult{TaskID: msg.TaskID, Code: msg.Code})
		}
		m.total = msg.Total
		return m, waitForEvent(m.events)

	case DoneMsg:
		m.state = msg.Result.State
		m.total = msg.Result.Total
		m.finished = msg.Result.Results
		m.err = msg.Err
		return m, nil
	}
	return m, nil
}

func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var succeeded, failed int
	for _, r := range m.finished {
		if r.Code == 0 {
			succeeded++
		} else {
			failed++
		}
	}
	pending := m.total - len(m.finished)
	if pending < 0 {
		pending = 0
	}

	title := TitleStyle.Render(fmt.Sprintf("Watching work %s", m.workID))

	boxes := []string{
		renderStatBox("Total", m.total, highlightColor),
		renderStatBox("Done", succeeded, successColor),
		renderStatBox("Failed", failed, warningColor),
		renderStatBox("Pending", pending, mutedColor),
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, boxes...)

	var status string
	if m.err != nil {
		status = TaskFailStyle.Render(fmt.Sprintf("error: %v", m.err))
	} else if m.state != "" {
		status = TaskDoneStyle.Render(fmt.Sprintf("state: %s", m.state))
	}

	body := title + "\n\n" + row
	if status != "" {
		body += "\n\n" + status
	}
	return body + "\n" + HelpStyle.Render("Press q or Ctrl+C to quit")
}

func renderStatBox(label string, value int, color lipgloss.Color) string {
	box := StatBoxStyle.BorderForeground(color)
	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)
	return box.Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}

// Run starts the TUI program and blocks until it quits.
func Run(model WatchModel) error {
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
