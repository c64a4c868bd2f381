// Package tui provides the live run view for lattice. It consumes
// engine events and renders the task tree as it executes.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/lattice/internal/engine"
)

// EventMsg wraps an engine event for the TUI.
type EventMsg struct {
	Event engine.Event
}

// RunDoneMsg signals that the run has completed.
type RunDoneMsg struct {
	Success bool
	Message string
}

// taskRow is one rendered line of the task tree.
type taskRow struct {
	id          string
	description string
	depth       int
	status      string
	action      string
}

// logEntry is one line in the event log pane.
type logEntry struct {
	timestamp time.Time
	message   string
}

// Styles for the run view.
var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC857"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#96E6A1"))
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	logStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	logTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
	summaryOK     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#96E6A1"))
	summaryFailed = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
)

// maxLogLines bounds the event log pane.
const maxLogLines = 12

// App is the bubbletea model for a live run.
type App struct {
	description string
	spinner     spinner.Model

	rows    []taskRow
	rowByID map[string]int
	logs    []logEntry

	width    int
	height   int
	done     bool
	success  bool
	message  string
	quitting bool
}

// New creates the run view for a task description.
func New(description string) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = runningStyle
	return &App{
		description: description,
		spinner:     sp,
		rowByID:     make(map[string]int),
		width:       80,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case EventMsg:
		a.applyEvent(msg.Event)

	case RunDoneMsg:
		a.done = true
		a.success = msg.Success
		a.message = msg.Message
		return a, tea.Quit
	}

	return a, nil
}

// applyEvent folds one engine event into the view state.
func (a *App) applyEvent(ev engine.Event) {
	switch ev.Type {
	case engine.EventTaskStarted, engine.EventSubtaskCreated:
		if _, ok := a.rowByID[ev.TaskID]; !ok {
			a.rowByID[ev.TaskID] = len(a.rows)
			a.rows = append(a.rows, taskRow{
				id:          ev.TaskID,
				description: ev.Description,
				depth:       ev.Depth,
				status:      "running",
			})
		}
	case engine.EventTaskClassified:
		a.log(ev.Timestamp, fmt.Sprintf("classified %s: %s", shortDesc(ev.Description), ev.Classification))
	case engine.EventTaskDecomposed:
		a.log(ev.Timestamp, fmt.Sprintf("decomposed %s: %s", shortDesc(ev.Description), ev.Message))
	case engine.EventEvaluation:
		a.log(ev.Timestamp, fmt.Sprintf("evaluation [%s] %s", ev.Action, ev.Message))
		if i, ok := a.rowByID[ev.TaskID]; ok {
			a.rows[i].action = ev.Action
		}
	case engine.EventCompletionCheck:
		a.log(ev.Timestamp, "completion check: "+ev.Message)
	case engine.EventTaskCompleted:
		if i, ok := a.rowByID[ev.TaskID]; ok {
			a.rows[i].status = "completed"
		}
	case engine.EventTaskFailed:
		if i, ok := a.rowByID[ev.TaskID]; ok {
			a.rows[i].status = "failed"
		}
		a.log(ev.Timestamp, "failed: "+ev.Message)
	}
}

// log appends to the bounded event log.
func (a *App) log(ts time.Time, message string) {
	a.logs = append(a.logs, logEntry{timestamp: ts, message: message})
	if len(a.logs) > maxLogLines {
		a.logs = a.logs[len(a.logs)-maxLogLines:]
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting && !a.done {
		return "interrupted\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("lattice") + "  " + shortDesc(a.description) + "\n\n")

	for _, row := range a.rows {
		indent := strings.Repeat("  ", row.depth)
		var marker string
		switch row.status {
		case "completed":
			marker = doneStyle.Render("✓")
		case "failed":
			marker = failedStyle.Render("✗")
		default:
			if a.done {
				marker = pendingStyle.Render("·")
			} else {
				marker = a.spinner.View()
			}
		}
		line := fmt.Sprintf("%s%s %s", indent, marker, shortDesc(row.description))
		if row.action != "" {
			line += pendingStyle.Render(" (" + row.action + ")")
		}
		b.WriteString(line + "\n")
	}

	if len(a.logs) > 0 {
		b.WriteString("\n")
		for _, entry := range a.logs {
			b.WriteString(logTimeStyle.Render(entry.timestamp.Format("15:04:05")) + " " + logStyle.Render(entry.message) + "\n")
		}
	}

	b.WriteString("\n")
	if a.done {
		if a.success {
			b.WriteString(summaryOK.Render("run completed") + "\n")
		} else {
			b.WriteString(summaryFailed.Render("run failed: "+a.message) + "\n")
		}
	} else {
		b.WriteString(footerStyle.Render("q to quit") + "\n")
	}

	return b.String()
}

// shortDesc truncates a description for single-line rendering.
func shortDesc(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 70 {
		return s[:70] + "..."
	}
	return s
}
