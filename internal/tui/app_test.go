package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/lattice/internal/engine"
)

func apply(t *testing.T, app *App, msgs ...tea.Msg) *App {
	t.Helper()
	for _, msg := range msgs {
		model, _ := app.Update(msg)
		var ok bool
		app, ok = model.(*App)
		if !ok {
			t.Fatalf("Update returned %T, want *App", model)
		}
	}
	return app
}

func TestEventsBuildTaskTree(t *testing.T) {
	app := New("build the report")

	app = apply(t, app,
		EventMsg{Event: engine.Event{Type: engine.EventTaskStarted, TaskID: "task-root", Description: "build the report", Depth: 0}},
		EventMsg{Event: engine.Event{Type: engine.EventSubtaskCreated, TaskID: "task-a", Description: "gather data", Depth: 1}},
		EventMsg{Event: engine.Event{Type: engine.EventSubtaskCreated, TaskID: "task-b", Description: "render output", Depth: 1}},
	)

	if len(app.rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(app.rows))
	}
	if app.rows[1].depth != 1 || app.rows[1].description != "gather data" {
		t.Errorf("row 1 = %+v", app.rows[1])
	}
	for _, row := range app.rows {
		if row.status != "running" {
			t.Errorf("row %s status = %q, want running", row.id, row.status)
		}
	}
}

func TestDuplicateStartKeepsOneRow(t *testing.T) {
	app := New("task")
	ev := EventMsg{Event: engine.Event{Type: engine.EventTaskStarted, TaskID: "task-1", Description: "x"}}
	app = apply(t, app, ev, ev)
	if len(app.rows) != 1 {
		t.Errorf("got %d rows, want 1", len(app.rows))
	}
}

func TestTerminalEventsUpdateStatus(t *testing.T) {
	app := New("task")
	app = apply(t, app,
		EventMsg{Event: engine.Event{Type: engine.EventTaskStarted, TaskID: "task-ok"}},
		EventMsg{Event: engine.Event{Type: engine.EventTaskStarted, TaskID: "task-bad"}},
		EventMsg{Event: engine.Event{Type: engine.EventTaskCompleted, TaskID: "task-ok"}},
		EventMsg{Event: engine.Event{Type: engine.EventTaskFailed, TaskID: "task-bad", Message: "no tools"}},
	)

	if app.rows[0].status != "completed" {
		t.Errorf("task-ok status = %q", app.rows[0].status)
	}
	if app.rows[1].status != "failed" {
		t.Errorf("task-bad status = %q", app.rows[1].status)
	}
	if len(app.logs) == 0 || !strings.Contains(app.logs[len(app.logs)-1].message, "no tools") {
		t.Errorf("failure message not logged: %+v", app.logs)
	}
}

func TestEvaluationSetsRowAction(t *testing.T) {
	app := New("task")
	app = apply(t, app,
		EventMsg{Event: engine.Event{Type: engine.EventTaskStarted, TaskID: "task-1"}},
		EventMsg{Event: engine.Event{Type: engine.EventEvaluation, TaskID: "task-1", Action: "continue", Message: "40% complete"}},
	)
	if app.rows[0].action != "continue" {
		t.Errorf("action = %q, want continue", app.rows[0].action)
	}
}

func TestLogIsBounded(t *testing.T) {
	app := New("task")
	for i := 0; i < maxLogLines*2; i++ {
		app = apply(t, app, EventMsg{Event: engine.Event{
			Type:      engine.EventCompletionCheck,
			Message:   "checking",
			Timestamp: time.Now(),
		}})
	}
	if len(app.logs) != maxLogLines {
		t.Errorf("log length = %d, want %d", len(app.logs), maxLogLines)
	}
}

func TestRunDoneQuits(t *testing.T) {
	app := New("task")
	model, cmd := app.Update(RunDoneMsg{Success: true})
	app = model.(*App)
	if !app.done || !app.success {
		t.Errorf("done = %v success = %v", app.done, app.success)
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("command is not tea.Quit")
	}
}

func TestQuitKey(t *testing.T) {
	app := New("task")
	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	app = model.(*App)
	if !app.quitting {
		t.Error("quitting not set")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestViewShowsStatuses(t *testing.T) {
	app := New("build the report")
	app = apply(t, app,
		EventMsg{Event: engine.Event{Type: engine.EventTaskStarted, TaskID: "task-root", Description: "build the report"}},
		EventMsg{Event: engine.Event{Type: engine.EventTaskCompleted, TaskID: "task-root"}},
		RunDoneMsg{Success: true},
	)

	view := app.View()
	if !strings.Contains(view, "build the report") {
		t.Error("view missing task description")
	}
	if !strings.Contains(view, "run completed") {
		t.Error("view missing completion summary")
	}
}
