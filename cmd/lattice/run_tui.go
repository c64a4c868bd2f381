package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/lattice/internal/engine"
	"github.com/ShayCichocki/lattice/internal/state"
	"github.com/ShayCichocki/lattice/internal/tui"
)

// runWithTUI executes the task behind a live bubbletea view.
func runWithTUI(ctx context.Context, eng *engine.Engine, emitter *engine.EventEmitter, db *state.DB, description string) (retErr error) {
	// Log output corrupts the alt-screen display.
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in TUI run: %v", r)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(tui.New(description), tea.WithAltScreen(), tea.WithContext(ctx))

	// Forward engine events into the TUI.
	go func() {
		for ev := range emitter.Events() {
			program.Send(tui.EventMsg{Event: ev})
		}
	}()

	type runResult struct {
		outcome *engine.Outcome
		err     error
	}
	done := make(chan runResult, 1)

	go func() {
		outcome, err := executeRecorded(ctx, eng, db, description)
		if outcome != nil {
			program.Send(tui.RunDoneMsg{Success: outcome.Success, Message: outcome.Message})
		} else {
			program.Send(tui.RunDoneMsg{Success: false, Message: "run aborted"})
		}
		emitter.Close()
		done <- runResult{outcome: outcome, err: err}
	}()

	finalModel, err := program.Run()
	// Quitting the TUI cancels the run; wait for the engine to unwind.
	cancel()
	res := <-done

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("tui: %w", err)
	}
	if res.err != nil {
		return res.err
	}

	// Replay the final frame so the summary survives leaving the alt screen.
	if app, ok := finalModel.(*tui.App); ok {
		fmt.Print(app.View())
	}
	if res.outcome != nil && !res.outcome.Success {
		return fmt.Errorf("run failed: %s", res.outcome.Message)
	}
	return nil
}
