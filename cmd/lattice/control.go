package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/lattice/internal/control"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Signal a running lattice process",
	Long: `Send control signals to a lattice run in this project directory.

Signals are exchanged through marker files under .lattice/control, so
they work across processes. A paused run resumes where it left off; a
stopped run finishes its current subtask and exits.`,
}

var controlStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active run after its current subtask",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWatcher(func(w *control.Watcher) error {
			if err := w.SendStop(); err != nil {
				return err
			}
			fmt.Println("stop signal sent")
			return nil
		})
	},
}

var controlPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the active run between subtasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWatcher(func(w *control.Watcher) error {
			if err := w.SendPause(); err != nil {
				return err
			}
			fmt.Println("pause signal sent")
			return nil
		})
	},
}

var controlResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused run",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWatcher(func(w *control.Watcher) error {
			if err := w.Resume(); err != nil {
				return err
			}
			fmt.Println("resume signal sent")
			return nil
		})
	},
}

func init() {
	controlCmd.AddCommand(controlStopCmd)
	controlCmd.AddCommand(controlPauseCmd)
	controlCmd.AddCommand(controlResumeCmd)
}

func withWatcher(fn func(*control.Watcher) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	w, err := control.NewWatcher(cwd)
	if err != nil {
		return fmt.Errorf("open control directory: %w", err)
	}
	defer w.Close()
	return fn(w)
}
