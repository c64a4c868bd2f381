package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/lattice/internal/state"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show run history",
	Long: `Display recent runs from the project history database.

With a run id argument, shows the task-level history for that run.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "Number of recent runs to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = state.GlobalDBPath()
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No run history. Run 'lattice run <task>' to start.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if len(args) > 0 {
		return showRunTasks(db, args[0])
	}
	return showRecentRuns(db)
}

func showRecentRuns(db *state.DB) error {
	runs, err := db.RecentRuns(statusLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	for _, r := range runs {
		fmt.Printf("%s  %s  %s\n", statusBadge(r.Status), r.ID, truncate(r.Description, 60))
		fmt.Printf("   started %s", r.StartedAt.Format("2006-01-02 15:04:05"))
		if r.FinishedAt != nil {
			fmt.Printf("  took %s", r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
		}
		fmt.Println()
		if r.Result != "" {
			fmt.Printf("   %s\n", truncate(r.Result, 70))
		}
	}
	return nil
}

func showRunTasks(db *state.DB, runID string) error {
	tasks, err := db.RunTasks(runID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Printf("No task history for run %s.\n", runID)
		return nil
	}

	for _, task := range tasks {
		indent := strings.Repeat("  ", task.Depth)
		fmt.Printf("%s%s %s\n", indent, statusBadge(task.Status), truncate(task.Description, 70))
		if task.Detail != "" && task.Status == "failed" {
			fmt.Printf("%s   %s\n", indent, truncate(task.Detail, 70))
		}
	}
	return nil
}

func statusBadge(status string) string {
	switch status {
	case "completed":
		return color.GreenString("✓")
	case "failed":
		return color.RedString("✗")
	default:
		return color.YellowString("…")
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
