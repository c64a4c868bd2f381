package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lattice",
	Short: "Hierarchical task execution engine",
	Long: `Lattice executes natural-language tasks by recursively decomposing
them into subtasks, selecting an execution strategy per node, and
invoking registered tools for the leaves.

An oracle (Claude) classifies each task as directly executable or
needing decomposition, plans subtask sequences, and evaluates progress
after every child so the hierarchy can adapt mid-run.

Core capabilities:
- Oracle-driven task classification and decomposition
- Sequential, parallel, and dependency-ordered subtask execution
- Artifact registry with @name references between subtasks
- Per-error-type retry policies with circuit breakers
- Run history persisted to SQLite`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(controlCmd)
	rootCmd.AddCommand(versionCmd)
}
