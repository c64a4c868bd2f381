package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/lattice/internal/tool"
)

var toolsCmd = &cobra.Command{
	Use:   "tools [query]",
	Short: "List registered tools",
	Long: `List the tools the engine can invoke.

With a query argument, ranks tools by discovery relevance the same way
the engine matches tools against a task description.`,
	RunE: runTools,
}

func runTools(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	registry := tool.NewRegistry()
	if err := tool.RegisterBuiltins(registry, cwd); err != nil {
		return fmt.Errorf("register builtin tools: %w", err)
	}

	name := color.New(color.FgCyan, color.Bold)

	if len(args) > 0 {
		query := strings.Join(args, " ")
		candidates := registry.Discover(query)
		if len(candidates) == 0 {
			fmt.Printf("no tools match %q\n", query)
			return nil
		}
		for _, c := range candidates {
			fmt.Printf("%s (score %d)\n  %s\n", name.Sprint(c.Tool.Name()), c.Score, c.Tool.Description())
		}
		return nil
	}

	for _, t := range registry.List() {
		fmt.Printf("%s\n  %s\n", name.Sprint(t.Name()), t.Description())
		if kw := t.Keywords(); len(kw) > 0 {
			fmt.Printf("  keywords: %s\n", strings.Join(kw, ", "))
		}
	}
	return nil
}
