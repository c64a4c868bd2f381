package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/lattice/internal/config"
	"github.com/ShayCichocki/lattice/internal/control"
	"github.com/ShayCichocki/lattice/internal/engine"
	"github.com/ShayCichocki/lattice/internal/oracle"
	"github.com/ShayCichocki/lattice/internal/retry"
	"github.com/ShayCichocki/lattice/internal/state"
	"github.com/ShayCichocki/lattice/internal/tool"
)

var (
	runTUI       bool
	runMaxDepth  int
	runNoHistory bool
)

var runCmd = &cobra.Command{
	Use:   "run <task description>",
	Short: "Execute a task",
	Long: `Execute a natural-language task through the lattice engine.

The task is classified by the oracle and either executed directly with
a registered tool or decomposed into subtasks. Progress events stream
to the terminal, or to a live TUI with --tui.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show a live TUI view of the run")
	runCmd.Flags().IntVar(&runMaxDepth, "max-depth", 0, "Override the decomposition depth ceiling")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "Skip recording the run to the history database")
}

func runRun(cmd *cobra.Command, args []string) error {
	description := joinArgs(args)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runMaxDepth > 0 {
		cfg.Engine.MaxDepth = runMaxDepth
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	orc, err := oracle.NewClient(oracle.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		MaxTokens:     int64(cfg.Anthropic.MaxTokens),
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return fmt.Errorf("create oracle client: %w", err)
	}

	tools := tool.NewRegistry()
	if err := tool.RegisterBuiltins(tools, cwd); err != nil {
		return fmt.Errorf("register builtin tools: %w", err)
	}

	retryer, err := buildRetryer(cfg)
	if err != nil {
		return err
	}

	emitter := engine.NewEventEmitter(cfg.Engine.EventBuffer)

	opts := []engine.Option{
		engine.WithMaxDepth(cfg.Engine.MaxDepth),
		engine.WithMaxEvalRetries(cfg.Engine.MaxEvalRetries),
		engine.WithRetryer(retryer),
		engine.WithEmitter(emitter),
	}

	if cfg.Engine.DebugLog {
		logger := engine.NewDebugLoggerForDir(cwd)
		defer logger.Close()
		opts = append(opts, engine.WithLogger(logger))
	}

	var db *state.DB
	if !runNoHistory {
		db, err = state.OpenProject(cwd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
		} else {
			defer db.Close()
			// The run row must exist before task hooks insert history
			// rows that reference it.
			var startOnce sync.Once
			opts = append(opts,
				engine.WithHook(func(ev engine.Event) {
					startOnce.Do(func() {
						if dbErr := db.StartRun(ev.RunID, description); dbErr != nil {
							fmt.Fprintf(os.Stderr, "warning: record run: %v\n", dbErr)
						}
					})
				}),
				engine.WithHook(db.Hook()),
			)
		}
	}

	watcher, err := control.NewWatcher(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: control signals disabled: %v\n", err)
	} else {
		defer watcher.Close()
		watcher.ClearSignals()
		opts = append(opts, engine.WithGate(watcher))
	}

	eng := engine.New(orc, tools, opts...)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if runTUI || cfg.TUI.Enabled {
		return runWithTUI(ctx, eng, emitter, db, description)
	}
	return runPlain(ctx, eng, emitter, db, description)
}

// runPlain executes the task while streaming events as colored log lines.
func runPlain(ctx context.Context, eng *engine.Engine, emitter *engine.EventEmitter, db *state.DB, description string) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range emitter.Events() {
			printEvent(ev)
		}
	}()

	outcome, err := executeRecorded(ctx, eng, db, description)

	emitter.Close()
	wg.Wait()

	if err != nil {
		return err
	}
	printOutcome(outcome)
	if !outcome.Success {
		return fmt.Errorf("run failed: %s", outcome.Message)
	}
	return nil
}

// executeRecorded wraps Execute and finalizes the history row. The run
// row itself is inserted by a first-event hook so task history has a
// parent to reference.
func executeRecorded(ctx context.Context, eng *engine.Engine, db *state.DB, description string) (*engine.Outcome, error) {
	outcome, err := eng.Execute(ctx, description)

	if db != nil && outcome != nil {
		status := "failed"
		result := outcome.Message
		if outcome.Success {
			status = "completed"
			result = compactOutcomeResult(outcome.Result)
		}
		if dbErr := db.FinishRun(outcome.RunID, status, result); dbErr != nil {
			fmt.Fprintf(os.Stderr, "warning: record run: %v\n", dbErr)
		}
	}

	return outcome, err
}

// printEvent renders one engine event as a log line.
func printEvent(ev engine.Event) {
	dim := color.New(color.Faint)
	ts := dim.Sprint(ev.Timestamp.Format("15:04:05"))

	switch ev.Type {
	case engine.EventTaskStarted:
		fmt.Printf("%s %s %s\n", ts, color.CyanString("start"), ev.Description)
	case engine.EventTaskClassified:
		fmt.Printf("%s %s %s\n", ts, color.BlueString("class"), ev.Classification)
	case engine.EventTaskDecomposed:
		fmt.Printf("%s %s %s\n", ts, color.MagentaString("plan "), ev.Message)
	case engine.EventSubtaskCreated:
		fmt.Printf("%s %s %s\n", ts, color.CyanString("child"), ev.Description)
	case engine.EventEvaluation:
		fmt.Printf("%s %s [%s] %s\n", ts, color.YellowString("eval "), ev.Action, ev.Message)
	case engine.EventCompletionCheck:
		fmt.Printf("%s %s %s\n", ts, color.YellowString("check"), ev.Message)
	case engine.EventTaskCompleted:
		fmt.Printf("%s %s %s\n", ts, color.GreenString("done "), ev.Description)
	case engine.EventTaskFailed:
		fmt.Printf("%s %s %s: %s\n", ts, color.RedString("fail "), ev.Description, ev.Message)
	}
}

// printOutcome renders the final run summary.
func printOutcome(outcome *engine.Outcome) {
	fmt.Println()
	if outcome.Success {
		color.Green("✓ run %s completed", outcome.RunID)
		if outcome.Result != nil {
			fmt.Printf("result: %s\n", compactOutcomeResult(outcome.Result))
		}
	} else {
		color.Red("✗ run %s failed", outcome.RunID)
		if outcome.Message != "" {
			fmt.Printf("reason: %s\n", outcome.Message)
		}
	}
	if len(outcome.Artifacts) > 0 {
		fmt.Printf("artifacts: %d\n", len(outcome.Artifacts))
	}
}

// buildRetryer assembles the retry subsystem from config.
func buildRetryer(cfg *config.Config) (*retry.Retryer, error) {
	policies := retry.DefaultPolicies()
	if cfg.Retry.PoliciesFile != "" {
		loaded, err := retry.LoadPolicies(cfg.Retry.PoliciesFile)
		if err != nil {
			return nil, fmt.Errorf("load retry policies: %w", err)
		}
		policies = loaded
	}

	breaker := retry.NewBreakerSet(
		cfg.Retry.BreakerThreshold,
		time.Duration(cfg.Retry.BreakerCooldownSeconds)*time.Second,
	)

	return retry.New(retry.WithPolicies(policies), retry.WithBreaker(breaker)), nil
}

// compactOutcomeResult renders a result value for single-line display.
func compactOutcomeResult(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// joinArgs merges positional args into one task description.
func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}
