package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/lattice/internal/oracle"
	"github.com/ShayCichocki/lattice/pkg/models"
)

// Atomic executes a task without decomposition: an explicit tool call,
// a plain callable, or one oracle round-trip that may request tool calls.
type Atomic struct{}

// NewAtomic creates the atomic strategy.
func NewAtomic() *Atomic {
	return &Atomic{}
}

// Name implements Strategy.
func (a *Atomic) Name() string { return "atomic" }

// CanHandle accepts any task without subtasks.
func (a *Atomic) CanHandle(task *Task, ec *Context) bool {
	return len(task.Subtasks) == 0
}

// Execute runs the task. Kind precedence: explicit tool, then callable,
// then the oracle path.
func (a *Atomic) Execute(ctx context.Context, task *Task, ec *Context) (*models.Result, error) {
	switch {
	case task.Tool != "":
		return a.executeTool(ctx, task, ec)
	case task.Func != nil:
		return a.executeFunc(ctx, task, ec)
	default:
		return a.executeOracle(ctx, task, ec)
	}
}

// executeTool runs the explicitly named tool through the retry subsystem
// and stores declared outputs.
func (a *Atomic) executeTool(ctx context.Context, task *Task, ec *Context) (*models.Result, error) {
	data, err := invokeTool(ctx, task.Tool, task.Inputs, ec)
	if err != nil {
		return models.Fail(err.Error()), nil
	}

	if err := storeOutputs(ec.Artifacts, task.Outputs, []any{data}, task.Tool, consumedNames(task.Inputs)); err != nil {
		return models.Fail(err.Error()), nil
	}

	result := models.Ok(data)
	result.Artifacts = task.Outputs
	return result, nil
}

// executeFunc runs a plain callable through the retry subsystem.
func (a *Atomic) executeFunc(ctx context.Context, task *Task, ec *Context) (*models.Result, error) {
	operationID := "func:" + task.Description
	data, err := ec.Retryer.Do(ctx, operationID, func(ctx context.Context) (any, error) {
		return task.Func(ctx)
	})
	if err != nil {
		return models.Fail(err.Error()), nil
	}

	if err := storeOutputs(ec.Artifacts, task.Outputs, []any{data}, "func", nil); err != nil {
		return models.Fail(err.Error()), nil
	}

	result := models.Ok(data)
	result.Artifacts = task.Outputs
	return result, nil
}

// executeOracle asks the oracle how to execute the task: a direct
// answer, one or more tool calls, or both. Requested calls run in
// sequence through the retry subsystem and fold into one composite
// result; declared outputs are stored from the call results.
func (a *Atomic) executeOracle(ctx context.Context, task *Task, ec *Context) (*models.Result, error) {
	prompt := oracle.ToolPlanPrompt(task.Description, task.Conversation, artifactCatalog(ec), ec.Tools.Catalog())

	raw, err := ec.Retryer.Do(ctx, "oracle:tool-plan", func(ctx context.Context) (any, error) {
		return ec.Oracle.Complete(ctx, prompt)
	})
	if err != nil {
		return models.Fail(fmt.Sprintf("oracle call failed: %v", err)), nil
	}

	plan, err := oracle.ParseToolCallPlan(raw.(string))
	if err != nil {
		return models.Fail(err.Error()), nil
	}

	if len(plan.Calls) == 0 {
		if strings.TrimSpace(plan.Response) == "" {
			return models.Fail("oracle returned neither an answer nor tool calls"), nil
		}
		result := models.Ok(plan.Response)
		if err := storeOutputs(ec.Artifacts, task.Outputs, []any{plan.Response}, "oracle", nil); err != nil {
			return models.Fail(err.Error()), nil
		}
		result.Artifacts = task.Outputs
		return result, nil
	}

	var values []any
	var failures []string
	for _, call := range plan.Calls {
		data, err := invokeTool(ctx, call.Name, call.Args, ec)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", call.Name, err))
			continue
		}
		values = append(values, data)
	}

	if len(failures) > 0 {
		msg := fmt.Sprintf("%d of %d tool calls failed: %s", len(failures), len(plan.Calls), strings.Join(failures, "; "))
		return models.Fail(msg), nil
	}

	if err := storeOutputs(ec.Artifacts, task.Outputs, values, "oracle", nil); err != nil {
		return models.Fail(err.Error()), nil
	}

	result := models.Ok(composeValues(plan.Response, values))
	result.Artifacts = task.Outputs
	return result, nil
}

// composeValues folds a textual response and tool results into one value.
func composeValues(response string, values []any) any {
	if len(values) == 1 && response == "" {
		return values[0]
	}
	if len(values) == 0 {
		return response
	}
	return map[string]any{"response": response, "results": values}
}

// artifactCatalog renders the in-scope artifacts for a prompt.
func artifactCatalog(ec *Context) string {
	var b strings.Builder
	for _, rec := range ec.Artifacts.List() {
		fmt.Fprintf(&b, "- @%s (%s): %s\n", rec.Name, rec.Type, rec.Description)
	}
	return b.String()
}
