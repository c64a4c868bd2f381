package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ShayCichocki/lattice/internal/artifact"
	"github.com/ShayCichocki/lattice/internal/oracle"
	"github.com/ShayCichocki/lattice/internal/progress"
	"github.com/ShayCichocki/lattice/internal/strategy"
	"github.com/ShayCichocki/lattice/pkg/models"
)

// runTask drives one task from pending to a terminal state. It is
// re-entered recursively for every subtask.
func (e *Engine) runTask(ctx context.Context, runID, taskID string, reg *artifact.Registry, ancestors []string) *models.Result {
	t, ok := e.Task(taskID)
	if !ok {
		return models.Fail(fmt.Sprintf("unknown task id %s", taskID))
	}

	e.emit(Event{
		Type:        EventTaskStarted,
		RunID:       runID,
		TaskID:      taskID,
		ParentID:    t.ParentID,
		Description: t.Description,
		Depth:       t.Metadata.Depth,
	})

	// The depth ceiling is checked before any oracle contact.
	if t.Metadata.Depth > e.maxDepth {
		err := &DepthExceededError{Depth: t.Metadata.Depth, MaxDepth: e.maxDepth}
		return e.fail(runID, taskID, models.Fail(err.Error()))
	}

	e.markInProgress(taskID)

	classification := t.Metadata.Classification
	if classification == models.ClassificationUnset {
		var err error
		classification, err = e.classify(ctx, t)
		if err != nil {
			return e.fail(runID, taskID, models.Fail(fmt.Sprintf("classification failed: %v", err)))
		}
		e.setClassification(taskID, classification)
		e.emit(Event{
			Type:           EventTaskClassified,
			RunID:          runID,
			TaskID:         taskID,
			Description:    t.Description,
			Classification: classification,
		})
	}

	if classification == models.ClassificationSimple {
		return e.runSimple(ctx, runID, taskID, reg, ancestors)
	}
	return e.runComplex(ctx, runID, taskID, reg, ancestors)
}

// classify asks the oracle for a complexity label. An unparseable
// response defaults to SIMPLE so the task still makes forward progress;
// a call failure after retries is an error.
func (e *Engine) classify(ctx context.Context, t models.Task) (models.Classification, error) {
	prompt := oracle.ClassificationPrompt(t.Description)
	raw, err := e.retryer.Do(ctx, "oracle:classify", func(ctx context.Context) (any, error) {
		return e.oracle.Complete(ctx, prompt)
	})
	if err != nil {
		return models.ClassificationUnset, err
	}

	decision, perr := oracle.ParseClassification(raw.(string))
	if perr != nil {
		debugLog("task %s: classification unparseable, defaulting to SIMPLE: %v", t.ID, perr)
		return models.ClassificationSimple, nil
	}
	return decision.Complexity, nil
}

// runSimple executes a SIMPLE task atomically. Zero discovered tools is
// an immediate failure; no null execution is attempted.
func (e *Engine) runSimple(ctx context.Context, runID, taskID string, reg *artifact.Registry, ancestors []string) *models.Result {
	t, _ := e.Task(taskID)

	if len(e.tools.Discover(t.Description)) == 0 {
		err := &NoToolsFoundError{Description: t.Description}
		return e.fail(runID, taskID, models.Fail(err.Error()))
	}

	task := &strategy.Task{
		Description:  t.Description,
		Conversation: t.Conversation,
	}
	ec := e.execContext(runID, taskID, t.Metadata.Depth, ancestors, reg)

	strat, err := e.selector.Select(task, ec)
	if err != nil {
		return e.fail(runID, taskID, models.Fail(err.Error()))
	}

	result, err := strat.Execute(ctx, task, ec)
	if err != nil {
		return e.fail(runID, taskID, models.Fail(err.Error()))
	}
	return e.finish(runID, taskID, result)
}

// runComplex decomposes the task if needed and executes its plan one
// subtask at a time, consulting the oracle after every child.
func (e *Engine) runComplex(ctx context.Context, runID, taskID string, reg *artifact.Registry, ancestors []string) *models.Result {
	t, _ := e.Task(taskID)

	if !t.Metadata.IsDecomposed {
		plan, err := e.decompose(ctx, t)
		if err != nil {
			return e.fail(runID, taskID, models.Fail(err.Error()))
		}
		if !plan.Decompose {
			// The oracle judged the task directly executable after all.
			return e.runSimple(ctx, runID, taskID, reg, ancestors)
		}
		e.setPlan(taskID, plan.Subtasks)
		e.emit(Event{
			Type:        EventTaskDecomposed,
			RunID:       runID,
			TaskID:      taskID,
			Description: t.Description,
			Message:     fmt.Sprintf("%d subtasks (%s)", len(plan.Subtasks), plan.Strategy),
		})
	}

	t, _ = e.Task(taskID)
	calc := progress.NewCalculator(len(t.Metadata.PlannedSubtasks))
	for _, spec := range t.Metadata.PlannedSubtasks {
		if spec.Weight > 1 {
			calc.SetWeight(spec.Description, spec.Weight)
		}
	}

	var childResults []*models.Result
	parseFailures := 0

	for {
		if err := ctx.Err(); err != nil {
			return e.fail(runID, taskID, models.Fail(err.Error()))
		}
		if e.gate != nil {
			if err := e.gate.Wait(ctx); err != nil {
				return e.fail(runID, taskID, models.Fail(fmt.Sprintf("run stopped: %v", err)))
			}
		}

		t, _ = e.Task(taskID)
		idx := t.Metadata.CurrentSubtaskIndex
		planned := t.Metadata.PlannedSubtasks

		if idx >= len(planned) {
			done, result := e.checkCompletion(ctx, runID, taskID, reg, childResults, &parseFailures)
			if done {
				return result
			}
			continue
		}

		spec := planned[idx]
		calc.StartStep(spec.Description)

		childReg := reg.Child()
		childAncestors := append(append([]string(nil), ancestors...), t.Description)
		childResult := e.runChildSpec(ctx, runID, taskID, spec, t.Metadata.Depth+1, childReg, childAncestors)
		childResults = append(childResults, childResult)
		calc.CompleteStep(spec.Description)

		e.addMessage(taskID, "assistant", summarizeChild(spec.Description, childResult))

		remaining := len(planned) - idx - 1
		eval, perr := e.evaluate(ctx, taskID, spec, childResult, childReg, remaining)
		if perr != nil {
			parseFailures++
			debugLog("task %s: evaluation unparseable (%d/%d): %v", taskID, parseFailures, e.maxEvalRetries, perr)
			if parseFailures > e.maxEvalRetries {
				err := &EvaluationLimitError{TaskID: taskID, Attempts: parseFailures}
				return e.fail(runID, taskID, models.Fail(err.Error()))
			}
			eval = oracle.ParentEvaluation{Action: oracle.ActionContinue, Reason: "evaluation unparseable, continuing"}
		} else {
			parseFailures = 0
		}

		// Promotion is a filter: only names the oracle listed cross the
		// child/parent boundary.
		if missing := reg.Promote(childReg, eval.RelevantArtifacts); len(missing) > 0 {
			debugLog("task %s: promotion skipped unknown artifacts %v", taskID, missing)
		}

		e.emit(Event{
			Type:        EventEvaluation,
			RunID:       runID,
			TaskID:      taskID,
			Description: spec.Description,
			Action:      string(eval.Action),
			Message:     fmt.Sprintf("%.0f%% complete: %s", calc.Percentage(), eval.Reason),
		})

		switch eval.Action {
		case oracle.ActionContinue:
			e.advanceSubtask(taskID)
		case oracle.ActionComplete:
			value := eval.Result
			if value == nil {
				value = foldChildValues(childResults)
			}
			return e.finish(runID, taskID, models.Ok(value))
		case oracle.ActionFail:
			return e.fail(runID, taskID, models.Fail(orReason(eval.Reason, "parent evaluation decided fail")))
		case oracle.ActionCreateSubtask:
			e.insertSubtask(taskID, *eval.NewSubtask)
			e.advanceSubtask(taskID)
		}
	}
}

// decompose requests a decomposition plan. A call failure, a parse
// failure, or an empty plan is fatal to the task.
func (e *Engine) decompose(ctx context.Context, t models.Task) (oracle.DecompositionPlan, error) {
	prompt := oracle.DecompositionPrompt(t.Description, e.tools.Catalog())
	raw, err := e.retryer.Do(ctx, "oracle:decompose", func(ctx context.Context) (any, error) {
		return e.oracle.Complete(ctx, prompt)
	})
	if err != nil {
		return oracle.DecompositionPlan{}, &DecompositionFailedError{TaskID: t.ID, Reason: err.Error()}
	}

	plan, perr := oracle.ParseDecomposition(raw.(string))
	if perr != nil {
		return oracle.DecompositionPlan{}, &DecompositionFailedError{TaskID: t.ID, Reason: perr.Error()}
	}
	if plan.Decompose && len(plan.Subtasks) == 0 {
		return oracle.DecompositionPlan{}, &DecompositionFailedError{TaskID: t.ID, Reason: "empty plan"}
	}
	return plan, nil
}

// runChildSpec creates a child task for a planned subtask and runs it to
// a terminal state. A spec naming an explicit tool executes atomically
// without a classification round-trip.
func (e *Engine) runChildSpec(ctx context.Context, runID, parentID string, spec models.SubtaskSpec, depth int, reg *artifact.Registry, ancestors []string) *models.Result {
	child := e.newTask(parentID, spec.Description, depth)
	e.emit(Event{
		Type:        EventSubtaskCreated,
		RunID:       runID,
		TaskID:      child.ID,
		ParentID:    parentID,
		Description: spec.Description,
		Depth:       depth,
	})

	if depth > e.maxDepth {
		err := &DepthExceededError{Depth: depth, MaxDepth: e.maxDepth}
		return e.fail(runID, child.ID, models.Fail(err.Error()))
	}

	if spec.Tool != "" {
		e.setClassification(child.ID, models.ClassificationSimple)
		e.markInProgress(child.ID)

		task := &strategy.Task{
			Description: spec.Description,
			Tool:        spec.Tool,
			Inputs:      spec.Inputs,
			Outputs:     spec.Outputs,
		}
		ec := e.execContext(runID, child.ID, depth, ancestors, reg)
		result, err := strategy.NewAtomic().Execute(ctx, task, ec)
		if err != nil {
			return e.fail(runID, child.ID, models.Fail(err.Error()))
		}
		return e.finish(runID, child.ID, result)
	}

	return e.runTask(ctx, runID, child.ID, reg, ancestors)
}

// evaluate asks the parent's oracle what to do after a child terminated.
func (e *Engine) evaluate(ctx context.Context, taskID string, spec models.SubtaskSpec, childResult *models.Result, childReg *artifact.Registry, remaining int) (oracle.ParentEvaluation, error) {
	t, _ := e.Task(taskID)

	prompt := oracle.EvaluationPrompt(
		t.Description,
		t.Conversation,
		summarizeChild(spec.Description, childResult),
		renderCatalog(childReg),
		remaining,
	)
	raw, err := e.retryer.Do(ctx, "oracle:evaluate", func(ctx context.Context) (any, error) {
		return e.oracle.Complete(ctx, prompt)
	})
	if err != nil {
		return oracle.ParentEvaluation{}, err
	}
	return oracle.ParseEvaluation(raw.(string))
}

// checkCompletion runs the plan-exhausted completion check. It returns
// done=false when the oracle supplied one more ad-hoc subtask. Repeated
// unparseable verdicts complete the task with the aggregated child
// values rather than looping forever.
func (e *Engine) checkCompletion(ctx context.Context, runID, taskID string, reg *artifact.Registry, childResults []*models.Result, parseFailures *int) (bool, *models.Result) {
	t, _ := e.Task(taskID)

	prompt := oracle.CompletionPrompt(t.Description, t.Conversation, renderCatalog(reg))
	raw, err := e.retryer.Do(ctx, "oracle:completion", func(ctx context.Context) (any, error) {
		return e.oracle.Complete(ctx, prompt)
	})
	if err != nil {
		// The plan is exhausted and the oracle is unreachable; the
		// children's work still stands.
		debugLog("task %s: completion check failed, completing with aggregate: %v", taskID, err)
		return true, e.finish(runID, taskID, models.Ok(foldChildValues(childResults)))
	}

	check, perr := oracle.ParseCompletionCheck(raw.(string))
	if perr != nil {
		*parseFailures++
		debugLog("task %s: completion check unparseable (%d/%d): %v", taskID, *parseFailures, e.maxEvalRetries, perr)
		if *parseFailures > e.maxEvalRetries {
			return true, e.finish(runID, taskID, models.Ok(foldChildValues(childResults)))
		}
		return false, nil
	}
	*parseFailures = 0

	e.emit(Event{
		Type:        EventCompletionCheck,
		RunID:       runID,
		TaskID:      taskID,
		Description: t.Description,
		Message:     check.Reason,
	})

	if check.Complete {
		value := check.Result
		if value == nil {
			value = foldChildValues(childResults)
		}
		return true, e.finish(runID, taskID, models.Ok(value))
	}
	if check.NextSubtask != nil {
		e.appendSubtask(taskID, *check.NextSubtask)
		return false, nil
	}
	// Not complete but no next subtask either; aggregate and move on.
	return true, e.finish(runID, taskID, models.Ok(foldChildValues(childResults)))
}

// execContext builds the strategy context for a task, wiring the runner
// back into the engine's state machine.
func (e *Engine) execContext(runID, taskID string, depth int, ancestors []string, reg *artifact.Registry) *strategy.Context {
	return &strategy.Context{
		Depth:     depth,
		MaxDepth:  e.maxDepth,
		Ancestors: ancestors,
		Oracle:    e.oracle,
		Tools:     e.tools,
		Artifacts: reg,
		Retryer:   e.retryer,
		Run: func(ctx context.Context, spec models.SubtaskSpec, ec *strategy.Context) *models.Result {
			return e.runChildSpec(ctx, runID, taskID, spec, ec.Depth, ec.Artifacts, ec.Ancestors)
		},
	}
}

// finish terminates a task with the outcome a strategy produced.
func (e *Engine) finish(runID, taskID string, result *models.Result) *models.Result {
	if !result.Success {
		return e.fail(runID, taskID, result)
	}
	e.completeTask(taskID, result)
	t, _ := e.Task(taskID)
	e.emit(Event{
		Type:        EventTaskCompleted,
		RunID:       runID,
		TaskID:      taskID,
		ParentID:    t.ParentID,
		Description: t.Description,
		Depth:       t.Metadata.Depth,
		Message:     result.Message,
	})
	return result
}

// fail terminates a task with a failure result.
func (e *Engine) fail(runID, taskID string, result *models.Result) *models.Result {
	e.failTask(taskID, result)
	t, _ := e.Task(taskID)
	e.emit(Event{
		Type:        EventTaskFailed,
		RunID:       runID,
		TaskID:      taskID,
		ParentID:    t.ParentID,
		Description: t.Description,
		Depth:       t.Metadata.Depth,
		Message:     result.Error,
		Error:       fmt.Errorf("%s", result.Error),
	})
	return result
}

// summarizeChild renders a terminated child for the parent's
// conversation and evaluation prompt.
func summarizeChild(description string, result *models.Result) string {
	if result.Success {
		return fmt.Sprintf("subtask %q completed: %s", description, compactValue(result.Value))
	}
	return fmt.Sprintf("subtask %q failed: %s", description, result.Error)
}

// compactValue renders a result value for prompt context, truncated so a
// large payload cannot blow up the prompt.
func compactValue(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		return "(no value)"
	case string:
		s = val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			s = fmt.Sprintf("%v", val)
		} else {
			s = string(b)
		}
	}
	s = strings.TrimSpace(s)
	if len(s) > 500 {
		s = s[:500] + "..."
	}
	return s
}

// renderCatalog lists a registry's records for a prompt.
func renderCatalog(reg *artifact.Registry) string {
	var b strings.Builder
	for _, rec := range reg.List() {
		fmt.Fprintf(&b, "- @%s (%s): %s\n", rec.Name, rec.Type, rec.Description)
	}
	return b.String()
}

// foldChildValues aggregates child result values in plan order.
func foldChildValues(results []*models.Result) any {
	if len(results) == 1 {
		return results[0].Value
	}
	values := make([]any, 0, len(results))
	for _, r := range results {
		if r.Success {
			values = append(values, r.Value)
		} else {
			values = append(values, nil)
		}
	}
	return values
}

// orReason returns the reason or a fallback when it is empty.
func orReason(reason, fallback string) string {
	if strings.TrimSpace(reason) == "" {
		return fallback
	}
	return reason
}
