package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ShayCichocki/lattice/internal/artifact"
	"github.com/ShayCichocki/lattice/internal/retry"
	"github.com/ShayCichocki/lattice/internal/tool"
	"github.com/ShayCichocki/lattice/pkg/models"
)

// fakeOracle replays scripted responses in order and counts calls.
type fakeOracle struct {
	mu        sync.Mutex
	responses []string
	calls     int
	err       error
}

func (f *fakeOracle) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("fake oracle: no scripted response")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// newTestEngine builds an engine with the calculator and an emit tool,
// and a retryer that never sleeps.
func newTestEngine(t *testing.T, orc *fakeOracle, opts ...Option) *Engine {
	t.Helper()

	tools := tool.NewRegistry()
	if err := tools.Register(tool.NewCalculator()); err != nil {
		t.Fatalf("register calculator: %v", err)
	}
	emit := tool.NewFuncTool("emit", "returns its value input", []string{"emit", "value"},
		func(ctx context.Context, inputs map[string]any) tool.Result {
			return tool.Ok(inputs["value"])
		})
	if err := tools.Register(emit); err != nil {
		t.Fatalf("register emit: %v", err)
	}

	retryer := retry.New(
		retry.WithJitterMax(0),
		retry.WithSleep(func(ctx context.Context, d time.Duration) error { return ctx.Err() }),
	)
	opts = append([]Option{WithRetryer(retryer)}, opts...)
	return New(orc, tools, opts...)
}

func TestExecuteSimpleCalculation(t *testing.T) {
	orc := &fakeOracle{responses: []string{
		`{"complexity": "SIMPLE", "reasoning": "one arithmetic operation"}`,
		`{"use_tool": {"name": "calculator", "args": {"expression": "7+5"}}}`,
	}}
	e := newTestEngine(t, orc)

	out, err := e.Execute(context.Background(), "Calculate 7 plus 5")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Success {
		t.Fatalf("run failed: %s", out.Message)
	}
	if out.Result != 12.0 {
		t.Errorf("result = %v, want 12", out.Result)
	}

	root, ok := e.Task(out.RootID)
	if !ok {
		t.Fatal("root task missing from arena")
	}
	if root.Status != models.TaskStatusCompleted {
		t.Errorf("root status = %s, want completed", root.Status)
	}
	if root.Metadata.Classification != models.ClassificationSimple {
		t.Errorf("classification = %q, want SIMPLE", root.Metadata.Classification)
	}
}

func TestExecuteComplexThreeChildren(t *testing.T) {
	orc := &fakeOracle{responses: []string{
		`{"complexity": "COMPLEX"}`,
		`{"decompose": true, "strategy": "sequential", "subtasks": [
			{"description": "step one", "tool": "emit", "inputs": {"value": "a"}, "outputs": ["one"]},
			{"description": "step two", "tool": "emit", "inputs": {"value": "b"}, "outputs": ["two"]},
			{"description": "step three", "tool": "emit", "inputs": {"value": "c"}}
		]}`,
		`{"action": "continue", "relevantArtifacts": ["one"], "reason": "first step done"}`,
		`{"action": "continue", "relevantArtifacts": ["two"], "reason": "second step done"}`,
		`{"action": "complete", "result": "all steps done", "reason": "plan finished"}`,
	}}
	e := newTestEngine(t, orc)

	out, err := e.Execute(context.Background(), "Do three things in order")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Success {
		t.Fatalf("run failed: %s", out.Message)
	}
	if out.Result != "all steps done" {
		t.Errorf("result = %v, want all steps done", out.Result)
	}

	root, _ := e.Task(out.RootID)
	if root.Status != models.TaskStatusCompleted {
		t.Errorf("root status = %s, want completed", root.Status)
	}
	if len(root.Children) != 3 {
		t.Fatalf("root has %d children, want 3", len(root.Children))
	}
	for _, childID := range root.Children {
		child, ok := e.Task(childID)
		if !ok {
			t.Fatalf("child %s missing from arena", childID)
		}
		if child.Status != models.TaskStatusCompleted {
			t.Errorf("child %s status = %s, want completed", childID, child.Status)
		}
	}

	// Promotion is a filter: only the named artifacts reached the root
	// scope.
	names := make(map[string]bool)
	for _, rec := range out.Artifacts {
		names[rec.Name] = true
	}
	if !names["one"] || !names["two"] {
		t.Errorf("promoted artifacts = %v, want one and two", names)
	}
	if orc.callCount() != 5 {
		t.Errorf("oracle called %d times, want 5", orc.callCount())
	}
}

func TestDepthExceededNoOracleCalls(t *testing.T) {
	orc := &fakeOracle{}
	e := newTestEngine(t, orc, WithMaxDepth(2))

	deep := e.newTask("", "a task created too deep", 3)
	result := e.runTask(context.Background(), "run-test", deep.ID, artifact.NewRegistry(), nil)

	if result.Success {
		t.Fatal("expected depth-exceeded failure")
	}
	if !strings.Contains(result.Error, "depth") {
		t.Errorf("error = %q, want depth exceeded", result.Error)
	}
	if orc.callCount() != 0 {
		t.Errorf("oracle called %d times, want 0", orc.callCount())
	}

	task, _ := e.Task(deep.ID)
	if task.Status != models.TaskStatusFailed {
		t.Errorf("status = %s, want failed", task.Status)
	}
}

func TestClassificationCached(t *testing.T) {
	orc := &fakeOracle{responses: []string{
		`{"use_tool": {"name": "calculator", "args": {"expression": "2*3"}}}`,
	}}
	e := newTestEngine(t, orc)

	task := e.newTask("", "calculate 2 times 3", 0)
	e.setClassification(task.ID, models.ClassificationSimple)

	result := e.runTask(context.Background(), "run-test", task.ID, artifact.NewRegistry(), nil)
	if !result.Success {
		t.Fatalf("run failed: %s", result.Error)
	}
	// One call for the tool plan, none for classification.
	if orc.callCount() != 1 {
		t.Errorf("oracle called %d times, want 1", orc.callCount())
	}
}

func TestNoSuitableTools(t *testing.T) {
	orc := &fakeOracle{responses: []string{
		`{"complexity": "SIMPLE"}`,
	}}
	retryer := retry.New(
		retry.WithJitterMax(0),
		retry.WithSleep(func(ctx context.Context, d time.Duration) error { return ctx.Err() }),
	)
	e := New(orc, tool.NewRegistry(), WithRetryer(retryer))

	out, err := e.Execute(context.Background(), "translate this document")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Success {
		t.Fatal("expected failure with empty tool registry")
	}
	if !strings.Contains(out.Message, "no suitable tools") {
		t.Errorf("message = %q, want no suitable tools", out.Message)
	}
	if orc.callCount() != 1 {
		t.Errorf("oracle called %d times, want 1 (classification only)", orc.callCount())
	}
}

func TestEvaluationParseFallbackContinues(t *testing.T) {
	orc := &fakeOracle{responses: []string{
		`{"complexity": "COMPLEX"}`,
		`{"decompose": true, "subtasks": [
			{"description": "only step", "tool": "emit", "inputs": {"value": 1}}
		]}`,
		"this is not a decision",
		`{"complete": true, "result": "wrapped up"}`,
	}}
	e := newTestEngine(t, orc)

	out, err := e.Execute(context.Background(), "one step with a confused evaluator")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Success {
		t.Fatalf("run failed: %s", out.Message)
	}
	if out.Result != "wrapped up" {
		t.Errorf("result = %v, want wrapped up", out.Result)
	}
}

func TestCompletionCheckRetriesBounded(t *testing.T) {
	orc := &fakeOracle{responses: []string{
		`{"complexity": "COMPLEX"}`,
		`{"decompose": true, "subtasks": [
			{"description": "only step", "tool": "emit", "inputs": {"value": "payload"}}
		]}`,
		`{"action": "continue"}`,
		"garbage one",
		"garbage two",
	}}
	e := newTestEngine(t, orc, WithMaxEvalRetries(1))

	out, err := e.Execute(context.Background(), "plan exhausted with unparseable verdicts")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// After the bound is hit the task completes with the aggregated
	// child values instead of looping forever.
	if !out.Success {
		t.Fatalf("run failed: %s", out.Message)
	}
	if out.Result != "payload" {
		t.Errorf("result = %v, want payload", out.Result)
	}
	if orc.callCount() != 5 {
		t.Errorf("oracle called %d times, want 5", orc.callCount())
	}
}

func TestCreateSubtaskAction(t *testing.T) {
	orc := &fakeOracle{responses: []string{
		`{"complexity": "COMPLEX"}`,
		`{"decompose": true, "subtasks": [
			{"description": "planned step", "tool": "emit", "inputs": {"value": "planned"}}
		]}`,
		`{"action": "create-subtask", "reason": "one more needed", "newSubtask": {"description": "extra step", "tool": "emit", "inputs": {"value": "extra"}}}`,
		`{"action": "complete", "result": "both ran"}`,
	}}
	e := newTestEngine(t, orc)

	out, err := e.Execute(context.Background(), "a plan that grows")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Success {
		t.Fatalf("run failed: %s", out.Message)
	}

	root, _ := e.Task(out.RootID)
	if len(root.Children) != 2 {
		t.Errorf("root has %d children, want 2 (planned + created)", len(root.Children))
	}
	if len(root.Metadata.PlannedSubtasks) != 2 {
		t.Errorf("plan has %d subtasks, want 2", len(root.Metadata.PlannedSubtasks))
	}
}

func TestEmptyDecompositionFails(t *testing.T) {
	orc := &fakeOracle{responses: []string{
		`{"complexity": "COMPLEX"}`,
		`{"decompose": true, "subtasks": []}`,
	}}
	e := newTestEngine(t, orc)

	out, err := e.Execute(context.Background(), "an undecomposable goal")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Success {
		t.Fatal("expected failure on empty decomposition")
	}
	if !strings.Contains(out.Message, "unable to decompose") {
		t.Errorf("message = %q, want unable to decompose", out.Message)
	}
}

func TestHookPanicDoesNotFailTask(t *testing.T) {
	orc := &fakeOracle{responses: []string{
		`{"complexity": "SIMPLE"}`,
		`{"use_tool": {"name": "calculator", "args": {"expression": "1+1"}}}`,
	}}
	e := newTestEngine(t, orc, WithHook(func(ev Event) {
		panic("sink exploded")
	}))

	out, err := e.Execute(context.Background(), "calculate 1 plus 1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Success {
		t.Fatalf("run failed: %s", out.Message)
	}
}

func TestEmitterReceivesLifecycleEvents(t *testing.T) {
	orc := &fakeOracle{responses: []string{
		`{"complexity": "SIMPLE"}`,
		`{"use_tool": {"name": "calculator", "args": {"expression": "4-1"}}}`,
	}}
	emitter := NewEventEmitter(64)
	e := newTestEngine(t, orc, WithEmitter(emitter))

	out, err := e.Execute(context.Background(), "calculate 4 minus 1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Success {
		t.Fatalf("run failed: %s", out.Message)
	}
	emitter.Close()

	seen := make(map[EventType]bool)
	for ev := range emitter.Events() {
		seen[ev.Type] = true
	}
	for _, want := range []EventType{EventTaskStarted, EventTaskClassified, EventTaskCompleted, EventRunDone} {
		if !seen[want] {
			t.Errorf("missing %s event", want)
		}
	}
}

func TestEmitterDropsWhenFull(t *testing.T) {
	emitter := NewEventEmitter(1)
	emitter.Emit(Event{Type: EventTaskStarted})
	emitter.Emit(Event{Type: EventTaskCompleted}) // buffer full, dropped after timeout
	if emitter.DroppedCount() != 1 {
		t.Errorf("dropped = %d, want 1", emitter.DroppedCount())
	}
}
