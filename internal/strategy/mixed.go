package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/lattice/pkg/models"
)

// ErrCircularDependency indicates no pending subtask can ever become
// ready because the dependency graph contains a cycle.
var ErrCircularDependency = errors.New("circular dependency detected")

// Mixed executes a dependency-aware subtask graph: it repeatedly
// computes the set of subtasks whose dependencies have all terminated,
// runs that set concurrently, merges its artifacts, and repeats.
type Mixed struct{}

// NewMixed creates the mixed strategy.
func NewMixed() *Mixed {
	return &Mixed{}
}

// Name implements Strategy.
func (m *Mixed) Name() string { return "mixed" }

// CanHandle accepts tasks with subtasks in mixed mode, or with any
// declared dependency between subtasks.
func (m *Mixed) CanHandle(task *Task, ec *Context) bool {
	if len(task.Subtasks) == 0 {
		return false
	}
	if task.Mode == "mixed" {
		return true
	}
	if task.Mode != "" {
		return false
	}
	for _, spec := range task.Subtasks {
		if len(spec.DependsOn) > 0 {
			return true
		}
	}
	return false
}

// Execute runs ready sets until all subtasks have terminated. Unknown
// dependency names and cycles are fatal; a critical failure aborts the
// remaining graph.
func (m *Mixed) Execute(ctx context.Context, task *Task, ec *Context) (*models.Result, error) {
	if err := validateDependencies(task.Subtasks); err != nil {
		return models.Fail(err.Error()), err
	}

	done := make(map[string]bool, len(task.Subtasks))
	results := make([]*models.Result, len(task.Subtasks))
	pending := len(task.Subtasks)

	for pending > 0 {
		if err := ctx.Err(); err != nil {
			return models.Fail(err.Error()), err
		}

		// Collect subtasks whose dependencies have all terminated.
		var readyIdx []int
		var readySpecs []models.SubtaskSpec
		for i, spec := range task.Subtasks {
			if results[i] != nil || !depsTerminated(spec, done) {
				continue
			}
			readyIdx = append(readyIdx, i)
			readySpecs = append(readySpecs, spec)
		}

		if len(readyIdx) == 0 {
			err := fmt.Errorf("%w: %d subtasks can never start", ErrCircularDependency, pending)
			return models.Fail(err.Error()), err
		}

		outcomes, err := runBatch(ctx, readySpecs, ec)
		if err != nil {
			return models.Fail(err.Error()), err
		}
		if err := mergeScopes(ec.Artifacts, outcomes); err != nil {
			return models.Fail(err.Error()), err
		}

		for j, o := range outcomes {
			i := readyIdx[j]
			results[i] = o.result
			done[depKey(task.Subtasks[i])] = true
			pending--
		}
	}

	return foldResults(results), nil
}

// depKey is the name a subtask is referenced by in DependsOn lists.
func depKey(spec models.SubtaskSpec) string {
	return strings.TrimSpace(spec.Description)
}

// depsTerminated reports whether every declared dependency has finished
// (success or failure both count; critical failures abort earlier).
func depsTerminated(spec models.SubtaskSpec, done map[string]bool) bool {
	for _, dep := range spec.DependsOn {
		if !done[strings.TrimSpace(dep)] {
			return false
		}
	}
	return true
}

// validateDependencies rejects references to unknown subtask names.
func validateDependencies(specs []models.SubtaskSpec) error {
	known := make(map[string]bool, len(specs))
	for _, spec := range specs {
		known[depKey(spec)] = true
	}
	for _, spec := range specs {
		for _, dep := range spec.DependsOn {
			if !known[strings.TrimSpace(dep)] {
				return fmt.Errorf("subtask %q depends on unknown subtask %q", spec.Description, dep)
			}
		}
	}
	return nil
}
