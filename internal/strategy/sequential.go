package strategy

import (
	"context"
	"fmt"
	"log"

	"github.com/ShayCichocki/lattice/pkg/models"
)

// Sequential executes subtasks one at a time against the shared artifact
// registry, so each subtask sees the artifacts of everything before it.
type Sequential struct{}

// NewSequential creates the sequential strategy.
func NewSequential() *Sequential {
	return &Sequential{}
}

// Name implements Strategy.
func (s *Sequential) Name() string { return "sequential" }

// CanHandle accepts tasks with subtasks in sequential mode, and tasks
// with subtasks and no declared mode or dependencies.
func (s *Sequential) CanHandle(task *Task, ec *Context) bool {
	if len(task.Subtasks) == 0 {
		return false
	}
	if task.Mode == "sequential" {
		return true
	}
	if task.Mode != "" {
		return false
	}
	for _, spec := range task.Subtasks {
		if len(spec.DependsOn) > 0 {
			return false
		}
	}
	return true
}

// Execute runs the subtasks in order. A critical failure aborts the
// sequence and propagates; non-critical failures are recorded and
// execution continues.
func (s *Sequential) Execute(ctx context.Context, task *Task, ec *Context) (*models.Result, error) {
	results := make([]*models.Result, 0, len(task.Subtasks))

	for i, spec := range task.Subtasks {
		if err := ctx.Err(); err != nil {
			return models.Fail(err.Error()), err
		}

		result := runSpec(ctx, spec, ec)
		results = append(results, result)

		if !result.Success {
			if spec.Critical {
				err := fmt.Errorf("critical subtask %d (%s) failed: %s", i+1, spec.Description, result.Error)
				return models.Fail(err.Error()), err
			}
			log.Printf("[sequential] subtask %d (%s) failed, continuing: %s", i+1, spec.Description, result.Error)
		}
	}

	return foldResults(results), nil
}

// foldResults combines subtask results into one composite result. The
// composite succeeds only when every subtask succeeded.
func foldResults(results []*models.Result) *models.Result {
	values := make([]any, 0, len(results))
	allOK := true
	var firstErr string
	for _, r := range results {
		if r.Success {
			values = append(values, r.Value)
			continue
		}
		allOK = false
		if firstErr == "" {
			firstErr = r.Error
		}
		values = append(values, nil)
	}

	out := &models.Result{Success: allOK, Value: values}
	if !allOK {
		out.Error = firstErr
		out.Message = fmt.Sprintf("%d of %d subtasks failed", countFailed(results), len(results))
	}
	return out
}

// countFailed counts unsuccessful results.
func countFailed(results []*models.Result) int {
	n := 0
	for _, r := range results {
		if !r.Success {
			n++
		}
	}
	return n
}
