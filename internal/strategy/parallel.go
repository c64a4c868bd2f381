package strategy

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/ShayCichocki/lattice/internal/artifact"
	"github.com/ShayCichocki/lattice/pkg/models"
)

// Parallel executes subtasks concurrently, each against an isolated
// child artifact scope. Child artifacts merge into the shared registry
// only after the join, so concurrent subtasks never observe each other.
type Parallel struct{}

// NewParallel creates the parallel strategy.
func NewParallel() *Parallel {
	return &Parallel{}
}

// Name implements Strategy.
func (p *Parallel) Name() string { return "parallel" }

// CanHandle accepts tasks with subtasks in parallel mode.
func (p *Parallel) CanHandle(task *Task, ec *Context) bool {
	return len(task.Subtasks) > 0 && task.Mode == "parallel"
}

// batchOutcome carries one subtask's result and its isolated scope.
type batchOutcome struct {
	index  int
	result *models.Result
	scope  *artifact.Registry
}

// Execute fans the subtasks out, joins, then merges artifact scopes. A
// critical failure cancels siblings still in flight and aborts the batch.
func (p *Parallel) Execute(ctx context.Context, task *Task, ec *Context) (*models.Result, error) {
	outcomes, err := runBatch(ctx, task.Subtasks, ec)
	if err != nil {
		return models.Fail(err.Error()), err
	}

	if err := mergeScopes(ec.Artifacts, outcomes); err != nil {
		return models.Fail(err.Error()), err
	}

	results := make([]*models.Result, len(outcomes))
	for i, o := range outcomes {
		results[i] = o.result
	}
	return foldResults(results), nil
}

// runBatch executes the given specs concurrently against isolated child
// scopes and joins. The first critical failure cancels the batch context
// and is returned as an error after the join completes.
func runBatch(ctx context.Context, specs []models.SubtaskSpec, ec *Context) ([]batchOutcome, error) {
	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]batchOutcome, len(specs))
	var wg sync.WaitGroup

	var mu sync.Mutex
	var criticalErr error

	for i, spec := range specs {
		scope := ec.Artifacts.Child()
		childCtx := ec.child(spec.Description, scope)
		outcomes[i] = batchOutcome{index: i, scope: scope}

		wg.Add(1)
		go func(i int, spec models.SubtaskSpec) {
			defer wg.Done()

			result := runSpec(batchCtx, spec, childCtx)
			outcomes[i].result = result

			if !result.Success && spec.Critical {
				mu.Lock()
				if criticalErr == nil {
					criticalErr = fmt.Errorf("critical subtask (%s) failed: %s", spec.Description, result.Error)
					cancel()
				}
				mu.Unlock()
			}
		}(i, spec)
	}

	wg.Wait()

	if criticalErr != nil {
		return nil, criticalErr
	}
	return outcomes, nil
}

// mergeScopes folds each subtask's isolated scope back into the shared
// registry. Two concurrent subtasks producing the same fresh name is a
// conflict, not a silent overwrite.
func mergeScopes(shared *artifact.Registry, outcomes []batchOutcome) error {
	for _, o := range outcomes {
		if o.result == nil || !o.result.Success {
			// Failed subtasks do not publish artifacts.
			continue
		}
		if err := shared.Merge(o.scope); err != nil {
			log.Printf("[parallel] artifact merge conflict: %v", err)
			return fmt.Errorf("merge artifacts from subtask %d: %w", o.index+1, err)
		}
	}
	return nil
}
