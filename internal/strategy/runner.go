package strategy

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/lattice/internal/artifact"
	"github.com/ShayCichocki/lattice/pkg/models"
)

// DefaultRunner executes a subtask spec directly: an explicit tool call
// when the spec names one, otherwise one atomic oracle round-trip. The
// engine replaces this with a runner that re-enters its state machine.
func DefaultRunner(ctx context.Context, spec models.SubtaskSpec, ec *Context) *models.Result {
	task := &Task{
		Description: spec.Description,
		Tool:        spec.Tool,
		Inputs:      spec.Inputs,
		Outputs:     spec.Outputs,
	}
	result, err := NewAtomic().Execute(ctx, task, ec)
	if err != nil {
		return models.Fail(err.Error())
	}
	return result
}

// runSpec invokes the context's runner, falling back to DefaultRunner.
func runSpec(ctx context.Context, spec models.SubtaskSpec, ec *Context) *models.Result {
	if ec.Run != nil {
		return ec.Run(ctx, spec, ec)
	}
	return DefaultRunner(ctx, spec, ec)
}

// invokeTool resolves @name references in the inputs, executes the named
// tool through the retry subsystem, and returns the tool's data.
func invokeTool(ctx context.Context, name string, inputs map[string]any, ec *Context) (any, error) {
	t, err := ec.Tools.Get(name)
	if err != nil {
		return nil, err
	}

	resolved, err := ec.Artifacts.ResolveInputs(inputs)
	if err != nil {
		return nil, err
	}

	operationID := "tool:" + name
	return ec.Retryer.Do(ctx, operationID, func(ctx context.Context) (any, error) {
		res := t.Execute(ctx, resolved)
		if !res.Success {
			return nil, fmt.Errorf("tool %s: %s", name, res.Error)
		}
		return res.Data, nil
	})
}

// storeOutputs writes one fresh artifact record per declared output
// name. Values are assigned positionally from the call results; when
// more names than results were declared, the remaining names receive
// the final composite value. Duplicate names within the registry scope
// are an error, never a silent overwrite.
func storeOutputs(reg *artifact.Registry, outputs []string, values []any, producedBy string, consumed []string) error {
	if len(outputs) > 0 && len(values) == 0 {
		return fmt.Errorf("no values produced for declared outputs %v", outputs)
	}
	for i, name := range outputs {
		value := values[len(values)-1]
		if i < len(values) {
			value = values[i]
		}
		rec := artifact.Record{
			Type:  "data",
			Value: value,
			Metadata: artifact.Metadata{
				Tool:     producedBy,
				Success:  true,
				Consumed: consumed,
			},
		}
		if err := reg.Store(name, rec); err != nil {
			return err
		}
	}
	return nil
}

// consumedNames extracts the artifact names referenced by the inputs,
// recorded as provenance on produced artifacts.
func consumedNames(inputs map[string]any) []string {
	seen := make(map[string]bool)
	var names []string
	var walk func(v any)
	walk = func(v any) {
		switch val := v.(type) {
		case string:
			for _, m := range artifact.ReferencedNames(val) {
				if !seen[m] {
					seen[m] = true
					names = append(names, m)
				}
			}
		case map[string]any:
			for _, item := range val {
				walk(item)
			}
		case []any:
			for _, item := range val {
				walk(item)
			}
		}
	}
	walk(inputs)
	return names
}
