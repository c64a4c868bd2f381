package strategy

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/ShayCichocki/lattice/internal/oracle"
	"github.com/ShayCichocki/lattice/pkg/models"
)

// Template is a canned decomposition applied when the oracle does not
// produce a usable plan. Templates are consulted in registration order.
type Template struct {
	// Name identifies the template in logs.
	Name string
	// Match reports whether the template applies to a description.
	Match func(description string) bool
	// Plan produces the decomposition for a matching description.
	Plan func(description string) oracle.DecompositionPlan
}

// Recursive is the general strategy: it decides per task whether to
// decompose, delegates non-decomposable tasks to atomic, and otherwise
// decomposes (oracle, then template, then heuristic), executes the plan
// with the nested strategy it names, and composes a final result.
type Recursive struct {
	selector  *Selector
	atomic    *Atomic
	templates []Template
}

// NewRecursive creates the recursive strategy around a selector used
// for nested plan execution.
func NewRecursive(selector *Selector) *Recursive {
	return &Recursive{selector: selector, atomic: NewAtomic()}
}

// AddTemplate registers a decomposition template.
func (r *Recursive) AddTemplate(t Template) {
	r.templates = append(r.templates, t)
}

// Name implements Strategy.
func (r *Recursive) Name() string { return "recursive" }

// CanHandle accepts any task; recursive is the strategy of last resort
// above the configured fallback.
func (r *Recursive) CanHandle(task *Task, ec *Context) bool {
	return true
}

// Execute decides whether to decompose and runs the chosen plan. At the
// depth ceiling, and on an ancestor-chain cycle, the task executes
// directly instead of decomposing.
func (r *Recursive) Execute(ctx context.Context, task *Task, ec *Context) (*models.Result, error) {
	if !r.shouldDecompose(ctx, task, ec) {
		return r.atomic.Execute(ctx, task, ec)
	}

	plan, ok := r.decompose(ctx, task, ec)
	if !ok {
		// Nothing produced a usable plan; execute directly.
		return r.atomic.Execute(ctx, task, ec)
	}

	nested := &Task{
		Description: task.Description,
		Subtasks:    plan.Subtasks,
		Mode:        normalizeMode(plan.Strategy),
	}
	childCtx := ec.child(task.Description, ec.Artifacts)

	strat, err := r.selector.Select(nested, childCtx)
	if err != nil {
		return models.Fail(err.Error()), err
	}

	result, err := strat.Execute(ctx, nested, childCtx)
	if err != nil {
		return result, err
	}
	return composeResult(task.Compose, result), nil
}

// shouldDecompose gates decomposition: explicit tools and callables run
// directly, the depth ceiling is absolute, and a description already on
// the ancestor chain would recurse forever.
func (r *Recursive) shouldDecompose(ctx context.Context, task *Task, ec *Context) bool {
	if task.Tool != "" || task.Func != nil || len(task.Subtasks) > 0 {
		return false
	}
	if ec.Depth >= ec.MaxDepth {
		log.Printf("[recursive] depth ceiling %d reached, executing directly: %s", ec.MaxDepth, task.Description)
		return false
	}
	for _, ancestor := range ec.Ancestors {
		if strings.EqualFold(strings.TrimSpace(ancestor), strings.TrimSpace(task.Description)) {
			log.Printf("[recursive] ancestor cycle detected, executing directly: %s", task.Description)
			return false
		}
	}

	prompt := oracle.ClassificationPrompt(task.Description)
	raw, err := ec.Retryer.Do(ctx, "oracle:classify", func(ctx context.Context) (any, error) {
		return ec.Oracle.Complete(ctx, prompt)
	})
	if err != nil {
		return heuristicParts(task.Description) != nil
	}
	decision, err := oracle.ParseClassification(raw.(string))
	if err != nil {
		return heuristicParts(task.Description) != nil
	}
	return decision.Complexity == models.ClassificationComplex
}

// decompose produces a plan, preferring the oracle, then templates,
// then the heuristic splitter.
func (r *Recursive) decompose(ctx context.Context, task *Task, ec *Context) (oracle.DecompositionPlan, bool) {
	prompt := oracle.DecompositionPrompt(task.Description, ec.Tools.Catalog())
	raw, err := ec.Retryer.Do(ctx, "oracle:decompose", func(ctx context.Context) (any, error) {
		return ec.Oracle.Complete(ctx, prompt)
	})
	if err == nil {
		plan, perr := oracle.ParseDecomposition(raw.(string))
		if perr == nil && plan.Decompose {
			return plan, true
		}
		if perr != nil {
			log.Printf("[recursive] oracle decomposition unparseable, trying templates: %v", perr)
		}
	}

	for _, t := range r.templates {
		if t.Match(task.Description) {
			log.Printf("[recursive] using decomposition template %s", t.Name)
			return t.Plan(task.Description), true
		}
	}

	parts := heuristicParts(task.Description)
	if parts == nil {
		return oracle.DecompositionPlan{}, false
	}
	plan := oracle.DecompositionPlan{
		Decompose: true,
		Strategy:  "sequential",
		Reasoning: "heuristic split on conjunctions",
	}
	for _, part := range parts {
		plan.Subtasks = append(plan.Subtasks, models.SubtaskSpec{Description: part})
	}
	return plan, true
}

// conjunctionPattern splits a description into candidate steps.
var conjunctionPattern = regexp.MustCompile(`(?i)\s*(?:;|\.\s|,?\s+and then\s+|,?\s+then\s+|,?\s+and\s+)\s*`)

// heuristicParts splits a description on conjunctions, returning nil
// unless at least two non-trivial parts emerge.
func heuristicParts(description string) []string {
	var parts []string
	for _, p := range conjunctionPattern.Split(description, -1) {
		p = strings.TrimSpace(p)
		if len(p) >= 3 {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return nil
	}
	return parts
}

// normalizeMode maps a plan's strategy name onto a known mode.
func normalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "parallel":
		return "parallel"
	case "mixed":
		return "mixed"
	default:
		return "sequential"
	}
}

// composeResult applies the composition rule to a composite result
// whose value is the ordered list of subtask values.
func composeResult(rule string, result *models.Result) *models.Result {
	values, ok := result.Value.([]any)
	if !ok || len(values) == 0 {
		return result
	}

	switch rule {
	case "", "aggregate-list":
		return result
	case "first":
		out := *result
		out.Value = values[0]
		return &out
	case "last":
		out := *result
		out.Value = values[len(values)-1]
		return &out
	case "object-merge":
		merged := make(map[string]any)
		for _, v := range values {
			if m, ok := v.(map[string]any); ok {
				for k, item := range m {
					merged[k] = item
				}
			}
		}
		out := *result
		out.Value = merged
		return &out
	default:
		log.Printf("[recursive] unknown composition rule %q, using aggregate-list", rule)
		return result
	}
}
