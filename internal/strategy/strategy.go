// Package strategy implements the pluggable execution policies (atomic,
// sequential, parallel, mixed-dependency, recursive) and the
// priority-ordered selector that picks one per task shape.
package strategy

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ShayCichocki/lattice/internal/artifact"
	"github.com/ShayCichocki/lattice/internal/oracle"
	"github.com/ShayCichocki/lattice/internal/retry"
	"github.com/ShayCichocki/lattice/internal/tool"
	"github.com/ShayCichocki/lattice/pkg/models"
)

// Task is the execution shape handed to a strategy. The selector
// inspects these fields once to pick a strategy; strategies do not
// re-derive the shape afterwards.
type Task struct {
	// Description is the natural-language description of the work.
	Description string
	// Tool names an explicit tool to run, taking precedence over Func
	// and the oracle path.
	Tool string
	// Inputs are tool inputs, possibly carrying @name references.
	Inputs map[string]any
	// Outputs lists artifact names to store after a successful call.
	Outputs []string
	// Func is a plain callable, used when no explicit tool is named.
	Func func(ctx context.Context) (any, error)
	// Subtasks is the ordered/graph subtask list for composite strategies.
	Subtasks []models.SubtaskSpec
	// Mode names the composite execution mode: sequential, parallel, mixed.
	Mode string
	// Conversation is the task-scoped message log for oracle prompts.
	Conversation []models.Message
	// Compose names the recursive composition rule: aggregate-list,
	// object-merge, first, last. Empty means aggregate-list.
	Compose string
}

// Context carries the per-branch services a strategy executes against.
type Context struct {
	// Depth is the current recursion depth (0 at root).
	Depth int
	// MaxDepth is the hard decomposition ceiling.
	MaxDepth int
	// Ancestors is the chain of ancestor descriptions, for cycle detection.
	Ancestors []string
	// Oracle is the text-completion service.
	Oracle oracle.Oracle
	// Tools is the tool registry.
	Tools *tool.Registry
	// Artifacts is the artifact registry in scope.
	Artifacts *artifact.Registry
	// Retryer guards oracle and tool calls.
	Retryer *retry.Retryer
	// Run executes one subtask spec. The engine injects a runner that
	// re-enters its state machine; the default runs the spec atomically.
	Run SubtaskRunner
}

// SubtaskRunner executes one subtask spec and returns its result.
// It must not panic; failures are reported through the result.
type SubtaskRunner func(ctx context.Context, spec models.SubtaskSpec, ec *Context) *models.Result

// child derives a context one level deeper with an isolated or shared
// artifact scope, carrying the ancestor chain forward.
func (ec *Context) child(desc string, artifacts *artifact.Registry) *Context {
	out := *ec
	out.Depth = ec.Depth + 1
	out.Ancestors = append(append([]string(nil), ec.Ancestors...), desc)
	out.Artifacts = artifacts
	return &out
}

// Strategy is one execution policy.
type Strategy interface {
	// Name identifies the strategy in logs and selection errors.
	Name() string
	// CanHandle reports whether this strategy applies to the task shape.
	CanHandle(task *Task, ec *Context) bool
	// Execute runs the task. The returned result always reflects the
	// outcome; a non-nil error additionally aborts the enclosing batch.
	Execute(ctx context.Context, task *Task, ec *Context) (*models.Result, error)
}

// SelectionError indicates no registered strategy could handle a task
// and no default was configured.
type SelectionError struct {
	// Tried lists the strategy names evaluated, in priority order.
	Tried []string
}

// Error implements the error interface.
func (e *SelectionError) Error() string {
	return fmt.Sprintf("no strategy can handle task (tried: %s)", strings.Join(e.Tried, ", "))
}

// registered pairs a strategy with its selection priority.
type registered struct {
	strategy Strategy
	priority int
}

// Selector is the priority-ordered strategy registry. Each engine
// instance owns its own Selector; there is no shared global instance.
type Selector struct {
	strategies []registered
	fallback   Strategy
}

// NewSelector creates an empty selector.
func NewSelector() *Selector {
	return &Selector{}
}

// Register adds a strategy at the given priority. Higher priorities are
// consulted first.
func (s *Selector) Register(strategy Strategy, priority int) {
	s.strategies = append(s.strategies, registered{strategy: strategy, priority: priority})
	// Keep descending priority order; registration count is tiny.
	for i := len(s.strategies) - 1; i > 0; i-- {
		if s.strategies[i].priority > s.strategies[i-1].priority {
			s.strategies[i], s.strategies[i-1] = s.strategies[i-1], s.strategies[i]
		}
	}
}

// SetFallback sets the default strategy used when nothing matches.
func (s *Selector) SetFallback(strategy Strategy) {
	s.fallback = strategy
}

// Select returns the highest-priority strategy whose CanHandle accepts
// the task. A CanHandle panic counts as "cannot handle", not a fatal
// error. With no match, the fallback applies; with no fallback, a
// SelectionError names every strategy tried.
func (s *Selector) Select(task *Task, ec *Context) (Strategy, error) {
	var tried []string
	for _, reg := range s.strategies {
		tried = append(tried, reg.strategy.Name())
		if safeCanHandle(reg.strategy, task, ec) {
			return reg.strategy, nil
		}
	}
	if s.fallback != nil {
		return s.fallback, nil
	}
	return nil, &SelectionError{Tried: tried}
}

// safeCanHandle evaluates CanHandle, treating a panic as false.
func safeCanHandle(strategy Strategy, task *Task, ec *Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[strategy] %s: CanHandle panicked, treating as cannot handle: %v", strategy.Name(), r)
			ok = false
		}
	}()
	return strategy.CanHandle(task, ec)
}

// NewDefaultSelector builds the standard strategy stack: mixed above
// sequential/parallel, atomic above recursive, atomic as fallback.
func NewDefaultSelector() *Selector {
	s := NewSelector()
	atomic := NewAtomic()
	s.Register(NewMixed(), 40)
	s.Register(NewSequential(), 30)
	s.Register(NewParallel(), 30)
	s.Register(atomic, 20)
	s.Register(NewRecursive(s), 10)
	s.SetFallback(atomic)
	return s
}
