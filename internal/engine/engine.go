package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/lattice/internal/artifact"
	"github.com/ShayCichocki/lattice/internal/oracle"
	"github.com/ShayCichocki/lattice/internal/retry"
	"github.com/ShayCichocki/lattice/internal/strategy"
	"github.com/ShayCichocki/lattice/internal/tool"
	"github.com/ShayCichocki/lattice/pkg/models"
)

// Defaults for engine construction.
const (
	DefaultMaxDepth       = 5
	DefaultMaxEvalRetries = 3
	DefaultEventBuffer    = 256
)

// Hook is a fire-and-forget observability callback. A panicking hook is
// recovered and logged; it can never fail a task.
type Hook func(Event)

// Gate pauses or stops a run between subtasks. A nil error means
// proceed; a non-nil error stops the run.
type Gate interface {
	Wait(ctx context.Context) error
}

// Engine owns the task arena and drives the control loop.
type Engine struct {
	oracle   oracle.Oracle
	tools    *tool.Registry
	selector *strategy.Selector
	retryer  *retry.Retryer
	emitter  *EventEmitter
	logger   *DebugLogger
	gate     Gate
	hooks    []Hook

	maxDepth       int
	maxEvalRetries int

	mu    sync.RWMutex
	tasks map[string]*models.Task
}

// Option configures an Engine. Use With* functions to create Options.
type Option func(*Engine)

// WithMaxDepth sets the hard decomposition depth ceiling.
func WithMaxDepth(d int) Option {
	return func(e *Engine) { e.maxDepth = d }
}

// WithMaxEvalRetries bounds consecutive unparseable evaluation decisions
// before the parent task fails.
func WithMaxEvalRetries(n int) Option {
	return func(e *Engine) { e.maxEvalRetries = n }
}

// WithRetryer sets the retry subsystem wrapping oracle and tool calls.
func WithRetryer(r *retry.Retryer) Option {
	return func(e *Engine) { e.retryer = r }
}

// WithSelector sets the strategy selector.
func WithSelector(s *strategy.Selector) Option {
	return func(e *Engine) { e.selector = s }
}

// WithEmitter sets the event emitter consumed by the TUI and state store.
func WithEmitter(em *EventEmitter) Option {
	return func(e *Engine) { e.emitter = em }
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithGate sets the pause/stop gate consulted between subtasks.
func WithGate(g Gate) Option {
	return func(e *Engine) { e.gate = g }
}

// WithHook registers an observability callback.
func WithHook(h Hook) Option {
	return func(e *Engine) { e.hooks = append(e.hooks, h) }
}

// New creates an Engine around an oracle and a tool registry.
func New(orc oracle.Oracle, tools *tool.Registry, opts ...Option) *Engine {
	e := &Engine{
		oracle:         orc,
		tools:          tools,
		selector:       strategy.NewDefaultSelector(),
		retryer:        retry.New(),
		logger:         NopLogger(),
		maxDepth:       DefaultMaxDepth,
		maxEvalRetries: DefaultMaxEvalRetries,
		tasks:          make(map[string]*models.Task),
	}
	for _, opt := range opts {
		opt(e)
	}
	setPackageLogger(e.logger)
	return e
}

// Outcome is the structured result of one Execute call.
type Outcome struct {
	// RunID identifies the run.
	RunID string
	// RootID is the id of the root task in the arena.
	RootID string
	// Success reports whether the root task completed.
	Success bool
	// Result is the root task's final value.
	Result any
	// Message is a human-readable summary, set on failure.
	Message string
	// Artifacts are the records left in the root scope when the run ended.
	Artifacts []artifact.Record
}

// Execute runs one task description to a terminal state and returns a
// structured outcome. It always returns an Outcome; the error is non-nil
// only for context cancellation before the run could finish.
func (e *Engine) Execute(ctx context.Context, description string) (*Outcome, error) {
	runID := "run-" + uuid.NewString()
	root := e.newTask("", description, 0)
	registry := artifact.NewRegistry()

	debugLog("run %s: root task %s: %s", runID, root.ID, description)

	result := e.runTask(ctx, runID, root.ID, registry, nil)

	rootSnapshot, _ := e.Task(root.ID)
	out := &Outcome{
		RunID:     runID,
		RootID:    root.ID,
		Success:   result.Success,
		Result:    result.Value,
		Message:   result.Message,
		Artifacts: registry.List(),
	}
	if !result.Success {
		if out.Message == "" {
			out.Message = result.Error
		}
		if out.Result == nil {
			out.Result = result.Error
		}
	}

	e.emit(Event{
		Type:        EventRunDone,
		RunID:       runID,
		TaskID:      root.ID,
		Description: description,
		Message:     out.Message,
	})
	debugLog("run %s: done, success=%v, status=%s", runID, out.Success, rootSnapshot.Status)

	return out, ctx.Err()
}

// emit delivers an event to the emitter and every hook. Hook panics are
// recovered so a sink can never fail a task.
func (e *Engine) emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if e.emitter != nil {
		e.emitter.Emit(event)
	}
	for _, h := range e.hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					debugLog("hook panicked on %s event: %v", event.Type, r)
				}
			}()
			h(event)
		}()
	}
}
