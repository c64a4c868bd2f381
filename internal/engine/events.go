// Package engine owns the task hierarchy and drives the control loop:
// classify, execute or decompose, and re-evaluate the parent after every
// child terminates.
package engine

import (
	"time"

	"github.com/ShayCichocki/lattice/pkg/models"
)

// EventType represents the type of engine event.
type EventType string

const (
	// EventTaskStarted indicates a task has started execution.
	EventTaskStarted EventType = "task_started"
	// EventTaskClassified indicates a task received its complexity label.
	EventTaskClassified EventType = "task_classified"
	// EventTaskDecomposed indicates a decomposition plan was stored.
	EventTaskDecomposed EventType = "task_decomposed"
	// EventSubtaskCreated indicates a child task was created from a plan.
	EventSubtaskCreated EventType = "subtask_created"
	// EventEvaluation indicates a parent evaluated a finished child.
	EventEvaluation EventType = "evaluation"
	// EventCompletionCheck indicates a plan-exhausted completion check.
	EventCompletionCheck EventType = "completion_check"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task failed.
	EventTaskFailed EventType = "task_failed"
	// EventRunDone indicates the root task reached a terminal state.
	EventRunDone EventType = "run_done"
)

// Event represents an event emitted by the engine. Events are used to
// update the TUI, the run-history store, and any registered hooks.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// RunID identifies the run the event belongs to.
	RunID string
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// ParentID is the ID of the parent task, if applicable.
	ParentID string
	// Description is the task description, if applicable.
	Description string
	// Depth is the task's depth in the hierarchy.
	Depth int
	// Classification is the assigned complexity label, for
	// classification events.
	Classification models.Classification
	// Action is the evaluation action, for evaluation events.
	Action string
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
