// Package models defines the core data types shared across the engine.
package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a terminal state.
// A task never leaves a terminal state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Classification is the complexity label assigned to a task by the oracle.
type Classification string

const (
	// ClassificationUnset indicates the task has not been classified yet.
	ClassificationUnset Classification = ""
	// ClassificationSimple indicates the task is directly executable.
	ClassificationSimple Classification = "SIMPLE"
	// ClassificationComplex indicates the task requires decomposition.
	ClassificationComplex Classification = "COMPLEX"
)

// Message is a single entry in a task's conversation log.
// The log is append-only and scoped to one task, not shared globally.
type Message struct {
	// Role is who produced the message: "user", "assistant", or "system".
	Role string `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
	// Timestamp is when the message was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// SubtaskSpec describes one planned subtask inside a decomposition plan.
type SubtaskSpec struct {
	// Description is the natural-language description of the subtask.
	Description string `json:"description"`
	// Tool names an explicit tool to run, if the planner chose one.
	Tool string `json:"tool,omitempty"`
	// Inputs are tool inputs; string values may carry @name artifact references.
	Inputs map[string]any `json:"inputs,omitempty"`
	// Outputs lists artifact names the subtask is expected to produce.
	Outputs []string `json:"outputs,omitempty"`
	// DependsOn lists descriptions of subtasks that must terminate first.
	// Only the mixed strategy consults this.
	DependsOn []string `json:"depends_on,omitempty"`
	// Critical marks a subtask whose failure aborts the enclosing batch.
	Critical bool `json:"critical,omitempty"`
	// Weight is the relative progress weight of this subtask (default 1).
	Weight int `json:"weight,omitempty"`
}

// TaskMetadata holds bookkeeping the engine attaches to a task.
type TaskMetadata struct {
	// Depth is the distance from the root task (0 at root).
	Depth int `json:"depth"`
	// Classification is the cached SIMPLE/COMPLEX label, empty until decided.
	Classification Classification `json:"classification,omitempty"`
	// IsDecomposed indicates a decomposition plan has been stored.
	IsDecomposed bool `json:"is_decomposed,omitempty"`
	// PlannedSubtasks is the ordered decomposition plan for this task.
	PlannedSubtasks []SubtaskSpec `json:"planned_subtasks,omitempty"`
	// CurrentSubtaskIndex is the index of the next planned subtask to run.
	CurrentSubtaskIndex int `json:"current_subtask_index,omitempty"`
}

// Task represents one node in the task hierarchy.
// Parent and children are stored as ids; the engine's arena owns all tasks.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// ParentID is the id of the parent task, empty for the root.
	ParentID string `json:"parent_id,omitempty"`
	// Description is the natural-language description of the work.
	Description string `json:"description"`
	// Status is the current lifecycle state.
	Status TaskStatus `json:"status"`
	// Children is the ordered list of child task ids, owned by this task.
	Children []string `json:"children,omitempty"`
	// Metadata holds depth, classification, and the decomposition plan.
	Metadata TaskMetadata `json:"metadata"`
	// Conversation is the append-only message log scoped to this task.
	Conversation []Message `json:"conversation,omitempty"`
	// Result is the final value, set exactly once on the terminal transition.
	Result *Result `json:"result,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the task reached a terminal state, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AddMessage appends a message to the task's conversation log.
func (t *Task) AddMessage(role, content string) {
	t.Conversation = append(t.Conversation, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}
