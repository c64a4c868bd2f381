package engine

import "fmt"

// DepthExceededError indicates a task was created beyond the depth
// ceiling. It is fatal and never retried; no oracle call is made.
type DepthExceededError struct {
	Depth    int
	MaxDepth int
}

// Error implements the error interface.
func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("task depth %d exceeds maximum %d", e.Depth, e.MaxDepth)
}

// NoToolsFoundError indicates tool discovery produced zero candidates
// for a task that requires tools. It is fatal and never retried.
type NoToolsFoundError struct {
	Description string
}

// Error implements the error interface.
func (e *NoToolsFoundError) Error() string {
	return fmt.Sprintf("no suitable tools for task: %s", e.Description)
}

// DecompositionFailedError indicates the oracle could not produce a
// usable decomposition plan for a complex task. Fatal to that task.
type DecompositionFailedError struct {
	TaskID string
	Reason string
}

// Error implements the error interface.
func (e *DecompositionFailedError) Error() string {
	return fmt.Sprintf("unable to decompose task %s: %s", e.TaskID, e.Reason)
}

// EvaluationLimitError indicates consecutive parent-evaluation
// responses failed to parse more times than the configured bound.
type EvaluationLimitError struct {
	TaskID   string
	Attempts int
}

// Error implements the error interface.
func (e *EvaluationLimitError) Error() string {
	return fmt.Sprintf("task %s: %d consecutive unparseable evaluation decisions", e.TaskID, e.Attempts)
}
