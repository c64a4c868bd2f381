// Package oracle isolates the external text-completion service behind a
// single interface and converts its free-text answers into strongly-typed
// decisions: classification, decomposition, tool-call plans, parent
// evaluations, and completion checks.
package oracle

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/lattice/pkg/models"
)

// Oracle is the external text-completion service consumed by the engine.
type Oracle interface {
	// Complete sends a plain-text prompt and returns the raw response.
	Complete(ctx context.Context, prompt string) (string, error)
}

// ParseError indicates an oracle response that could not be converted
// into the expected decision shape. Callers recover from it with a safe
// default decision rather than failing the task.
type ParseError struct {
	// Decision names the decision kind that failed to parse.
	Decision string
	// Response is the raw oracle response.
	Response string
	// Err is the underlying decode error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s decision: %v", e.Decision, e.Err)
}

// Unwrap returns the underlying decode error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ClassificationDecision is the oracle's complexity label for a task.
type ClassificationDecision struct {
	Complexity models.Classification `json:"complexity"`
	Reasoning  string                `json:"reasoning,omitempty"`
}

// DecompositionPlan is the oracle's plan for breaking a task into subtasks.
type DecompositionPlan struct {
	// Decompose is false when the oracle judges the task directly executable.
	Decompose bool `json:"decompose"`
	// Subtasks is the ordered list of planned subtasks.
	Subtasks []models.SubtaskSpec `json:"subtasks,omitempty"`
	// Strategy names the nested execution strategy (sequential/parallel/mixed).
	Strategy string `json:"strategy,omitempty"`
	// Reasoning explains the plan.
	Reasoning string `json:"reasoning,omitempty"`
}

// ToolCall is one requested tool invocation inside a tool-call plan.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolCallPlan is the oracle's answer to an atomic execution prompt:
// either a direct textual response, one or more tool calls, or both.
type ToolCallPlan struct {
	Response string     `json:"response,omitempty"`
	Calls    []ToolCall `json:"calls,omitempty"`
}

// EvaluationAction is the parent's decision after a child terminates.
type EvaluationAction string

const (
	// ActionContinue advances to the next planned subtask.
	ActionContinue EvaluationAction = "continue"
	// ActionComplete terminates the parent successfully now.
	ActionComplete EvaluationAction = "complete"
	// ActionFail terminates the parent with a failure.
	ActionFail EvaluationAction = "fail"
	// ActionCreateSubtask appends a new unplanned subtask to run next.
	ActionCreateSubtask EvaluationAction = "create-subtask"
)

// ParentEvaluation is the oracle's decision for a parent task after one
// of its children terminated.
type ParentEvaluation struct {
	Action EvaluationAction `json:"action"`
	// RelevantArtifacts names the child artifacts to promote into the
	// parent scope. Promotion is a filter: only these names are copied.
	RelevantArtifacts []string `json:"relevantArtifacts,omitempty"`
	Reason            string   `json:"reason,omitempty"`
	// Result is the parent's final value when Action is complete.
	Result any `json:"result,omitempty"`
	// NewSubtask is the appended subtask when Action is create-subtask.
	NewSubtask *models.SubtaskSpec `json:"newSubtask,omitempty"`
}

// CompletionCheck is the oracle's verdict when a parent has no planned
// subtasks left and no explicit decision was made.
type CompletionCheck struct {
	Complete bool `json:"complete"`
	// Result is the final value when Complete is true.
	Result any `json:"result,omitempty"`
	// NextSubtask is one more ad-hoc subtask when Complete is false.
	NextSubtask *models.SubtaskSpec `json:"nextSubtask,omitempty"`
	Reason      string              `json:"reason,omitempty"`
}
