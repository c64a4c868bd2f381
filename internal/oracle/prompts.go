package oracle

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/lattice/pkg/models"
)

// classificationPrompt is the prompt template for complexity classification.
const classificationPrompt = `Classify the following task as SIMPLE or COMPLEX.

SIMPLE means it can be completed directly with at most one tool call or one
direct answer. COMPLEX means it must be broken into subtasks first.

Task:
%s

Return ONLY a JSON object (no other text):
{"complexity": "SIMPLE" or "COMPLEX", "reasoning": "one sentence"}`

// decompositionPrompt is the prompt template for task decomposition.
const decompositionPrompt = `Break the following task into an ordered list of subtasks.

Task:
%s

Available tools:
%s

Return ONLY a JSON object with this structure (no other text):
{
  "decompose": true,
  "strategy": "sequential" or "parallel" or "mixed",
  "reasoning": "one sentence",
  "subtasks": [
    {
      "description": "what this subtask does",
      "tool": "optional explicit tool name",
      "inputs": {"key": "value, may reference earlier outputs as @name"},
      "outputs": ["artifact names this subtask produces"],
      "depends_on": ["descriptions of prerequisite subtasks, mixed strategy only"],
      "critical": true or false
    }
  ]
}

Guidelines:
- Use "sequential" when later subtasks consume earlier outputs.
- Use "parallel" only when subtasks are fully independent.
- Use "mixed" when some subtasks depend on others but not all.
- Mark a subtask "critical" if the whole task is pointless without it.
- Return {"decompose": false} if the task is actually directly executable.`

// toolPlanPrompt is the prompt template for atomic execution.
const toolPlanPrompt = `You are executing a task directly.

Task:
%s

Conversation so far:
%s

Available artifacts (reference them in tool args as @name):
%s

Available tools:
%s

Either answer the task directly, or request tool calls. Return ONLY a JSON
object (no other text):
{"response": "direct answer or summary", "use_tools": [{"name": "tool name", "args": {"key": "value"}}]}

Use an empty "use_tools" array when a direct answer suffices.`

// evaluationPrompt is the prompt template for parent evaluation after a
// child task terminates.
const evaluationPrompt = `You are supervising a multi-step task.

Your task:
%s

Conversation so far:
%s

A subtask just finished:
%s

Artifacts now available:
%s

Remaining planned subtasks: %d

Decide what to do next. Return ONLY a JSON object (no other text):
{
  "action": "continue" or "complete" or "fail" or "create-subtask",
  "relevantArtifacts": ["artifact names worth keeping for the parent task"],
  "reason": "one sentence",
  "result": "final result, only when action is complete",
  "newSubtask": {"description": "...", "critical": false}
}

Only include "newSubtask" when action is "create-subtask".`

// completionPrompt is the prompt template for the final completion check.
const completionPrompt = `You are supervising a multi-step task with no planned subtasks left.

Your task:
%s

Conversation so far:
%s

Artifacts available:
%s

Is the task complete? Return ONLY a JSON object (no other text):
{"complete": true, "result": "the final result"}
or
{"complete": false, "nextSubtask": {"description": "one more subtask to run"}, "reason": "one sentence"}`

// ClassificationPrompt builds the classification prompt for a task.
func ClassificationPrompt(description string) string {
	return fmt.Sprintf(classificationPrompt, description)
}

// DecompositionPrompt builds the decomposition prompt for a task.
func DecompositionPrompt(description, toolCatalog string) string {
	return fmt.Sprintf(decompositionPrompt, description, orNone(toolCatalog))
}

// ToolPlanPrompt builds the atomic-execution prompt.
func ToolPlanPrompt(description string, conversation []models.Message, artifactCatalog, toolCatalog string) string {
	return fmt.Sprintf(toolPlanPrompt, description, renderConversation(conversation), orNone(artifactCatalog), orNone(toolCatalog))
}

// EvaluationPrompt builds the parent-evaluation prompt.
func EvaluationPrompt(description string, conversation []models.Message, childSummary, artifactCatalog string, remaining int) string {
	return fmt.Sprintf(evaluationPrompt, description, renderConversation(conversation), childSummary, orNone(artifactCatalog), remaining)
}

// CompletionPrompt builds the completion-check prompt.
func CompletionPrompt(description string, conversation []models.Message, artifactCatalog string) string {
	return fmt.Sprintf(completionPrompt, description, renderConversation(conversation), orNone(artifactCatalog))
}

// renderConversation flattens a conversation log for inclusion in a prompt.
func renderConversation(messages []models.Message) string {
	if len(messages) == 0 {
		return "(empty)"
	}
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s] %s\n", m.Role, m.Content)
	}
	return b.String()
}

// orNone substitutes a placeholder for an empty catalog.
func orNone(catalog string) string {
	if strings.TrimSpace(catalog) == "" {
		return "(none)"
	}
	return catalog
}
