package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/lattice/pkg/models"
)

// ExtractJSON returns the first balanced {...} object found in text.
// Oracle responses often wrap the object in prose or markdown fences, so
// the scanner tracks string literals and escapes rather than trusting
// the surrounding text.
func ExtractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// decodeDecision extracts the first JSON object from a response and
// unmarshals it into out, producing a ParseError on any failure.
func decodeDecision(decision, response string, out any) error {
	raw, ok := ExtractJSON(response)
	if !ok {
		return &ParseError{Decision: decision, Response: response, Err: errors.New("no JSON object in response")}
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &ParseError{Decision: decision, Response: response, Err: err}
	}
	return nil
}

// ParseClassification converts a raw response into a classification decision.
func ParseClassification(response string) (ClassificationDecision, error) {
	var decision ClassificationDecision
	if err := decodeDecision("classification", response, &decision); err != nil {
		return ClassificationDecision{}, err
	}

	switch models.Classification(strings.ToUpper(string(decision.Complexity))) {
	case models.ClassificationSimple:
		decision.Complexity = models.ClassificationSimple
	case models.ClassificationComplex:
		decision.Complexity = models.ClassificationComplex
	default:
		return ClassificationDecision{}, &ParseError{
			Decision: "classification",
			Response: response,
			Err:      fmt.Errorf("unknown complexity %q", decision.Complexity),
		}
	}
	return decision, nil
}

// ParseDecomposition converts a raw response into a decomposition plan.
func ParseDecomposition(response string) (DecompositionPlan, error) {
	var plan DecompositionPlan
	if err := decodeDecision("decomposition", response, &plan); err != nil {
		return DecompositionPlan{}, err
	}
	if plan.Decompose && len(plan.Subtasks) == 0 {
		return DecompositionPlan{}, &ParseError{
			Decision: "decomposition",
			Response: response,
			Err:      errors.New("decompose=true with no subtasks"),
		}
	}
	return plan, nil
}

// rawToolPlan accepts the singular and plural tool-call field names the
// oracle may emit.
type rawToolPlan struct {
	Response string     `json:"response"`
	UseTool  *ToolCall  `json:"use_tool"`
	UseTools []ToolCall `json:"use_tools"`
}

// ParseToolCallPlan converts a raw response into a tool-call plan. A
// response with no JSON object at all is treated as a direct textual
// answer, not a parse failure.
func ParseToolCallPlan(response string) (ToolCallPlan, error) {
	if _, ok := ExtractJSON(response); !ok {
		return ToolCallPlan{Response: strings.TrimSpace(response)}, nil
	}

	var raw rawToolPlan
	if err := decodeDecision("tool-call", response, &raw); err != nil {
		return ToolCallPlan{}, err
	}

	plan := ToolCallPlan{Response: raw.Response}
	if raw.UseTool != nil {
		plan.Calls = append(plan.Calls, *raw.UseTool)
	}
	plan.Calls = append(plan.Calls, raw.UseTools...)

	for _, call := range plan.Calls {
		if call.Name == "" {
			return ToolCallPlan{}, &ParseError{
				Decision: "tool-call",
				Response: response,
				Err:      errors.New("tool call with empty name"),
			}
		}
	}
	return plan, nil
}

// ParseEvaluation converts a raw response into a parent evaluation.
func ParseEvaluation(response string) (ParentEvaluation, error) {
	var eval ParentEvaluation
	if err := decodeDecision("evaluation", response, &eval); err != nil {
		return ParentEvaluation{}, err
	}

	switch EvaluationAction(strings.ToLower(string(eval.Action))) {
	case ActionContinue, ActionComplete, ActionFail, ActionCreateSubtask:
		eval.Action = EvaluationAction(strings.ToLower(string(eval.Action)))
	default:
		return ParentEvaluation{}, &ParseError{
			Decision: "evaluation",
			Response: response,
			Err:      fmt.Errorf("unknown action %q", eval.Action),
		}
	}

	if eval.Action == ActionCreateSubtask && eval.NewSubtask == nil {
		return ParentEvaluation{}, &ParseError{
			Decision: "evaluation",
			Response: response,
			Err:      errors.New("create-subtask with no newSubtask"),
		}
	}
	return eval, nil
}

// ParseCompletionCheck converts a raw response into a completion check.
func ParseCompletionCheck(response string) (CompletionCheck, error) {
	var check CompletionCheck
	if err := decodeDecision("completion-check", response, &check); err != nil {
		return CompletionCheck{}, err
	}
	return check, nil
}
