package models

// Result is the outcome of executing a task or subtask.
type Result struct {
	// Success indicates whether the execution succeeded.
	Success bool `json:"success"`
	// Value is the produced value, if any.
	Value any `json:"value,omitempty"`
	// Message is a human-readable summary of the outcome.
	Message string `json:"message,omitempty"`
	// Error is the failure description when Success is false.
	Error string `json:"error,omitempty"`
	// Artifacts lists names of artifacts produced during execution.
	Artifacts []string `json:"artifacts,omitempty"`
}

// Ok returns a successful result carrying the given value.
func Ok(value any) *Result {
	return &Result{Success: true, Value: value}
}

// Fail returns a failed result carrying the given error message.
func Fail(msg string) *Result {
	return &Result{Success: false, Error: msg}
}
