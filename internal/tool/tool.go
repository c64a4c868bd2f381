// Package tool defines the contract for invoking tools and the registry
// used to look them up and rank them against a task description. Tool
// business logic beyond the small builtin set lives outside the engine.
package tool

import (
	"context"
	"fmt"
)

// Result is the outcome of a single tool invocation.
type Result struct {
	// Success indicates whether the invocation succeeded.
	Success bool `json:"success"`
	// Data is the produced value on success.
	Data any `json:"data,omitempty"`
	// Error is the failure description when Success is false.
	Error string `json:"error,omitempty"`
}

// Tool is an invokable capability exposed to the engine.
type Tool interface {
	// Name is the unique registry name.
	Name() string
	// Description explains what the tool does, used for discovery ranking
	// and for the oracle's tool catalog.
	Description() string
	// Keywords are extra discovery terms beyond the name and description.
	Keywords() []string
	// Execute runs the tool with already-resolved inputs.
	Execute(ctx context.Context, inputs map[string]any) Result
}

// NotFoundError indicates a lookup for a tool name that is not registered.
type NotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}

// Errorf builds a failed Result from a format string.
func Errorf(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Ok builds a successful Result carrying data.
func Ok(data any) Result {
	return Result{Success: true, Data: data}
}
