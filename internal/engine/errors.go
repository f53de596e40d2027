package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMaxSteps is returned when a run ends without any answer after MaxSteps.
var ErrMaxSteps = errors.New("maximum steps reached without a final answer")

// ToolValidationError indicates that tool arguments failed JSON schema validation.
type ToolValidationError struct {
	ToolName string
	Errors   []string
}

func (e *ToolValidationError) Error() string {
	return fmt.Sprintf("tool %s validation failed: %s", e.ToolName, strings.Join(e.Errors, "; "))
}

// EngineContextError wraps errors with execution context (step, tool, operation).
type EngineContextError struct {
	Err       error
	Step      int
	ToolName  string // If error occurred during tool execution
	Operation string // "llm_call", "final_answer", ...
}

func (e *EngineContextError) Error() string {
	if e.ToolName != "" {
		return fmt.Sprintf("[step=%d op=%s tool=%s] %v", e.Step, e.Operation, e.ToolName, e.Err)
	}
	return fmt.Sprintf("[step=%d op=%s] %v", e.Step, e.Operation, e.Err)
}

func (e *EngineContextError) Unwrap() error {
	return e.Err
}

// WrapWithContext wraps an error with execution context for debugging.
func WrapWithContext(err error, st *State, operation string, toolName string) error {
	if err == nil {
		return nil
	}
	return &EngineContextError{
		Err:       err,
		Step:      st.Step,
		ToolName:  toolName,
		Operation: operation,
	}
}
