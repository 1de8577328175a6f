package service

import (
	"fmt"
)

// DetailedError is a failure that carries structured context for the caller.
type DetailedError interface {
	error
	Details() map[string]any
}

// ValidationError rejects a request before any backend call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Details() map[string]any {
	d := map[string]any{"category": "validation"}
	if e.Field != "" {
		d["field"] = e.Field
	}
	return d
}

// ConflictError is a precondition that the current backend state does not meet.
type ConflictError struct {
	Op      string
	Message string
	Context map[string]any
	Hint    string
	Err     error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

func (e *ConflictError) Details() map[string]any {
	d := map[string]any{"category": "conflict"}
	for k, v := range e.Context {
		d[k] = v
	}
	if e.Hint != "" {
		d["hint"] = e.Hint
	}
	if e.Err != nil {
		d["inner_error"] = e.Err.Error()
	}
	return d
}

// TimeoutError reports a graceful shutdown that did not finish within the wait.
type TimeoutError struct {
	VMID           int
	WaitSeconds    int
	ElapsedSeconds float64
	Status         PowerStatus
	Hint           string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("vm %d did not stop within %ds (state: %s)", e.VMID, e.WaitSeconds, e.Status.State)
}

func (e *TimeoutError) Details() map[string]any {
	return map[string]any{
		"category":        "timeout",
		"vm_id":           e.VMID,
		"current_state":   e.Status.State,
		"running":         e.Status.Running,
		"wait_seconds":    e.WaitSeconds,
		"elapsed_seconds": e.ElapsedSeconds,
		"hint":            e.Hint,
	}
}
