// Copyright 2025 James Ross
package sandbox

import "fmt"

// ErrorKind enumerates the sandbox's typed failure taxonomy (spec.md
// §4.6). Every non-nil error returned by Executor.Execute is an *Error
// carrying one of these.
type ErrorKind string

const (
	ErrModuleNotFound       ErrorKind = "module_not_found"
	ErrModuleLoadFailed     ErrorKind = "module_load_failed"
	ErrExecutionFailed      ErrorKind = "execution_failed"
	ErrTimeout              ErrorKind = "timeout"
	ErrOutOfMemory          ErrorKind = "out_of_memory"
	ErrCapabilityViolation  ErrorKind = "capability_violation"
	ErrTrapOccurred         ErrorKind = "trap_occurred"
)

// Error wraps a sandbox failure with its taxonomy kind, so
// internal/dispatcher can render "Failed(reason including error kind)"
// per spec.md §4.5 step 3 without string-matching.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
