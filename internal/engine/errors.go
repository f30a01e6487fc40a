package engine

import (
	"errors"
	"fmt"
)

// ErrorCode classifies engine errors for the façade boundary.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a missing workflow, instance or activity
	// instance.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeUnknownKind indicates an activity kind without a registered
	// behavior.
	ErrCodeUnknownKind ErrorCode = "UNKNOWN_ACTIVITY_KIND"
	// ErrCodeBinding indicates a runtime binding failure.
	ErrCodeBinding ErrorCode = "BINDING_ERROR"
	// ErrCodeInvalidState indicates an operation against an instance in
	// the wrong state, e.g. messaging an ended activity instance.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
	// ErrCodeExecution indicates a failure inside a behavior's execute.
	ErrCodeExecution ErrorCode = "EXECUTION_ERROR"
)

// Error is the engine's error type; it unwinds to the façade boundary
// that triggered the step.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Cause }

// IsNotFound reports whether err carries the not-found code.
func IsNotFound(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Code == ErrCodeNotFound
}

// ErrJobObsolete signals that a job's target instance is gone or ended;
// the scheduler discards such jobs instead of retrying them.
var ErrJobObsolete = errors.New("job target no longer open")
