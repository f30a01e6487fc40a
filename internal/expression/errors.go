package expression

import "fmt"

// ParseError reports a syntax problem in an expression.
type ParseError struct {
	Expr    string
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d in %q: %s", e.Pos, e.Expr, e.Message)
}

// EvalError reports a failure while evaluating an expression.
type EvalError struct {
	Expr    string
	Message string
	Cause   error
}

func (e *EvalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot evaluate %q: %s: %v", e.Expr, e.Message, e.Cause)
	}
	return fmt.Sprintf("cannot evaluate %q: %s", e.Expr, e.Message)
}

// Unwrap returns the underlying error.
func (e *EvalError) Unwrap() error { return e.Cause }
