package executor

import (
	"errors"
	"fmt"

	"github.com/opal-lang/bfi/core/ast"
)

// ErrStepLimit is returned (wrapped in a RuntimeError) when WithStepLimit is
// exceeded.
var ErrStepLimit = errors.New("step limit exceeded")

// RuntimeError reports a failure while executing the node at Span.
type RuntimeError struct {
	Op    string // "read", "write", "flush" or "step"
	Span  ast.Span
	Cause error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s failed at %s: %v", e.Op, e.Span, e.Cause)
}

func (e *RuntimeError) Unwrap() error {
	return e.Cause
}
