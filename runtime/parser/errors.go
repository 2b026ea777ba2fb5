package parser

import (
	"errors"
	"fmt"

	"github.com/opal-lang/bfi/core/ast"
)

// ErrorKind represents the structural parse failures
type ErrorKind int

const (
	LoopStackOverflow ErrorKind = iota // '[' beyond the nesting bound
	BadlyClosedLoop                    // ']' with no open loop
	UnclosedLoop                       // '[' never closed
)

func (k ErrorKind) String() string {
	switch k {
	case LoopStackOverflow:
		return "loop stack overflow"
	case BadlyClosedLoop:
		return "badly closed loop"
	case UnclosedLoop:
		return "unclosed loop"
	default:
		return "parse error"
	}
}

// ParseError is a fatal, positional parse failure. Position is a byte
// offset into the source that was parsed; MaxDepth is only set for
// LoopStackOverflow.
type ParseError struct {
	Kind     ErrorKind
	Position int
	MaxDepth int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Position, e.Detail())
}

// Detail describes the failure without its position.
func (e *ParseError) Detail() string {
	switch e.Kind {
	case LoopStackOverflow:
		return fmt.Sprintf("nesting exceeds maximum depth %d", e.MaxDepth)
	case BadlyClosedLoop:
		return "']' has no matching '['"
	default:
		return "'[' has no matching ']'"
	}
}

// Span returns the single offending byte.
func (e *ParseError) Span() ast.Span {
	return ast.NewSpan(e.Position, e.Position+1)
}

// Hint suggests a fix for the diagnostics renderer.
func (e *ParseError) Hint() string {
	switch e.Kind {
	case LoopStackOverflow:
		return fmt.Sprintf("loops may nest at most %d deep", e.MaxDepth-1)
	case BadlyClosedLoop:
		return "remove this ']' or add a '[' before it"
	default:
		return "add a ']' to close this loop"
	}
}

// IsKind reports whether err is a *ParseError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Kind == kind
}
