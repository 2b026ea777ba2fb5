// Package analyzer reports suspicious but legal constructs in a parsed
// program. It runs on the raw parser output; optimization removes most of
// what it looks for.
package analyzer

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/opal-lang/bfi/core/ast"
	"github.com/opal-lang/bfi/core/invariant"
)

// Kind classifies a Warning.
type Kind int

const (
	// DeadLoop is a loop at the very start of the program. Every cell is
	// zero there, so the body never runs. Often used as a comment block.
	DeadLoop Kind = iota
	// EmptyLoop is [] reached with a non-zero cell: it never terminates.
	EmptyLoop
	// PointerUnderflow is a move left of the starting cell before the first
	// loop. Interpreters with a one-sided tape reject it.
	PointerUnderflow
)

func (k Kind) String() string {
	switch k {
	case DeadLoop:
		return "dead loop"
	case EmptyLoop:
		return "empty loop"
	case PointerUnderflow:
		return "pointer underflow"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Warning is a single finding.
type Warning struct {
	Kind    Kind
	Span    ast.Span
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s at %s: %s", w.Kind, w.Span, w.Message)
}

// Analyze returns the warnings for program in source order.
func Analyze(program *ast.Program) []Warning {
	invariant.NotNil(program, "program")

	var warnings []Warning
	lead := leadingLoops(program.Body)
	for i := 0; i < lead; i++ {
		warnings = append(warnings, Warning{
			Kind:    DeadLoop,
			Span:    program.Body[i].Span,
			Message: "loop body never runs: every cell is zero at program start",
		})
	}

	if w, ok := underflow(program.Body[lead:]); ok {
		warnings = append(warnings, w)
	}

	ast.Walk(program.Body[lead:], func(n *ast.Node, _ int) bool {
		if n.Kind == ast.KindDLoop && len(n.Children) == 0 {
			warnings = append(warnings, Warning{
				Kind:    EmptyLoop,
				Span:    n.Span,
				Message: "loop never terminates if entered with a non-zero cell",
			})
		}
		return true
	})

	slices.SortStableFunc(warnings, func(a, b Warning) int {
		return cmp.Compare(a.Span.Start, b.Span.Start)
	})
	return warnings
}

func leadingLoops(body []ast.Node) int {
	n := 0
	for n < len(body) && body[n].IsLoop() {
		n++
	}
	return n
}

// underflow tracks the pointer through the straight-line prefix of body and
// reports the first move that takes it below the starting cell.
func underflow(body []ast.Node) (Warning, bool) {
	ptr := 0
	for i := range body {
		n := &body[i]
		switch n.Kind {
		case ast.KindIncPtr:
			ptr += int(n.Count)
		case ast.KindDecPtr:
			ptr -= int(n.Count)
			if ptr < 0 {
				return Warning{
					Kind:    PointerUnderflow,
					Span:    n.Span,
					Message: fmt.Sprintf("pointer moves %d cell(s) left of the starting cell", -ptr),
				}, true
			}
		default:
			if n.IsLoop() || n.Kind == ast.KindSearchZero {
				return Warning{}, false
			}
		}
	}
	return Warning{}, false
}

