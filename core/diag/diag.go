// Package diag renders parse errors, runtime errors and analyzer warnings as
// source snippets with a caret under the offending bytes:
//
//	error: unclosed loop: '[' has no matching ']'
//	  --> hello.bf:2:3
//	   |
//	 2 | ab[x
//	   |   ^
//	   = hint: add a ']' to close this loop
package diag

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/opal-lang/bfi/core/ast"
	"github.com/opal-lang/bfi/core/formatter"
	"github.com/opal-lang/bfi/runtime/analyzer"
	"github.com/opal-lang/bfi/runtime/executor"
	"github.com/opal-lang/bfi/runtime/parser"
)

// Severity of a Diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

func (s Severity) color() string {
	if s == SeverityWarning {
		return formatter.ColorYellow
	}
	return formatter.ColorRed
}

// Diagnostic is a located message. A zero-length Span renders without a
// snippet.
type Diagnostic struct {
	Severity Severity
	Message  string
	Span     ast.Span
	Hint     string
}

// FromError builds a diagnostic from a parse or runtime error found anywhere
// in err's chain. ok is false for any other error.
func FromError(err error) (d Diagnostic, ok bool) {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		return Diagnostic{
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s: %s", pe.Kind, pe.Detail()),
			Span:     pe.Span(),
			Hint:     pe.Hint(),
		}, true
	}

	var re *executor.RuntimeError
	if errors.As(err, &re) {
		d := Diagnostic{
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s failed: %v", re.Op, re.Cause),
			Span:     re.Span,
		}
		if errors.Is(re.Cause, executor.ErrStepLimit) {
			d.Hint = "the program may not terminate; raise the step limit if it is expected to run longer"
		}
		return d, true
	}
	return Diagnostic{}, false
}

// FromWarning builds a warning diagnostic.
func FromWarning(w analyzer.Warning) Diagnostic {
	d := Diagnostic{
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("%s: %s", w.Kind, w.Message),
		Span:     w.Span,
	}
	switch w.Kind {
	case analyzer.DeadLoop:
		d.Hint = "a loop at program start is a comment"
	case analyzer.EmptyLoop:
		d.Hint = "remove the loop or give it a body"
	}
	return d
}

// Position is a 1-based line and byte column.
type Position struct {
	Line   int
	Column int
}

// Locate maps a byte offset into source to its line and column. Offsets
// outside the source clamp to its bounds.
func Locate(source []byte, offset int) Position {
	offset = clamp(offset, 0, len(source))
	before := source[:offset]
	lineStart := bytes.LastIndexByte(before, '\n') + 1
	return Position{
		Line:   bytes.Count(before, []byte{'\n'}) + 1,
		Column: offset - lineStart + 1,
	}
}

// Render writes d as a snippet of source. label names the source in the
// location line; an empty label reads "<input>".
func Render(w io.Writer, source []byte, label string, d Diagnostic, useColor bool) error {
	if label == "" {
		label = "<input>"
	}

	var b strings.Builder
	b.WriteString(formatter.Colorize(d.Severity.String(), formatter.ColorBold+d.Severity.color(), useColor))
	b.WriteString(formatter.Colorize(": "+d.Message, formatter.ColorBold, useColor))
	b.WriteByte('\n')

	if d.Span.Len() > 0 {
		writeSnippet(&b, source, label, d, useColor)
	}
	if d.Hint != "" {
		fmt.Fprintf(&b, "   %s %s\n",
			formatter.Colorize("=", formatter.ColorBlue, useColor),
			formatter.Colorize("hint: "+d.Hint, formatter.ColorCyan, useColor))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeSnippet(b *strings.Builder, source []byte, label string, d Diagnostic, useColor bool) {
	pos := Locate(source, d.Span.Start)
	start := clamp(d.Span.Start, 0, len(source))
	lineStart := start - (pos.Column - 1)
	lineEnd := len(source)
	if i := bytes.IndexByte(source[lineStart:], '\n'); i >= 0 {
		lineEnd = lineStart + i
	}
	line := strings.TrimSuffix(string(source[lineStart:lineEnd]), "\r")

	number := fmt.Sprintf("%d", pos.Line)
	width := max(len(number), 2)
	gutter := formatter.Colorize(strings.Repeat(" ", width+1)+"|", formatter.ColorBlue, useColor)

	fmt.Fprintf(b, "%s--> %s:%d:%d\n", strings.Repeat(" ", width), label, pos.Line, pos.Column)
	fmt.Fprintf(b, "%s\n", gutter)
	fmt.Fprintf(b, "%s %s\n", formatter.Colorize(fmt.Sprintf("%*s |", width, number), formatter.ColorBlue, useColor), line)

	// Carets stop at the end of the first line of a multi-line span.
	end := clamp(d.Span.End, start, lineEnd)
	carets := max(end-start, 1)
	fmt.Fprintf(b, "%s %s%s\n", gutter,
		padding(source[lineStart:start]),
		formatter.Colorize(strings.Repeat("^", carets), d.Severity.color(), useColor))
}

// padding returns whitespace as wide as prefix, keeping tabs so the caret
// lines up under tab-indented source.
func padding(prefix []byte) string {
	pad := make([]byte, len(prefix))
	for i, c := range prefix {
		if c == '\t' {
			pad[i] = '\t'
		} else {
			pad[i] = ' '
		}
	}
	return string(pad)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
