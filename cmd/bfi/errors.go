package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/opal-lang/bfi/core/ast"
	"github.com/opal-lang/bfi/core/diag"
)

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Type    string // "usage", "io", "ir", "check"
	Message string
	Details string // Additional context
	Hint    string // How to fix it
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// SourceError ties a parse or runtime error to the program text it came
// from. Source is nil for programs loaded from IR files.
type SourceError struct {
	Label  string
	Source []byte
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Label, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// FormatError formats an error for CLI output with colors
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}

	var se *SourceError
	if errors.As(err, &se) {
		if d, ok := diag.FromError(se.Err); ok {
			if se.Source == nil {
				// IR spans point into text we no longer have.
				d.Span = ast.Span{}
			}
			_ = diag.Render(w, se.Source, se.Label, d, useColor)
			return
		}
	}

	var ce *CLIError
	if errors.As(err, &ce) {
		formatCLIError(w, ce, useColor)
		return
	}

	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
}

// formatCLIError formats CLI errors
func formatCLIError(w io.Writer, err *CLIError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Message)

	if err.Details != "" {
		_, _ = fmt.Fprintf(w, "%s\n", Colorize("  "+err.Details, ColorGray, useColor))
	}

	if err.Hint != "" {
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), err.Hint)
	}
}
