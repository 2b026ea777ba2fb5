// Package executor walks an instruction tree against a tape of byte cells.
//
// It runs raw parser output and optimizer output alike: every node kind has
// a direct implementation. Execution is sequential; output is buffered and
// flushed before every read and when the program ends.
package executor

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/opal-lang/bfi/core/ast"
	"github.com/opal-lang/bfi/core/invariant"
)

// EOFMode decides what GetChar stores when the input is exhausted.
type EOFMode int

const (
	EOFUnchanged EOFMode = iota // leave the cell as it was (default)
	EOFZero                     // store 0
	EOFMax                      // store 255
)

func (m EOFMode) String() string {
	switch m {
	case EOFZero:
		return "zero"
	case EOFMax:
		return "max"
	default:
		return "unchanged"
	}
}

// EOFModes lists the accepted names for ParseEOFMode.
var EOFModes = []string{"unchanged", "zero", "max"}

// ParseEOFMode maps a name from EOFModes to its mode.
func ParseEOFMode(name string) (EOFMode, bool) {
	switch name {
	case "unchanged":
		return EOFUnchanged, true
	case "zero":
		return EOFZero, true
	case "max":
		return EOFMax, true
	default:
		return EOFUnchanged, false
	}
}

// Option configures an Executor.
type Option func(*Executor)

// WithEOF sets the end-of-input behaviour of GetChar.
func WithEOF(mode EOFMode) Option {
	return func(e *Executor) {
		e.eof = mode
	}
}

// WithStepLimit aborts execution with ErrStepLimit after n executed
// instructions. Zero means unlimited.
func WithStepLimit(n int) Option {
	return func(e *Executor) {
		e.stepLimit = n
	}
}

// WithLogger traces execution start and end at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// Executor runs programs. It is not safe for concurrent use.
type Executor struct {
	in        io.ByteReader
	out       *bufio.Writer
	eof       EOFMode
	stepLimit int
	logger    *slog.Logger

	tape  *tape
	steps int
}

// New returns an executor reading from in and writing to out.
func New(in io.Reader, out io.Writer, opts ...Option) *Executor {
	invariant.NotNil(in, "input")
	invariant.NotNil(out, "output")

	br, ok := in.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(in)
	}
	e := &Executor{
		in:     br,
		out:    bufio.NewWriter(out),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs program on a fresh tape. It returns ctx.Err() if ctx is
// cancelled between loop iterations and a *RuntimeError on I/O failure.
// Output written before a failure is still flushed.
func (e *Executor) Execute(ctx context.Context, program *ast.Program) error {
	invariant.NotNil(program, "program")

	e.tape = newTape()
	e.steps = 0
	start := time.Now()

	err := e.run(ctx, program.Body)
	if ferr := e.out.Flush(); ferr != nil && err == nil {
		err = &RuntimeError{Op: "flush", Cause: ferr}
	}

	e.logger.Debug("executed",
		"steps", e.steps,
		"duration", time.Since(start),
		"error", err)
	return err
}

// Steps returns the number of instructions and loop iterations the last
// Execute ran.
func (e *Executor) Steps() int {
	return e.steps
}

// Pointer returns the data pointer relative to the starting cell.
func (e *Executor) Pointer() int {
	if e.tape == nil {
		return 0
	}
	return e.tape.ptr
}

// Cell returns the cell at index i relative to the starting cell.
func (e *Executor) Cell(i int) byte {
	if e.tape == nil {
		return 0
	}
	return *e.tape.at(i - e.tape.ptr)
}

func (e *Executor) run(ctx context.Context, nodes []ast.Node) error {
	t := e.tape
	for i := range nodes {
		n := &nodes[i]
		if err := e.step(n); err != nil {
			return err
		}

		switch n.Kind {
		case ast.KindIncPtr:
			t.ptr += int(n.Count)
		case ast.KindDecPtr:
			t.ptr -= int(n.Count)
		case ast.KindInc:
			*t.at(0) += n.Value
		case ast.KindDec:
			*t.at(0) -= n.Value
		case ast.KindSet:
			*t.at(0) = n.Value
		case ast.KindAdd:
			src := *t.at(0)
			*t.at(n.Offset) += n.Multiplier * src
		case ast.KindSub:
			src := *t.at(0)
			*t.at(n.Offset) -= n.Multiplier * src
		case ast.KindPutChar:
			if err := e.out.WriteByte(*t.at(0)); err != nil {
				return &RuntimeError{Op: "write", Span: n.Span, Cause: err}
			}
		case ast.KindGetChar:
			if err := e.read(n); err != nil {
				return err
			}
		case ast.KindSearchZero:
			for *t.at(0) != 0 {
				t.ptr += n.Step
			}
		case ast.KindDLoop:
			for *t.at(0) != 0 {
				if err := e.iterate(ctx, n); err != nil {
					return err
				}
			}
		case ast.KindILoop:
			for *t.at(n.Offset) != 0 {
				if err := e.iterate(ctx, n); err != nil {
					return err
				}
				*t.at(n.Offset) -= uint8(n.Step)
			}
		case ast.KindCLoop:
			for k := 0; k < n.Iterations; k++ {
				if err := e.iterate(ctx, n); err != nil {
					return err
				}
			}
			*t.at(n.Offset) = 0
		case ast.KindTNz:
			if *t.at(n.Offset) != 0 {
				if err := e.iterate(ctx, n); err != nil {
					return err
				}
			}
		default:
			invariant.Invariant(false, "unknown node kind %s", n.Kind)
		}
	}
	return nil
}

// iterate runs one pass over a loop body. Each pass counts as a step, so an
// empty body spinning forever still hits the step limit.
func (e *Executor) iterate(ctx context.Context, loop *ast.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.step(loop); err != nil {
		return err
	}
	return e.run(ctx, loop.Children)
}

func (e *Executor) step(n *ast.Node) error {
	e.steps++
	if e.stepLimit > 0 && e.steps > e.stepLimit {
		return &RuntimeError{Op: "step", Span: n.Span, Cause: ErrStepLimit}
	}
	return nil
}

func (e *Executor) read(n *ast.Node) error {
	// Interactive programs must see their prompt before blocking on input.
	if err := e.out.Flush(); err != nil {
		return &RuntimeError{Op: "flush", Span: n.Span, Cause: err}
	}

	c, err := e.in.ReadByte()
	switch {
	case err == nil:
		*e.tape.at(0) = c
	case errors.Is(err, io.EOF):
		switch e.eof {
		case EOFZero:
			*e.tape.at(0) = 0
		case EOFMax:
			*e.tape.at(0) = 0xFF
		}
	default:
		return &RuntimeError{Op: "read", Span: n.Span, Cause: err}
	}
	return nil
}
