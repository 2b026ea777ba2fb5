package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/opal-lang/bfi/core/ast"
	"github.com/opal-lang/bfi/core/irfmt"
	"github.com/opal-lang/bfi/runtime/optimizer"
	"github.com/opal-lang/bfi/runtime/parser"
)

// Optimization levels for -O.
const (
	optNone     = 0 // raw parser output
	optPeephole = 1 // peephole passes
	optClassify = 2 // peephole passes and loop classification
)

// program is a loaded, optimized program and the text it came from.
type program struct {
	label  string
	source []byte // nil when loaded from an IR file
	tree   *ast.Program
}

func (p *program) sourceError(err error) error {
	return &SourceError{Label: p.label, Source: p.source, Err: err}
}

// readInput reads path, or stdin when path is "-".
func (a *app) readInput(path string) ([]byte, string, error) {
	if path == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, "", &CLIError{Type: "io", Message: "cannot read standard input", Details: err.Error()}
		}
		return data, "<stdin>", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", &CLIError{
			Type:    "io",
			Message: fmt.Sprintf("cannot read %s", path),
			Details: err.Error(),
		}
	}
	return data, path, nil
}

// parse parses source text with the configured nesting bound.
func (a *app) parse(data []byte, label string) (*ast.Program, error) {
	var tel parser.Telemetry
	tree, err := parser.Parse(data,
		parser.WithMaxDepth(a.maxDepth),
		parser.WithTelemetry(&tel),
		parser.WithLogger(a.logger))
	if err != nil {
		return nil, &SourceError{Label: label, Source: data, Err: err}
	}
	a.report("parsed",
		"bytes", tel.Bytes,
		"instructions", tel.Instructions,
		"loops", tel.Loops,
		"depth", tel.MaxDepthSeen,
		"duration", tel.Duration)
	return tree, nil
}

// load reads path and returns its program optimized at level. IR files
// are already optimized and are returned as stored.
func (a *app) load(path string, level int) (*program, error) {
	if level < optNone || level > optClassify {
		return nil, &CLIError{
			Type:    "usage",
			Message: fmt.Sprintf("invalid optimization level %d", level),
			Hint:    "use -O 0 (none), -O 1 (peephole) or -O 2 (peephole and loop classification)",
		}
	}

	data, label, err := a.readInput(path)
	if err != nil {
		return nil, err
	}

	if irfmt.IsIRFile(data) {
		f, digest, err := irfmt.Read(bytes.NewReader(data))
		if err != nil {
			return nil, &CLIError{
				Type:    "ir",
				Message: fmt.Sprintf("cannot load %s", label),
				Details: err.Error(),
				Hint:    "recompile the source with bfi compile",
			}
		}
		a.report("loaded compiled program",
			"source", f.Label,
			"compiler", f.Compiler,
			"digest", fmt.Sprintf("%x", digest[:8]),
			"instructions", f.Program.InstructionCount())
		return &program{label: label, tree: f.Program}, nil
	}

	tree, err := a.parse(data, label)
	if err != nil {
		return nil, err
	}
	a.optimize(tree, level)
	return &program{label: label, source: data, tree: tree}, nil
}

func (a *app) optimize(tree *ast.Program, level int) {
	if level == optNone {
		return
	}
	opts := []optimizer.Option{optimizer.WithLogger(a.logger)}
	if level >= optClassify {
		opts = append(opts, optimizer.WithLoopClassification())
	}

	var stats optimizer.Stats
	start := time.Now()
	optimizer.Optimize(tree, append(opts, optimizer.WithStats(&stats))...)
	a.report("optimized",
		"level", level,
		"rounds", stats.Rounds,
		"before", stats.Before,
		"after", stats.After,
		"duration", time.Since(start))
}
