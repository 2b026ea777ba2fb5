package parser

import (
	"time"

	"github.com/opal-lang/bfi/core/ast"
	"github.com/opal-lang/bfi/core/invariant"
)

// baseOpen is the open position recorded for the implicit top-level frame.
const baseOpen = -1

// frame is one nesting level under construction: where its '[' was and the
// children accumulated so far.
type frame struct {
	open     int
	children []ast.Node
}

// parser is the internal parser state
type parser struct {
	source  []byte
	frames  []frame
	config  *ParserConfig
	emitted int
	loops   int
	deepest int
}

// Parse scans source once, left to right, and returns the instruction tree.
// Bytes other than the eight instruction characters are comments.
// Parsing is atomic: on error the returned program is nil.
func Parse(source []byte, opts ...ParserOpt) (*ast.Program, error) {
	config := newConfig(opts)
	invariant.Positive(config.maxDepth, "max depth")

	start := time.Now()
	p := &parser{
		source: source,
		frames: make([]frame, 1, 16),
		config: config,
	}
	p.frames[0] = frame{open: baseOpen}

	if err := p.scan(); err != nil {
		config.logger.Debug("parse failed", "error", err)
		return nil, err
	}

	invariant.Postcondition(len(p.frames) == 1, "frame stack must unwind to the base frame, got %d", len(p.frames))
	program := ast.NewProgram(p.frames[0].children)

	if t := config.telemetry; t != nil {
		*t = Telemetry{
			Bytes:        len(source),
			Instructions: p.emitted,
			Loops:        p.loops,
			MaxDepthSeen: p.deepest,
			Duration:     time.Since(start),
		}
	}
	config.logger.Debug("parsed",
		"bytes", len(source),
		"instructions", p.emitted,
		"loops", p.loops,
		"depth", p.deepest)

	return program, nil
}

// ParseString is a convenience wrapper for tests
func ParseString(input string, opts ...ParserOpt) (*ast.Program, error) {
	return Parse([]byte(input), opts...)
}

func (p *parser) scan() error {
	for pos, c := range p.source {
		span := ast.NewSpan(pos, pos+1)
		switch c {
		case '>':
			p.emit(ast.NewIncPtr(span, 1))
		case '<':
			p.emit(ast.NewDecPtr(span, 1))
		case '+':
			p.emit(ast.NewInc(span, 1))
		case '-':
			p.emit(ast.NewDec(span, 1))
		case '.':
			p.emit(ast.NewPutChar(span))
		case ',':
			p.emit(ast.NewGetChar(span))
		case '[':
			if len(p.frames) >= p.config.maxDepth {
				return &ParseError{Kind: LoopStackOverflow, Position: pos, MaxDepth: p.config.maxDepth}
			}
			p.frames = append(p.frames, frame{open: pos})
			if open := len(p.frames) - 1; open > p.deepest {
				p.deepest = open
			}
		case ']':
			if len(p.frames) == 1 {
				return &ParseError{Kind: BadlyClosedLoop, Position: pos}
			}
			closed := p.frames[len(p.frames)-1]
			p.frames = p.frames[:len(p.frames)-1]
			p.loops++
			p.emit(ast.NewDLoop(ast.NewSpan(closed.open, pos+1), closed.children))
		}
	}

	if len(p.frames) > 1 {
		innermost := p.frames[len(p.frames)-1]
		invariant.Invariant(innermost.open != baseOpen, "only the base frame may carry the sentinel position")
		return &ParseError{Kind: UnclosedLoop, Position: innermost.open}
	}
	return nil
}

// emit appends n to the innermost open frame.
func (p *parser) emit(n ast.Node) {
	top := &p.frames[len(p.frames)-1]
	top.children = append(top.children, n)
	p.emitted++
}
