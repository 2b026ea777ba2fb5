package irfmt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"golang.org/x/crypto/blake2b"

	"github.com/opal-lang/bfi/core/ast"
	"github.com/opal-lang/bfi/core/invariant"
)

// Write encodes f to w and returns the body digest. An empty f.Compiler is
// written as CompilerVersion.
func Write(w io.Writer, f *File) ([32]byte, error) {
	invariant.NotNil(f, "file")
	invariant.NotNil(f.Program, "program")

	compiler := f.Compiler
	if compiler == "" {
		compiler = CompilerVersion
	}

	var header bytes.Buffer
	if err := writeString(&header, compiler, "compiler"); err != nil {
		return [32]byte{}, err
	}
	if err := writeString(&header, f.Label, "label"); err != nil {
		return [32]byte{}, err
	}

	body, err := encodeBody(f.Program)
	if err != nil {
		return [32]byte{}, err
	}

	flags := f.Flags
	if classified(f.Program) {
		flags |= FlagClassified
	}

	var preamble bytes.Buffer
	preamble.WriteString(Magic)
	_ = binary.Write(&preamble, binary.LittleEndian, Version)
	_ = binary.Write(&preamble, binary.LittleEndian, uint16(flags))
	_ = binary.Write(&preamble, binary.LittleEndian, uint32(header.Len()))
	_ = binary.Write(&preamble, binary.LittleEndian, uint64(len(body)))
	invariant.Postcondition(preamble.Len() == preambleLen, "preamble is %d bytes", preamble.Len())

	for _, part := range [][]byte{preamble.Bytes(), header.Bytes(), body} {
		if _, err := w.Write(part); err != nil {
			return [32]byte{}, err
		}
	}
	return blake2b.Sum256(body), nil
}

// Fingerprint returns the digest Write would return for program.
func Fingerprint(program *ast.Program) ([32]byte, error) {
	invariant.NotNil(program, "program")
	body, err := encodeBody(program)
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(body), nil
}

// writeString writes a 2-byte length prefix and the string bytes.
func writeString(buf *bytes.Buffer, s, field string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("%s length %d exceeds maximum %d", field, len(s), math.MaxUint16)
	}
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(s)))
	buf.WriteString(s)
	return nil
}

func encodeBody(program *ast.Program) ([]byte, error) {
	if depth := program.Depth(); depth > MaxDepth {
		return nil, fmt.Errorf("nesting depth %d exceeds maximum %d", depth, MaxDepth)
	}
	buf := binary.AppendUvarint(nil, uint64(len(program.Body)))
	for i := range program.Body {
		buf = appendNode(buf, &program.Body[i])
	}
	if len(buf) > maxBodyLen {
		return nil, fmt.Errorf("body length %d exceeds maximum %d", len(buf), maxBodyLen)
	}
	return buf, nil
}

func appendNode(buf []byte, n *ast.Node) []byte {
	invariant.Precondition(n.Kind.Valid(), "cannot encode node kind %s", n.Kind)
	invariant.Precondition(n.Span.Start >= 0 && n.Span.End >= n.Span.Start, "malformed span %s", n.Span)

	buf = append(buf, byte(n.Kind))
	buf = binary.AppendUvarint(buf, uint64(n.Span.Start))
	buf = binary.AppendUvarint(buf, uint64(n.Span.End))

	switch n.Kind {
	case ast.KindIncPtr, ast.KindDecPtr:
		buf = binary.AppendUvarint(buf, uint64(n.Count))
	case ast.KindInc, ast.KindDec, ast.KindSet:
		buf = append(buf, n.Value)
	case ast.KindAdd, ast.KindSub:
		buf = binary.AppendVarint(buf, int64(n.Offset))
		buf = append(buf, n.Multiplier)
	case ast.KindSearchZero:
		buf = binary.AppendVarint(buf, int64(n.Step))
	case ast.KindILoop:
		buf = binary.AppendVarint(buf, int64(n.Offset))
		buf = append(buf, uint8(n.Step))
	case ast.KindCLoop:
		buf = binary.AppendVarint(buf, int64(n.Offset))
		buf = binary.AppendUvarint(buf, uint64(n.Iterations))
	case ast.KindTNz:
		buf = binary.AppendVarint(buf, int64(n.Offset))
	}

	if n.IsLoop() {
		buf = binary.AppendUvarint(buf, uint64(len(n.Children)))
		for i := range n.Children {
			buf = appendNode(buf, &n.Children[i])
		}
	}
	return buf
}
