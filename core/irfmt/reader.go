package irfmt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/crypto/blake2b"

	"github.com/opal-lang/bfi/core/ast"
)

// ErrIncompatible is returned when a file was written by a compiler whose
// version this build cannot read.
var ErrIncompatible = errors.New("incompatible compiler version")

// minNodeLen is the smallest encoded node: kind byte and two one-byte
// span varints.
const minNodeLen = 3

// Read decodes a file from r and returns it with the body digest.
func Read(r io.Reader) (*File, [32]byte, error) {
	var preamble [preambleLen]byte
	if _, err := io.ReadFull(r, preamble[:]); err != nil {
		return nil, [32]byte{}, fmt.Errorf("read preamble: %w", err)
	}

	if magic := string(preamble[0:4]); magic != Magic {
		return nil, [32]byte{}, fmt.Errorf("invalid magic: got %q, expected %q", magic, Magic)
	}
	if version := binary.LittleEndian.Uint16(preamble[4:6]); version != Version {
		return nil, [32]byte{}, fmt.Errorf("unsupported version: got 0x%04x, expected 0x%04x", version, Version)
	}
	flags := Flags(binary.LittleEndian.Uint16(preamble[6:8]))
	if flags&^knownFlags != 0 {
		return nil, [32]byte{}, fmt.Errorf("unsupported flags: 0x%04x (unknown bits: 0x%04x)", flags, flags&^knownFlags)
	}

	headerLen := binary.LittleEndian.Uint32(preamble[8:12])
	bodyLen := binary.LittleEndian.Uint64(preamble[12:20])
	if headerLen > maxHeaderLen {
		return nil, [32]byte{}, fmt.Errorf("header length %d exceeds maximum %d", headerLen, maxHeaderLen)
	}
	if bodyLen > maxBodyLen {
		return nil, [32]byte{}, fmt.Errorf("body length %d exceeds maximum %d", bodyLen, maxBodyLen)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, [32]byte{}, fmt.Errorf("read header: %w", err)
	}
	f := &File{Flags: flags}
	hr := bytes.NewReader(header)
	var err error
	if f.Compiler, err = readString(hr); err != nil {
		return nil, [32]byte{}, fmt.Errorf("read compiler: %w", err)
	}
	if f.Label, err = readString(hr); err != nil {
		return nil, [32]byte{}, fmt.Errorf("read label: %w", err)
	}
	if !compatible(f.Compiler) {
		return nil, [32]byte{}, fmt.Errorf("file written by %q, this build is %s: %w", f.Compiler, CompilerVersion, ErrIncompatible)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, [32]byte{}, fmt.Errorf("read body: %w", err)
	}
	program, err := decodeBody(body)
	if err != nil {
		return nil, [32]byte{}, fmt.Errorf("parse body: %w", err)
	}
	f.Program = program

	return f, blake2b.Sum256(body), nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

type decoder struct {
	r *bytes.Reader
}

func decodeBody(body []byte) (*ast.Program, error) {
	d := &decoder{r: bytes.NewReader(body)}
	nodes, err := d.sequence(0)
	if err != nil {
		return nil, err
	}
	if d.r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes", d.r.Len())
	}
	return ast.NewProgram(nodes), nil
}

// sequence reads a count-prefixed node list at the given loop depth.
func (d *decoder) sequence(depth int) ([]ast.Node, error) {
	count, err := binary.ReadUvarint(d.r)
	if err != nil {
		return nil, fmt.Errorf("read node count: %w", err)
	}
	if count > uint64(d.r.Len()/minNodeLen) {
		return nil, fmt.Errorf("node count %d exceeds remaining body", count)
	}
	if count == 0 {
		return nil, nil
	}
	nodes := make([]ast.Node, count)
	for i := range nodes {
		if err := d.node(&nodes[i], depth); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

func (d *decoder) node(n *ast.Node, depth int) error {
	kind, err := d.r.ReadByte()
	if err != nil {
		return fmt.Errorf("read kind: %w", err)
	}
	n.Kind = ast.Kind(kind)
	if !n.Kind.Valid() {
		return fmt.Errorf("unknown node kind %d", kind)
	}

	start, err := d.uvarint()
	if err != nil {
		return err
	}
	end, err := d.uvarint()
	if err != nil {
		return err
	}
	if end < start {
		return fmt.Errorf("span end %d before start %d", end, start)
	}
	n.Span = ast.NewSpan(start, end)

	switch n.Kind {
	case ast.KindIncPtr, ast.KindDecPtr:
		var count int
		if count, err = d.uvarint(); err == nil {
			n.Count = uint(count)
		}
	case ast.KindInc, ast.KindDec, ast.KindSet:
		n.Value, err = d.r.ReadByte()
	case ast.KindAdd, ast.KindSub:
		if n.Offset, err = d.varint(); err == nil {
			n.Multiplier, err = d.r.ReadByte()
		}
	case ast.KindSearchZero:
		n.Step, err = d.varint()
	case ast.KindILoop:
		if n.Offset, err = d.varint(); err == nil {
			var step byte
			step, err = d.r.ReadByte()
			n.Step = int(step)
		}
	case ast.KindCLoop:
		if n.Offset, err = d.varint(); err == nil {
			n.Iterations, err = d.uvarint()
		}
	case ast.KindTNz:
		n.Offset, err = d.varint()
	}
	if err != nil {
		return fmt.Errorf("read %s operands: %w", n.Kind, err)
	}
	if (n.Kind == ast.KindSearchZero || n.Kind == ast.KindILoop) && n.Step == 0 {
		return fmt.Errorf("%s at %s has zero step", n.Kind, n.Span)
	}

	if n.IsLoop() {
		if depth+1 > MaxDepth {
			return fmt.Errorf("nesting depth exceeds maximum %d", MaxDepth)
		}
		if n.Children, err = d.sequence(depth + 1); err != nil {
			return err
		}
	}
	return nil
}

// uvarint reads a value that must fit a non-negative int.
func (d *decoder) uvarint() (int, error) {
	v, err := binary.ReadUvarint(d.r)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, fmt.Errorf("value %d out of range", v)
	}
	return int(v), nil
}

func (d *decoder) varint() (int, error) {
	v, err := binary.ReadVarint(d.r)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("value %d out of range", v)
	}
	return int(v), nil
}
