package irfmt

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/opal-lang/bfi/core/ast"
	"github.com/opal-lang/bfi/core/invariant"
)

// cborDocument is the shape written by MarshalCBOR. Field names are
// stable; tools reading the dump may rely on them.
type cborDocument struct {
	Compiler string     `cbor:"compiler"`
	Digest   []byte     `cbor:"digest"`
	Body     []cborNode `cbor:"body"`
}

type cborNode struct {
	Kind       string     `cbor:"kind"`
	Span       [2]int     `cbor:"span"`
	Count      uint       `cbor:"count,omitempty"`
	Value      uint8      `cbor:"value,omitempty"`
	Offset     int        `cbor:"offset,omitempty"`
	Multiplier uint8      `cbor:"multiplier,omitempty"`
	Step       int        `cbor:"step,omitempty"`
	Iterations int        `cbor:"iterations,omitempty"`
	Children   []cborNode `cbor:"children,omitempty"`
}

var encMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	invariant.Invariant(err == nil, "cbor encoding options: %v", err)
	return mode
}()

// MarshalCBOR encodes program as a deterministic CBOR document holding the
// compiler version, the program digest and the node tree with kind names.
func MarshalCBOR(program *ast.Program) ([]byte, error) {
	invariant.NotNil(program, "program")

	digest, err := Fingerprint(program)
	if err != nil {
		return nil, err
	}
	doc := cborDocument{
		Compiler: CompilerVersion,
		Digest:   digest[:],
		Body:     toCBOR(program.Body),
	}
	data, err := encMode.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode cbor: %w", err)
	}
	return data, nil
}

func toCBOR(nodes []ast.Node) []cborNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]cborNode, len(nodes))
	for i, n := range nodes {
		out[i] = cborNode{
			Kind:       n.Kind.String(),
			Span:       [2]int{n.Span.Start, n.Span.End},
			Count:      n.Count,
			Value:      n.Value,
			Offset:     n.Offset,
			Multiplier: n.Multiplier,
			Step:       n.Step,
			Iterations: n.Iterations,
			Children:   toCBOR(n.Children),
		}
	}
	return out
}
