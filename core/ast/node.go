// Package ast defines the instruction tree produced by the parser, rewritten
// by the optimizer and walked by the executor.
//
// The tree is a strict forest: loop nodes own their children slices
// exclusively, nothing is shared and there are no back references. Passes
// mutate it in place by index.
package ast

import (
	"fmt"
	"strings"
)

// Kind discriminates the variants of Node.
//
// IMPORTANT: the numeric values are part of the irfmt encoding. Add new kinds
// at the END of the list.
type Kind uint8

const (
	KindIncPtr     Kind = iota // move pointer right by Count
	KindDecPtr                 // move pointer left by Count
	KindInc                    // add Value to current cell
	KindDec                    // subtract Value from current cell
	KindSet                    // assign Value to current cell
	KindAdd                    // cell[p+Offset] += Multiplier * cell[p]
	KindSub                    // cell[p+Offset] -= Multiplier * cell[p]
	KindPutChar                // write current cell
	KindGetChar                // read into current cell
	KindDLoop                  // dynamic loop on current cell
	KindILoop                  // induction loop: guard at Offset, decremented by Step
	KindCLoop                  // counted loop: body runs Iterations times
	KindTNz                    // run body once if cell[p+Offset] != 0
	KindSearchZero             // move pointer by Step until a zero cell
)

var kindNames = [...]string{
	KindIncPtr:     "IncPtr",
	KindDecPtr:     "DecPtr",
	KindInc:        "Inc",
	KindDec:        "Dec",
	KindSet:        "Set",
	KindAdd:        "Add",
	KindSub:        "Sub",
	KindPutChar:    "PutChar",
	KindGetChar:    "GetChar",
	KindDLoop:      "DLoop",
	KindILoop:      "ILoop",
	KindCLoop:      "CLoop",
	KindTNz:        "TNz",
	KindSearchZero: "SearchZero",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k <= KindSearchZero
}

// IsLoop reports whether nodes of this kind own a children sequence.
func (k Kind) IsLoop() bool {
	switch k {
	case KindDLoop, KindILoop, KindCLoop, KindTNz:
		return true
	default:
		return false
	}
}

// Node is one instruction. Which operand fields are meaningful depends on
// Kind; the rest stay zero:
//
//	IncPtr, DecPtr     Count
//	Inc, Dec, Set      Value
//	Add, Sub           Offset, Multiplier
//	ILoop              Children, Offset, Step (1..255)
//	CLoop              Children, Offset, Iterations
//	TNz                Children, Offset
//	DLoop              Children
//	SearchZero         Step (signed pointer delta)
type Node struct {
	Kind       Kind
	Span       Span
	Count      uint
	Value      uint8
	Offset     int
	Multiplier uint8
	Step       int
	Iterations int
	Children   []Node
}

func NewIncPtr(span Span, count uint) Node { return Node{Kind: KindIncPtr, Span: span, Count: count} }
func NewDecPtr(span Span, count uint) Node { return Node{Kind: KindDecPtr, Span: span, Count: count} }
func NewInc(span Span, value uint8) Node   { return Node{Kind: KindInc, Span: span, Value: value} }
func NewDec(span Span, value uint8) Node   { return Node{Kind: KindDec, Span: span, Value: value} }
func NewSet(span Span, value uint8) Node   { return Node{Kind: KindSet, Span: span, Value: value} }
func NewPutChar(span Span) Node            { return Node{Kind: KindPutChar, Span: span} }
func NewGetChar(span Span) Node            { return Node{Kind: KindGetChar, Span: span} }

func NewAdd(span Span, offset int, multiplier uint8) Node {
	return Node{Kind: KindAdd, Span: span, Offset: offset, Multiplier: multiplier}
}

func NewSub(span Span, offset int, multiplier uint8) Node {
	return Node{Kind: KindSub, Span: span, Offset: offset, Multiplier: multiplier}
}

func NewDLoop(span Span, children []Node) Node {
	return Node{Kind: KindDLoop, Span: span, Children: children}
}

func NewILoop(span Span, children []Node, offset int, step uint8) Node {
	return Node{Kind: KindILoop, Span: span, Children: children, Offset: offset, Step: int(step)}
}

func NewCLoop(span Span, children []Node, offset, iterations int) Node {
	return Node{Kind: KindCLoop, Span: span, Children: children, Offset: offset, Iterations: iterations}
}

func NewTNz(span Span, children []Node, offset int) Node {
	return Node{Kind: KindTNz, Span: span, Children: children, Offset: offset}
}

func NewSearchZero(span Span, step int) Node {
	return Node{Kind: KindSearchZero, Span: span, Step: step}
}

// IsLoop reports whether the node owns a children sequence.
func (n *Node) IsLoop() bool {
	return n.Kind.IsLoop()
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	if n.Children != nil {
		n.Children = CloneNodes(n.Children)
	}
	return n
}

// CloneNodes deep-copies a sequence.
func CloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i := range nodes {
		out[i] = nodes[i].Clone()
	}
	return out
}

// Operands renders the kind-specific operands, e.g. "(3)" or "(offset=1, x2)".
func (n *Node) Operands() string {
	switch n.Kind {
	case KindIncPtr, KindDecPtr:
		return fmt.Sprintf("(%d)", n.Count)
	case KindInc, KindDec, KindSet:
		return fmt.Sprintf("(%d)", n.Value)
	case KindAdd, KindSub:
		return fmt.Sprintf("(offset=%d, x%d)", n.Offset, n.Multiplier)
	case KindILoop:
		return fmt.Sprintf("(offset=%d, step=%d)", n.Offset, n.Step)
	case KindCLoop:
		return fmt.Sprintf("(offset=%d, iterations=%d)", n.Offset, n.Iterations)
	case KindTNz:
		return fmt.Sprintf("(offset=%d)", n.Offset)
	case KindSearchZero:
		return fmt.Sprintf("(%d)", n.Step)
	default:
		return ""
	}
}

// String renders the node on a single line, children inline:
// DLoop[Dec(1) IncPtr(1)].
func (n Node) String() string {
	var b strings.Builder
	b.WriteString(n.Kind.String())
	b.WriteString(n.Operands())
	if n.IsLoop() {
		b.WriteByte('[')
		for i, child := range n.Children {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(child.String())
		}
		b.WriteByte(']')
	}
	return b.String()
}
