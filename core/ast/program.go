package ast

import (
	"fmt"
	"io"
	"strings"
)

// Program owns the top-level instruction sequence.
type Program struct {
	Body []Node
}

// NewProgram wraps body in a Program.
func NewProgram(body []Node) *Program {
	return &Program{Body: body}
}

// Clone returns a deep copy; the copy shares no children slices with p.
func (p *Program) Clone() *Program {
	return &Program{Body: CloneNodes(p.Body)}
}

// InstructionCount counts every node at every depth, loops included.
// It walks the whole tree on each call.
func (p *Program) InstructionCount() int {
	count := 0
	Walk(p.Body, func(*Node, int) bool {
		count++
		return true
	})
	return count
}

// LoopCount counts loop nodes at every depth. It walks the whole tree on each call.
func (p *Program) LoopCount() int {
	count := 0
	Walk(p.Body, func(n *Node, _ int) bool {
		if n.IsLoop() {
			count++
		}
		return true
	})
	return count
}

// Depth returns the maximum loop nesting; a program without loops has depth 0.
func (p *Program) Depth() int {
	deepest := 0
	Walk(p.Body, func(n *Node, depth int) bool {
		if n.IsLoop() && depth+1 > deepest {
			deepest = depth + 1
		}
		return true
	})
	return deepest
}

func (p *Program) String() string {
	parts := make([]string, len(p.Body))
	for i, n := range p.Body {
		parts[i] = n.String()
	}
	return strings.Join(parts, " ")
}

// Walk visits nodes in preorder. depth is the number of enclosing loops.
// Returning false from fn skips the node's children.
func Walk(nodes []Node, fn func(n *Node, depth int) bool) {
	walk(nodes, 0, fn)
}

func walk(nodes []Node, depth int, fn func(*Node, int) bool) {
	for i := range nodes {
		n := &nodes[i]
		if fn(n, depth) && n.IsLoop() {
			walk(n.Children, depth+1, fn)
		}
	}
}

// Format writes an indented listing of the tree, one node per line:
//
//	Inc(3)                     0..3
//	DLoop                      3..8
//	  Dec(1)                   4..5
func Format(w io.Writer, p *Program) error {
	if len(p.Body) == 0 {
		_, err := fmt.Fprintln(w, "(empty program)")
		return err
	}
	return formatNodes(w, p.Body, 0)
}

func formatNodes(w io.Writer, nodes []Node, depth int) error {
	indent := strings.Repeat("  ", depth)
	for i := range nodes {
		n := &nodes[i]
		label := indent + n.Kind.String() + n.Operands()
		if _, err := fmt.Fprintf(w, "%-40s %s\n", label, n.Span); err != nil {
			return err
		}
		if n.IsLoop() {
			if err := formatNodes(w, n.Children, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
