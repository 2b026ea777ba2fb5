package optimizer

import (
	"github.com/opal-lang/bfi/core/ast"
)

// classifyLoops replaces dynamic loops whose shape is statically known:
//
//	[>>]          SearchZero(2)
//	[->+>---<<]   Add(1, x1) Sub(2, x3) Set(0)
//	[... [-]]     TNz, the body ends by zeroing the guard
//	[... --]      ILoop with step 2, guard untouched by the rest of the body
//	Set(6) [.. --] CLoop with 3 iterations
//
// Every result is a non-DLoop node, so a classified loop is never revisited.
func classifyLoops(seq *[]ast.Node) bool {
	changed := false
	s := *seq
	for i := 0; i < len(s); i++ {
		if s[i].Kind == ast.KindDLoop {
			var prev *ast.Node
			if i > 0 {
				prev = &s[i-1]
			}
			if replacement, ok := classify(&s[i], prev); ok {
				s = splice(s, i, replacement)
				i += len(replacement) - 1
				changed = true
				continue
			}
		}
		if s[i].IsLoop() && classifyLoops(&s[i].Children) {
			changed = true
		}
	}
	*seq = s
	return changed
}

// splice replaces s[i] with nodes.
func splice(s []ast.Node, i int, nodes []ast.Node) []ast.Node {
	out := make([]ast.Node, 0, len(s)+len(nodes)-1)
	out = append(out, s[:i]...)
	out = append(out, nodes...)
	return append(out, s[i+1:]...)
}

func classify(loop, prev *ast.Node) ([]ast.Node, bool) {
	if n, ok := searchZero(loop); ok {
		return []ast.Node{n}, true
	}
	if nodes, ok := multiply(loop); ok {
		return nodes, true
	}

	if len(loop.Children) == 0 {
		return nil, false
	}
	effects, ok := scanBody(loop.Children)
	if !ok || effects.shift != 0 {
		return nil, false
	}

	body := loop.Children
	last := body[len(body)-1]

	if last.Kind == ast.KindSet && last.Value == 0 {
		return []ast.Node{ast.NewTNz(loop.Span, body, 0)}, true
	}

	if last.Kind != ast.KindDec || last.Value == 0 || len(body) < 2 {
		return nil, false
	}
	rest := body[:len(body)-1]
	restEffects, ok := scanBody(rest)
	if !ok || restEffects.touched[0] {
		return nil, false
	}

	step := last.Value
	if prev != nil && prev.Kind == ast.KindSet {
		if iterations, ok := tripCount(prev.Value, step); ok {
			return []ast.Node{ast.NewCLoop(loop.Span, rest, 0, iterations)}, true
		}
	}
	return []ast.Node{ast.NewILoop(loop.Span, rest, 0, step)}, true
}

// searchZero matches a body that is a single pointer move.
func searchZero(loop *ast.Node) (ast.Node, bool) {
	if len(loop.Children) != 1 {
		return ast.Node{}, false
	}
	switch move := loop.Children[0]; move.Kind {
	case ast.KindIncPtr:
		if move.Count > 0 {
			return ast.NewSearchZero(loop.Span, int(move.Count)), true
		}
	case ast.KindDecPtr:
		if move.Count > 0 {
			return ast.NewSearchZero(loop.Span, -int(move.Count)), true
		}
	}
	return ast.Node{}, false
}

// multiply matches a balanced body of cell and pointer arithmetic that
// decrements the guard by exactly one per iteration. The loop then runs
// cell[0] times and each other touched cell gains delta*cell[0].
func multiply(loop *ast.Node) ([]ast.Node, bool) {
	if len(loop.Children) == 0 {
		return nil, false
	}

	offset := 0
	deltas := map[int]uint8{}
	var order []int
	first := map[int]ast.Span{}

	for _, n := range loop.Children {
		switch n.Kind {
		case ast.KindIncPtr:
			offset += int(n.Count)
		case ast.KindDecPtr:
			offset -= int(n.Count)
		case ast.KindInc, ast.KindDec:
			if _, seen := first[offset]; !seen {
				first[offset] = n.Span
				order = append(order, offset)
			}
			if n.Kind == ast.KindInc {
				deltas[offset] += n.Value
			} else {
				deltas[offset] -= n.Value
			}
		default:
			return nil, false
		}
	}
	if offset != 0 || deltas[0] != 0xFF {
		return nil, false
	}

	var out []ast.Node
	for _, off := range order {
		d := deltas[off]
		if off == 0 || d == 0 {
			continue
		}
		if d <= 0x80 {
			out = append(out, ast.NewAdd(first[off], off, d))
		} else {
			out = append(out, ast.NewSub(first[off], off, -d))
		}
	}
	closing := ast.NewSpan(loop.Span.End-1, loop.Span.End)
	return append(out, ast.NewSet(closing, 0)), true
}

// tripCount returns the iterations a loop guarded by a cell starting at
// start takes when each iteration subtracts step, mod 256. ok is false if
// the loop never runs or never terminates.
func tripCount(start, step uint8) (int, bool) {
	if start == 0 {
		return 0, false
	}
	v := start
	for k := 1; k <= 256; k++ {
		v -= step
		if v == 0 {
			return k, true
		}
	}
	return 0, false
}

// effects describes what a sequence does relative to the pointer position
// at its start.
type effects struct {
	shift   int          // net pointer movement
	touched map[int]bool // offsets read or written
}

// scanBody computes the effects of nodes. ok is false when the pointer
// movement cannot be known statically: a SearchZero, or a nested loop whose
// body does not return the pointer to where it started.
func scanBody(nodes []ast.Node) (effects, bool) {
	e := effects{touched: map[int]bool{}}
	ok := scanInto(nodes, 0, &e)
	return e, ok
}

func scanInto(nodes []ast.Node, base int, e *effects) bool {
	cur := base
	for i := range nodes {
		n := &nodes[i]
		switch n.Kind {
		case ast.KindIncPtr:
			cur += int(n.Count)
		case ast.KindDecPtr:
			cur -= int(n.Count)
		case ast.KindInc, ast.KindDec, ast.KindSet, ast.KindPutChar, ast.KindGetChar:
			e.touched[cur] = true
		case ast.KindAdd, ast.KindSub:
			e.touched[cur] = true
			e.touched[cur+n.Offset] = true
		case ast.KindDLoop, ast.KindILoop, ast.KindCLoop, ast.KindTNz:
			e.touched[cur+n.Offset] = true
			inner := effects{touched: e.touched}
			if !scanInto(n.Children, cur, &inner) || inner.shift != cur {
				return false
			}
		default:
			return false
		}
	}
	e.shift = cur
	return true
}
