package optimizer

import (
	"github.com/opal-lang/bfi/core/ast"
)

// elideLeadingLoops drops every loop at the front of the top-level sequence.
// Cells start at zero, so a guard tested before anything else runs is zero
// and the loop body can never execute. CLoop is not guarded and is kept.
func elideLeadingLoops(body *[]ast.Node) bool {
	n := 0
	for n < len(*body) && guarded((*body)[n].Kind) {
		n++
	}
	if n == 0 {
		return false
	}
	*body = (*body)[n:]
	return true
}

func guarded(k ast.Kind) bool {
	switch k {
	case ast.KindDLoop, ast.KindILoop, ast.KindTNz:
		return true
	default:
		return false
	}
}

// removeEmptyLoops deletes DLoop and TNz nodes without children, at any
// depth. ILoop and CLoop still change their guard cell with an empty body,
// so they stay.
func removeEmptyLoops(seq *[]ast.Node) bool {
	changed := false
	s := *seq
	for i := 0; i < len(s); i++ {
		n := &s[i]
		if !n.IsLoop() {
			continue
		}
		if len(n.Children) == 0 && (n.Kind == ast.KindDLoop || n.Kind == ast.KindTNz) {
			s = append(s[:i], s[i+1:]...)
			i--
			changed = true
			continue
		}
		if removeEmptyLoops(&n.Children) {
			changed = true
		}
	}
	*seq = s
	return changed
}

// collapseZeroLoops rewrites [-] into Set(0). Only DLoop qualifies: the
// classified loops do more per iteration than their body says.
func collapseZeroLoops(seq []ast.Node) bool {
	changed := false
	for i := range seq {
		n := &seq[i]
		if !n.IsLoop() {
			continue
		}
		if n.Kind == ast.KindDLoop && len(n.Children) == 1 {
			body := n.Children[0]
			if body.Kind == ast.KindDec && body.Value == 1 {
				*n = ast.NewSet(ast.NewSpan(n.Span.Start, body.Span.End), 0)
				changed = true
				continue
			}
		}
		if collapseZeroLoops(n.Children) {
			changed = true
		}
	}
	return changed
}

// fuseAdjacent merges or cancels neighbouring ops pairwise. After a merge
// the same index is examined again against its new neighbour. depth is only
// traversal bookkeeping.
func fuseAdjacent(seq *[]ast.Node, depth int) bool {
	changed := false
	s := *seq
	i := 0
	for i+1 < len(s) {
		merged, keep, ok := fusePair(&s[i], &s[i+1])
		if ok {
			changed = true
			if keep {
				s[i] = merged
				s = append(s[:i+1], s[i+2:]...)
			} else {
				s = append(s[:i], s[i+2:]...)
			}
			continue
		}
		if s[i].IsLoop() && fuseAdjacent(&s[i].Children, depth+1) {
			changed = true
		}
		i++
	}
	// The last node never gets a turn as the left half of a pair.
	if i < len(s) && s[i].IsLoop() && fuseAdjacent(&s[i].Children, depth+1) {
		changed = true
	}
	*seq = s
	return changed
}

// fusePair returns the replacement for a followed by b. ok is false when the
// pair does not fuse; keep is false when the two cancel out entirely.
func fusePair(a, b *ast.Node) (merged ast.Node, keep, ok bool) {
	span := a.Span.Merge(b.Span)

	switch {
	case a.Kind == ast.KindInc && b.Kind == ast.KindInc:
		return ast.NewInc(span, a.Value+b.Value), true, true
	case a.Kind == ast.KindDec && b.Kind == ast.KindDec:
		return ast.NewDec(span, a.Value+b.Value), true, true
	case a.Kind == ast.KindIncPtr && b.Kind == ast.KindIncPtr:
		return ast.NewIncPtr(span, a.Count+b.Count), true, true
	case a.Kind == ast.KindDecPtr && b.Kind == ast.KindDecPtr:
		return ast.NewDecPtr(span, a.Count+b.Count), true, true

	case a.Kind == ast.KindInc && b.Kind == ast.KindDec:
		return cellDifference(span, a.Value, b.Value, ast.KindInc, ast.KindDec)
	case a.Kind == ast.KindDec && b.Kind == ast.KindInc:
		return cellDifference(span, a.Value, b.Value, ast.KindDec, ast.KindInc)
	case a.Kind == ast.KindIncPtr && b.Kind == ast.KindDecPtr:
		return pointerDifference(span, a.Count, b.Count, ast.KindIncPtr, ast.KindDecPtr)
	case a.Kind == ast.KindDecPtr && b.Kind == ast.KindIncPtr:
		return pointerDifference(span, a.Count, b.Count, ast.KindDecPtr, ast.KindIncPtr)

	// Set absorbs what follows it. The reverse direction is left alone:
	// a Set after Inc/Dec already overwrites the cell.
	case a.Kind == ast.KindSet && b.Kind == ast.KindInc:
		return ast.NewSet(span, a.Value+b.Value), true, true
	case a.Kind == ast.KindSet && b.Kind == ast.KindDec:
		return ast.NewSet(span, a.Value-b.Value), true, true
	}
	return ast.Node{}, false, false
}

// cellDifference fuses x of kind first followed by y of the opposite kind.
func cellDifference(span ast.Span, x, y uint8, first, second ast.Kind) (ast.Node, bool, bool) {
	switch {
	case x == y:
		return ast.Node{}, false, true
	case x > y:
		return ast.Node{Kind: first, Span: span, Value: x - y}, true, true
	default:
		return ast.Node{Kind: second, Span: span, Value: y - x}, true, true
	}
}

// pointerDifference is cellDifference at pointer width.
func pointerDifference(span ast.Span, x, y uint, first, second ast.Kind) (ast.Node, bool, bool) {
	switch {
	case x == y:
		return ast.Node{}, false, true
	case x > y:
		return ast.Node{Kind: first, Span: span, Count: x - y}, true, true
	default:
		return ast.Node{Kind: second, Span: span, Count: y - x}, true, true
	}
}
