package ast

import "fmt"

// Span is a half-open byte range [Start, End) into the original source text.
// Every node carries one so diagnostics can point back at the characters it
// came from, even after the optimizer has fused or rewritten it.
type Span struct {
	Start int
	End   int
}

// NewSpan returns the span [start, end).
func NewSpan(start, end int) Span {
	return Span{Start: start, End: end}
}

// Len returns the number of bytes covered.
func (s Span) Len() int {
	return s.End - s.Start
}

// Merge returns the span from the start of s to the end of other.
// Fused nodes use it to cover both of their original nodes.
func (s Span) Merge(other Span) Span {
	return Span{Start: s.Start, End: other.End}
}

// Contains reports whether offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

func (s Span) String() string {
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}
