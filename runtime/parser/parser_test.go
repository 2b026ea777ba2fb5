package parser_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/bfi/core/ast"
	"github.com/opal-lang/bfi/runtime/parser"
)

func sp(start, end int) ast.Span { return ast.NewSpan(start, end) }

func TestParseLeaves(t *testing.T) {
	program, err := parser.ParseString("><+-.,")
	require.NoError(t, err)

	want := []ast.Node{
		ast.NewIncPtr(sp(0, 1), 1),
		ast.NewDecPtr(sp(1, 2), 1),
		ast.NewInc(sp(2, 3), 1),
		ast.NewDec(sp(3, 4), 1),
		ast.NewPutChar(sp(4, 5)),
		ast.NewGetChar(sp(5, 6)),
	}
	if diff := cmp.Diff(want, program.Body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLoops(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []ast.Node
	}{
		{
			name:  "empty program",
			input: "",
			want:  nil,
		},
		{
			name:  "empty loop",
			input: "[]",
			want:  []ast.Node{ast.NewDLoop(sp(0, 2), nil)},
		},
		{
			name:  "loop with body",
			input: "+[-]",
			want: []ast.Node{
				ast.NewInc(sp(0, 1), 1),
				ast.NewDLoop(sp(1, 4), []ast.Node{ast.NewDec(sp(2, 3), 1)}),
			},
		},
		{
			name:  "nested loops",
			input: "[>[.]<]",
			want: []ast.Node{
				ast.NewDLoop(sp(0, 7), []ast.Node{
					ast.NewIncPtr(sp(1, 2), 1),
					ast.NewDLoop(sp(2, 5), []ast.Node{ast.NewPutChar(sp(3, 4))}),
					ast.NewDecPtr(sp(5, 6), 1),
				}),
			},
		},
		{
			name:  "comments keep offsets",
			input: "a+ b\n[x-]",
			want: []ast.Node{
				ast.NewInc(sp(1, 2), 1),
				ast.NewDLoop(sp(5, 9), []ast.Node{ast.NewDec(sp(7, 8), 1)}),
			},
		},
		{
			name:  "sibling loops",
			input: "[][]",
			want: []ast.Node{
				ast.NewDLoop(sp(0, 2), nil),
				ast.NewDLoop(sp(2, 4), nil),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, err := parser.ParseString(tt.input)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, program.Body); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		kind     parser.ErrorKind
		position int
	}{
		{name: "unmatched close", input: "+]", kind: parser.BadlyClosedLoop, position: 1},
		{name: "close first", input: "]", kind: parser.BadlyClosedLoop, position: 0},
		{name: "close after balanced", input: "[-]]", kind: parser.BadlyClosedLoop, position: 3},
		{name: "unclosed open", input: "[+", kind: parser.UnclosedLoop, position: 0},
		{name: "innermost unclosed reported", input: "[[+]x[", kind: parser.UnclosedLoop, position: 5},
		{name: "nested unclosed", input: "+[[-]", kind: parser.UnclosedLoop, position: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, err := parser.ParseString(tt.input)
			require.Error(t, err)
			assert.Nil(t, program, "no partial tree on failure")

			var pe *parser.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, tt.position, pe.Position)
			assert.True(t, parser.IsKind(err, tt.kind))
			assert.Equal(t, sp(tt.position, tt.position+1), pe.Span())
			assert.NotEmpty(t, pe.Hint())
		})
	}
}

func TestNestingBoundary(t *testing.T) {
	nested := func(n int) string {
		return strings.Repeat("[", n) + strings.Repeat("]", n)
	}

	t.Run("1023 deep succeeds", func(t *testing.T) {
		program, err := parser.ParseString(nested(parser.DefaultMaxDepth - 1))
		require.NoError(t, err)
		assert.Equal(t, parser.DefaultMaxDepth-1, program.Depth())
		assert.Equal(t, parser.DefaultMaxDepth-1, program.LoopCount())
	})

	t.Run("1024 deep overflows", func(t *testing.T) {
		_, err := parser.ParseString(nested(parser.DefaultMaxDepth))
		var pe *parser.ParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, parser.LoopStackOverflow, pe.Kind)
		assert.Equal(t, parser.DefaultMaxDepth-1, pe.Position)
		assert.Equal(t, parser.DefaultMaxDepth, pe.MaxDepth)
		assert.Contains(t, pe.Error(), "maximum depth 1024")
	})

	t.Run("1024 unclosed opens overflow before reporting unclosed", func(t *testing.T) {
		_, err := parser.ParseString(strings.Repeat("[", parser.DefaultMaxDepth))
		assert.True(t, parser.IsKind(err, parser.LoopStackOverflow))
	})

	t.Run("custom bound", func(t *testing.T) {
		_, err := parser.ParseString("[[]]", parser.WithMaxDepth(3))
		require.NoError(t, err)

		_, err = parser.ParseString("[[[]]]", parser.WithMaxDepth(3))
		var pe *parser.ParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, 2, pe.Position)
		assert.Equal(t, 3, pe.MaxDepth)
	})
}

func TestTelemetry(t *testing.T) {
	var telemetry parser.Telemetry
	_, err := parser.ParseString("+[>[-]<] comment", parser.WithTelemetry(&telemetry))
	require.NoError(t, err)

	assert.Equal(t, 16, telemetry.Bytes)
	assert.Equal(t, 6, telemetry.Instructions)
	assert.Equal(t, 2, telemetry.Loops)
	assert.Equal(t, 2, telemetry.MaxDepthSeen)

	var untouched parser.Telemetry
	_, err = parser.ParseString("]", parser.WithTelemetry(&untouched))
	require.Error(t, err)
	assert.Equal(t, parser.Telemetry{}, untouched)
}

func TestErrorMessages(t *testing.T) {
	_, err := parser.ParseString("+]")
	assert.EqualError(t, err, "badly closed loop at offset 1: ']' has no matching '['")

	_, err = parser.ParseString("[+")
	assert.EqualError(t, err, "unclosed loop at offset 0: '[' has no matching ']'")
}

// meaningful counts the instruction characters in src.
func meaningful(src []byte) int {
	n := 0
	for _, c := range src {
		if bytes.IndexByte([]byte("<>+-.,[]"), c) >= 0 {
			n++
		}
	}
	return n
}

// FuzzParse checks totality: either every instruction character (a loop
// counts once for its bracket pair) becomes a node, or the error points
// inside the source.
func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"", "+", "[", "]", "+]", "[+", "[[]]", "++[->+<]>.", "hello [world]", "[[[[",
	} {
		f.Add([]byte(seed))
	}

	f.Fuzz(func(t *testing.T, src []byte) {
		program, err := parser.Parse(src)
		if err != nil {
			var pe *parser.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("unexpected error type %T", err)
			}
			if pe.Position < 0 || pe.Position >= len(src) {
				t.Fatalf("error position %d outside source of length %d", pe.Position, len(src))
			}
			return
		}

		want := meaningful(src) - program.LoopCount()
		if got := program.InstructionCount(); got != want {
			t.Fatalf("instruction count %d, want %d", got, want)
		}
	})
}

func BenchmarkParse(b *testing.B) {
	src := []byte(strings.Repeat("++[->+<]>.[-]<<", 1000))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := parser.Parse(src); err != nil {
			b.Fatal(err)
		}
	}
}
