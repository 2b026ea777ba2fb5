package formatter

import (
	"fmt"
	"io"

	"github.com/opal-lang/bfi/core/ast"
)

// FormatTree renders program as a tree under a title line. Loops are
// printed with their operands and their children nested below them.
func FormatTree(w io.Writer, title string, program *ast.Program, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s:\n", title)

	if len(program.Body) == 0 {
		_, _ = fmt.Fprintf(w, "(empty program)\n")
		return
	}
	renderNodes(w, program.Body, "", useColor)
}

func renderNodes(w io.Writer, nodes []ast.Node, indent string, useColor bool) {
	for i := range nodes {
		n := &nodes[i]
		isLast := i == len(nodes)-1

		prefix, childIndent := "├─ ", indent+"│  "
		if isLast {
			prefix, childIndent = "└─ ", indent+"   "
		}
		_, _ = fmt.Fprintf(w, "%s%s%s\n", indent, prefix, renderNode(n, useColor))

		if len(n.Children) > 0 {
			renderNodes(w, n.Children, childIndent, useColor)
		}
	}
}

// renderNode renders one node without its children.
func renderNode(n *ast.Node, useColor bool) string {
	color := ColorGreen
	if n.IsLoop() {
		color = ColorBlue
	}
	kind := Colorize(n.Kind.String(), color, useColor)
	span := Colorize(n.Span.String(), ColorGray, useColor)
	return fmt.Sprintf("%s%s %s", kind, n.Operands(), span)
}
