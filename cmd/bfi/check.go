package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opal-lang/bfi/core/diag"
	"github.com/opal-lang/bfi/core/irfmt"
	"github.com/opal-lang/bfi/runtime/analyzer"
)

func (a *app) checkCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Parse a program and report suspicious constructs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, label, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			if irfmt.IsIRFile(data) {
				return &CLIError{
					Type:    "usage",
					Message: fmt.Sprintf("%s is a compiled IR file", label),
					Hint:    "check the source file instead",
				}
			}

			tree, err := a.parse(data, label)
			if err != nil {
				return err
			}

			warnings := analyzer.Analyze(tree)
			useColor := ShouldUseColor(a.noColor, a.stderr)
			for _, w := range warnings {
				if err := diag.Render(a.stderr, data, label, diag.FromWarning(w), useColor); err != nil {
					return err
				}
			}

			_, _ = fmt.Fprintf(a.stdout, "%s: %d instructions, %d loops, depth %d, %d warning(s)\n",
				label, tree.InstructionCount(), tree.LoopCount(), tree.Depth(), len(warnings))

			if strict && len(warnings) > 0 {
				return &CLIError{
					Type:    "check",
					Message: fmt.Sprintf("%s has %d warning(s)", label, len(warnings)),
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when there are warnings")
	return cmd
}
