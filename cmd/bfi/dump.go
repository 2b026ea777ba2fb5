package main

import (
	"github.com/spf13/cobra"

	"github.com/opal-lang/bfi/core/ast"
	"github.com/opal-lang/bfi/core/formatter"
	"github.com/opal-lang/bfi/core/irfmt"
)

// dumpFormats lists the accepted --format values.
var dumpFormats = []string{"tree", "text", "cbor"}

func (a *app) dumpCommand() *cobra.Command {
	var (
		format string
		level  int
	)

	cmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "Print the instruction tree of a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "tree", "text", "cbor":
			default:
				return choiceError("format", format, dumpFormats)
			}

			p, err := a.load(args[0], level)
			if err != nil {
				return err
			}

			switch format {
			case "text":
				return ast.Format(a.stdout, p.tree)
			case "cbor":
				data, err := irfmt.MarshalCBOR(p.tree)
				if err != nil {
					return err
				}
				_, err = a.stdout.Write(data)
				return err
			default:
				formatter.FormatTree(a.stdout, p.label, p.tree, ShouldUseColor(a.noColor, a.stdout))
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "tree", "Output format: tree, text or cbor")
	cmd.Flags().IntVarP(&level, "opt", "O", optPeephole, "Optimization level: 0, 1 or 2")
	return cmd
}
