package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opal-lang/bfi/core/irfmt"
)

// irExt is the default extension of compiled files.
const irExt = ".bfir"

func (a *app) compileCommand() *cobra.Command {
	var (
		output string
		level  int
	)

	cmd := &cobra.Command{
		Use:   "compile FILE",
		Short: "Optimize a program and write it as an IR file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.load(args[0], level)
			if err != nil {
				return err
			}

			if output == "" {
				if args[0] == "-" {
					return &CLIError{Type: "usage", Message: "compiling standard input needs -o"}
				}
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + irExt
			}

			f, err := os.Create(output)
			if err != nil {
				return &CLIError{Type: "io", Message: fmt.Sprintf("cannot create %s", output), Details: err.Error()}
			}
			digest, err := irfmt.Write(f, &irfmt.File{Label: p.label, Program: p.tree})
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(output)
				return &CLIError{Type: "io", Message: fmt.Sprintf("cannot write %s", output), Details: err.Error()}
			}

			a.logger.Debug("compiled", "source", p.label, "output", output, "instructions", p.tree.InstructionCount())
			_, _ = fmt.Fprintf(a.stdout, "%s %x\n", output, digest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default FILE with the "+irExt+" extension)")
	cmd.Flags().IntVarP(&level, "opt", "O", optClassify, "Optimization level: 0, 1 or 2")
	return cmd
}
