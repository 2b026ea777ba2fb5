package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/opal-lang/bfi/runtime/executor"
)

type runOptions struct {
	level    int
	eof      string
	watch    bool
	maxSteps int
}

func (a *app) runCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Parse, optimize and execute a program or a compiled IR file",
		Long: `Parse, optimize and execute a program or a compiled IR file.

FILE may be "-" to read the program from standard input. The program then
shares standard input with its own reads, so every ',' sees end of input
and follows --eof.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, ok := executor.ParseEOFMode(opts.eof)
			if !ok {
				return choiceError("eof", opts.eof, executor.EOFModes)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if opts.watch {
				return a.watch(ctx, args[0], opts, mode)
			}
			return a.runOnce(ctx, args[0], opts, mode)
		},
	}

	cmd.Flags().BoolVarP(&a.verbose, "verbose", "v", false, "Report counts and timings on stderr")
	cmd.Flags().IntVarP(&opts.level, "opt", "O", optClassify, "Optimization level: 0, 1 or 2")
	cmd.Flags().StringVar(&opts.eof, "eof", executor.EOFUnchanged.String(), "End of input behaviour: unchanged, zero or max")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Run again whenever FILE changes")
	cmd.Flags().IntVar(&opts.maxSteps, "max-steps", 0, "Abort after this many steps (0 means no limit)")
	return cmd
}

func (a *app) runOnce(ctx context.Context, path string, opts runOptions, mode executor.EOFMode) error {
	p, err := a.load(path, opts.level)
	if err != nil {
		return err
	}

	e := executor.New(a.stdin, a.stdout,
		executor.WithEOF(mode),
		executor.WithStepLimit(opts.maxSteps),
		executor.WithLogger(a.logger))

	start := time.Now()
	err = e.Execute(ctx, p.tree)
	a.report("executed", "steps", e.Steps(), "duration", time.Since(start))
	if err != nil {
		return p.sourceError(err)
	}
	return nil
}
