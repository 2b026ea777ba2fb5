package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/opal-lang/bfi/runtime/parser"
)

func main() {
	code := execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	atexit.Exit(code)
}

// app holds the streams and global flags shared by every command.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	noColor  bool
	debug    bool
	maxDepth int
	verbose  bool

	logger *slog.Logger
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		maxDepth: parser.DefaultMaxDepth,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// execute runs the command line in args and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := newApp(stdin, stdout, stderr)
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		FormatError(stderr, err, ShouldUseColor(a.noColor, stderr))
		return 1
	}
	return 0
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "bfi",
		Short:         "Parse, optimize and run tape machine programs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger = newLogger(a.stderr, a.debug)
			if a.maxDepth < 1 {
				return &CLIError{
					Type:    "usage",
					Message: fmt.Sprintf("invalid --max-depth %d", a.maxDepth),
					Hint:    fmt.Sprintf("use a value of at least 1 (default %d, which allows %d nested loops)", parser.DefaultMaxDepth, parser.DefaultMaxDepth-1),
				}
			}
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug output (or set BFI_DEBUG)")
	root.PersistentFlags().IntVar(&a.maxDepth, "max-depth", parser.DefaultMaxDepth, "Maximum loop nesting, counting the top level")

	root.AddCommand(
		a.runCommand(),
		a.checkCommand(),
		a.dumpCommand(),
		a.compileCommand(),
	)
	return root
}

// report logs a progress line when --verbose is set.
func (a *app) report(msg string, args ...any) {
	if a.verbose {
		a.logger.Info(msg, args...)
	}
}
