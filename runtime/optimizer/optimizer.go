// Package optimizer rewrites an instruction tree into a smaller, equivalent
// one with peephole passes applied in rounds until nothing changes.
//
// Each round runs, in order:
//
//  1. dead leading loop elision (top level only)
//  2. empty loop removal
//  3. zero loop collapsing ([-] becomes Set(0))
//  4. adjacent op fusion
//  5. loop classification, when enabled with WithLoopClassification
//
// Rounds stop when one makes no change or after MaxPasses rounds. The cap
// holds even if passes keep reporting progress; any pass added here must not
// rewrite in cycles.
package optimizer

import (
	"io"
	"log/slog"

	"github.com/opal-lang/bfi/core/ast"
	"github.com/opal-lang/bfi/core/invariant"
)

// MaxPasses caps the number of rounds.
const MaxPasses = 100

// Option configures Optimize.
type Option func(*config)

type config struct {
	maxPasses int
	classify  bool
	logger    *slog.Logger
	stats     *Stats
}

// WithMaxPasses lowers or raises the round cap.
func WithMaxPasses(n int) Option {
	return func(c *config) {
		c.maxPasses = n
	}
}

// WithLoopClassification enables the loop classification pass, which
// produces SearchZero, Add/Sub, TNz, ILoop and CLoop nodes.
func WithLoopClassification() Option {
	return func(c *config) {
		c.classify = true
	}
}

// WithLogger traces every round at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithStats records round and size figures into s.
func WithStats(s *Stats) Option {
	return func(c *config) {
		c.stats = s
	}
}

// Stats summarises one Optimize call.
type Stats struct {
	Rounds int // rounds performed, the final no-progress round included
	Before int // instruction count before the first round
	After  int // instruction count after the last round
}

// Optimize rewrites program in place and returns the number of rounds
// performed. An already optimized program takes exactly one round.
func Optimize(program *ast.Program, opts ...Option) int {
	invariant.NotNil(program, "program")

	cfg := &config{
		maxPasses: MaxPasses,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	invariant.Positive(cfg.maxPasses, "max passes")

	if cfg.stats != nil {
		cfg.stats.Before = program.InstructionCount()
	}

	rounds := 0
	for rounds < cfg.maxPasses {
		rounds++

		dead := elideLeadingLoops(&program.Body)
		empty := removeEmptyLoops(&program.Body)
		zero := collapseZeroLoops(program.Body)
		fused := fuseAdjacent(&program.Body, 0)
		classified := cfg.classify && classifyLoops(&program.Body)

		cfg.logger.Debug("optimizer round",
			"round", rounds,
			"dead", dead,
			"empty", empty,
			"zero", zero,
			"fused", fused,
			"classified", classified)

		if !(dead || empty || zero || fused || classified) {
			break
		}
	}

	invariant.Postcondition(rounds <= cfg.maxPasses, "performed %d rounds, cap is %d", rounds, cfg.maxPasses)
	if cfg.stats != nil {
		cfg.stats.Rounds = rounds
		cfg.stats.After = program.InstructionCount()
	}
	return rounds
}
