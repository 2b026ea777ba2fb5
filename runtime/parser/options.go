package parser

import (
	"io"
	"log/slog"
	"time"
)

// DefaultMaxDepth bounds the frame stack, implicit top level included, so
// pathological nesting cannot exhaust the native stack of the recursive
// optimizer and executor passes that run on the tree later.
const DefaultMaxDepth = 1024

// ParserOpt represents a parser configuration option
type ParserOpt func(*ParserConfig)

// ParserConfig holds parser configuration
type ParserConfig struct {
	maxDepth  int
	telemetry *Telemetry
	logger    *slog.Logger
}

func newConfig(opts []ParserOpt) *ParserConfig {
	config := &ParserConfig{
		maxDepth: DefaultMaxDepth,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(config)
	}
	return config
}

// WithMaxDepth overrides the frame stack bound. The bound counts the
// implicit top-level frame, so at most n-1 loops can be open at once.
func WithMaxDepth(n int) ParserOpt {
	return func(c *ParserConfig) {
		c.maxDepth = n
	}
}

// WithTelemetry fills t with counts and timing once parsing finishes.
// t is left untouched when parsing fails.
func WithTelemetry(t *Telemetry) ParserOpt {
	return func(c *ParserConfig) {
		c.telemetry = t
	}
}

// WithLogger enables debug tracing through logger.
func WithLogger(logger *slog.Logger) ParserOpt {
	return func(c *ParserConfig) {
		c.logger = logger
	}
}

// Telemetry holds parser metrics for verbose CLI output
type Telemetry struct {
	Bytes        int           // Source size
	Instructions int           // Nodes emitted, loops included
	Loops        int           // Loop nodes emitted
	MaxDepthSeen int           // Deepest loop nesting reached
	Duration     time.Duration // Wall time of the scan
}
