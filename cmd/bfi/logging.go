package main

import (
	"io"
	"log/slog"
	"os"
)

// newLogger returns a text logger without time and level attributes. The
// level drops to debug with --debug or when BFI_DEBUG is set.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if debug || os.Getenv("BFI_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}
