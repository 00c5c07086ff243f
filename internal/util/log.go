// Package util holds small helpers shared by the engine binaries.
package util

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger at the given level, falling back to
// info for unrecognized levels. Output is JSON on stdout so engine logs can
// be consumed alongside the JSONL decision log.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "engine").
		Logger().
		Level(lvl)
}

// Named tags a child logger with the subsystem it speaks for.
func Named(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
