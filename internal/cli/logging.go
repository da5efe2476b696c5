package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// newLogger builds the process logger. Verbose mode forces console output at debug.
func newLogger(level, format string, verbose bool) (zerolog.Logger, error) {
	return buildLogger(os.Stderr, level, format, verbose)
}

func buildLogger(w io.Writer, level, format string, verbose bool) (zerolog.Logger, error) {
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}

	if verbose {
		format = "console"
		if lvl > zerolog.DebugLevel {
			lvl = zerolog.DebugLevel
		}
	}

	out := w
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "feedlens").Logger(), nil
}
