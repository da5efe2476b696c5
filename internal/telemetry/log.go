package telemetry

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSink writes each event as a structured log line
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink logging at info level
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "telemetry").Logger()}
}

// Capture logs the event
func (s *LogSink) Capture(_ context.Context, event string, props map[string]any) error {
	s.logger.Info().Str("event", event).Fields(props).Msg("capture")
	return nil
}

func (s *LogSink) Close() error { return nil }
