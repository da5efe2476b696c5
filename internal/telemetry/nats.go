package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Publisher is the subset of *nats.Conn the sink uses
type Publisher interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSSink publishes each event as JSON on <subject>.<event>
type NATSSink struct {
	conn    Publisher
	subject string
	logger  zerolog.Logger
}

type natsEnvelope struct {
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties"`
}

// NewNATSSink connects to url and publishes under subject
func NewNATSSink(url, subject string, logger zerolog.Logger) (*NATSSink, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("feedlens"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", url, err)
	}
	return NewNATSSinkFromConn(nc, subject, logger), nil
}

// NewNATSSinkFromConn wraps an existing connection
func NewNATSSinkFromConn(conn Publisher, subject string, logger zerolog.Logger) *NATSSink {
	if subject == "" {
		subject = "feedlens.events"
	}
	return &NATSSink{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "telemetry.nats").Logger(),
	}
}

// Capture publishes the event. NATS publish is asynchronous and does not honor ctx.
func (s *NATSSink) Capture(ctx context.Context, event string, props map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(natsEnvelope{Event: event, Properties: props})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := s.conn.Publish(s.subject+"."+event, data); err != nil {
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
