// Package telemetry delivers engagement events to analytics backends.
//
// Delivery is fire-and-forget from the caller's point of view: sinks report
// errors so they can be logged and counted, but nothing upstream retries or
// blocks rendering on them.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ppiankov/feedlens/internal/model"
)

// ErrSinkUnavailable is returned when a sink cannot accept events right now
var ErrSinkUnavailable = errors.New("telemetry sink unavailable")

// Sink accepts captured events
type Sink interface {
	Capture(ctx context.Context, event string, props map[string]any) error
	Close() error
}

// Nop discards every event
type Nop struct{}

func (Nop) Capture(context.Context, string, map[string]any) error { return nil }
func (Nop) Close() error                                         { return nil }

// Multi fans an event out to every sink. All sinks receive the event even
// when one of them fails; the errors are joined.
type Multi []Sink

// Capture forwards to each sink
func (m Multi) Capture(ctx context.Context, event string, props map[string]any) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Capture(ctx, event, props); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes each sink
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open builds the sinks named in cfg. reg receives the metrics sink
// collectors; pass nil to skip registration.
func Open(cfg model.TelemetryConfig, distinctID string, reg prometheus.Registerer, logger zerolog.Logger) (Sink, error) {
	var sinks Multi
	for _, name := range cfg.Sinks {
		switch name {
		case "log":
			sinks = append(sinks, NewLogSink(logger))
		case "metrics":
			sinks = append(sinks, NewMetricsSink(reg))
		case "posthog":
			if cfg.PostHogHost == "" || cfg.PostHogAPIKey == "" {
				_ = sinks.Close()
				return nil, fmt.Errorf("posthog sink requires posthog_host and posthog_api_key")
			}
			sinks = append(sinks, NewHTTPSink(HTTPConfig{
				Host:              cfg.PostHogHost,
				APIKey:            cfg.PostHogAPIKey,
				DistinctID:        distinctID,
				Timeout:           cfg.Timeout,
				RequestsPerSecond: cfg.RequestsPerSecond,
				Burst:             cfg.BurstSize,
				BreakerFailures:   cfg.BreakerFailures,
				BreakerCooldown:   cfg.BreakerCooldown,
			}, logger))
		case "nats":
			s, err := NewNATSSink(cfg.NATSURL, cfg.NATSSubject, logger)
			if err != nil {
				_ = sinks.Close()
				return nil, fmt.Errorf("nats sink: %w", err)
			}
			sinks = append(sinks, s)
		default:
			_ = sinks.Close()
			return nil, fmt.Errorf("unknown telemetry sink: %s", name)
		}
	}
	if len(sinks) == 0 {
		return Nop{}, nil
	}
	return sinks, nil
}

type captured struct {
	event string
	props map[string]any
}

// Async decouples callers from sink latency. Events are queued and delivered
// by a single background goroutine; when the queue is full the event is dropped.
type Async struct {
	inner  Sink
	queue  chan captured
	done   chan struct{}
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewAsync starts delivering to inner with a queue of the given size
func NewAsync(inner Sink, buffer int, logger zerolog.Logger) *Async {
	if buffer < 1 {
		buffer = 1
	}
	a := &Async{
		inner:  inner,
		queue:  make(chan captured, buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for c := range a.queue {
		if err := a.inner.Capture(context.Background(), c.event, c.props); err != nil {
			a.logger.Debug().Err(err).Str("event", c.event).Msg("telemetry delivery failed")
		}
	}
}

// Capture enqueues the event without blocking
func (a *Async) Capture(_ context.Context, event string, props map[string]any) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrSinkUnavailable
	}

	select {
	case a.queue <- captured{event: event, props: props}:
		return nil
	default:
		return fmt.Errorf("%w: queue full, dropped %s", ErrSinkUnavailable, event)
	}
}

// Close drains queued events and closes the inner sink
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done
	return a.inner.Close()
}
