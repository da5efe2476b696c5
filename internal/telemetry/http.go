package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/ppiankov/feedlens/internal/model"
	"github.com/ppiankov/feedlens/internal/worker"
)

// HTTPConfig configures the PostHog-compatible capture sink
type HTTPConfig struct {
	Host              string
	APIKey            string
	DistinctID        string // Generated when empty
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	BreakerFailures   uint32
	BreakerCooldown   time.Duration
}

// HTTPSink posts events to a PostHog /capture/ endpoint. Requests are rate
// limited and guarded by a circuit breaker so an unreachable backend stops
// costing a network round trip per event.
type HTTPSink struct {
	endpoint   string
	apiKey     string
	distinctID string
	client     *http.Client
	limiter    *worker.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     zerolog.Logger
	now        func() time.Time
}

type capturePayload struct {
	APIKey     string         `json:"api_key"`
	Event      string         `json:"event"`
	DistinctID string         `json:"distinct_id"`
	UUID       string         `json:"uuid"`
	Timestamp  string         `json:"timestamp"`
	Properties map[string]any `json:"properties"`
}

// NewHTTPSink creates a capture sink
func NewHTTPSink(cfg HTTPConfig, logger zerolog.Logger) *HTTPSink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 20
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}
	if cfg.DistinctID == "" {
		cfg.DistinctID = uuid.NewString()
	}

	logger = logger.With().Str("component", "telemetry.http").Logger()
	failures := cfg.BreakerFailures

	settings := gobreaker.Settings{
		Name:        "telemetry-capture",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	}

	return &HTTPSink{
		endpoint:   strings.TrimRight(cfg.Host, "/") + "/capture/",
		apiKey:     cfg.APIKey,
		distinctID: cfg.DistinctID,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
		now:        time.Now,
	}
}

// Capture posts a single event
func (s *HTTPSink) Capture(ctx context.Context, event string, props map[string]any) error {
	if err := s.limiter.WaitURL(ctx, s.endpoint); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(capturePayload{
		APIKey:     s.apiKey,
		Event:      event,
		DistinctID: s.distinctID,
		UUID:       uuid.NewString(),
		Timestamp:  model.FormatTimestamp(s.now()),
		Properties: props,
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, s.post(ctx, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	return err
}

func (s *HTTPSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("capture request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("capture returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// State reports the breaker state ("closed", "half-open", "open")
func (s *HTTPSink) State() string {
	return s.breaker.State().String()
}

func (s *HTTPSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
