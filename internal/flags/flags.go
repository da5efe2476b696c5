// Package flags reads the experiment feature flag from a remote provider.
package flags

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/feedlens/internal/model"
)

// ErrUnavailable is returned when a provider cannot be reached
var ErrUnavailable = errors.New("flag provider unavailable")

// Value is a flag value as delivered by a provider. Providers may return a
// string variant, a boolean, or nothing at all.
type Value struct {
	raw     string
	present bool
}

// Absent is the zero Value
var Absent = Value{}

// String wraps a string flag value. The empty string is treated as absent.
func String(s string) Value {
	if s == "" {
		return Absent
	}
	return Value{raw: s, present: true}
}

// Bool wraps a boolean flag value ("true"/"false")
func Bool(b bool) Value {
	return Value{raw: strconv.FormatBool(b), present: true}
}

// Present reports whether the provider returned anything
func (v Value) Present() bool { return v.present }

// Raw returns the stringified value
func (v Value) Raw() string { return v.raw }

// Variant returns the experiment arm named by the value, if valid
func (v Value) Variant() (model.Variant, bool) {
	if !v.present {
		return "", false
	}
	return model.ParseVariant(v.raw)
}

// Source is a read-only remote flag accessor
type Source interface {
	GetVariantFlag(ctx context.Context, key string) (Value, error)
}

// StaticSource always returns the same value (local development, tests)
type StaticSource struct {
	value Value
}

// NewStaticSource returns a source serving value; "" means absent
func NewStaticSource(value string) *StaticSource {
	return &StaticSource{value: String(value)}
}

// GetVariantFlag returns the configured value
func (s *StaticSource) GetVariantFlag(ctx context.Context, key string) (Value, error) {
	return s.value, ctx.Err()
}

// Loader resolves a flag once in the background. Callers await the result
// with a bounded timeout instead of polling the provider.
type Loader struct {
	key    string
	done   chan struct{}
	value  Value
	err    error
	logger zerolog.Logger
}

// Load starts fetching key from src. The fetch stops when ctx is cancelled.
func Load(ctx context.Context, src Source, key string, logger zerolog.Logger) *Loader {
	l := &Loader{
		key:    key,
		done:   make(chan struct{}),
		logger: logger,
	}

	go func() {
		defer close(l.done)
		l.value, l.err = src.GetVariantFlag(ctx, key)
		if l.err != nil {
			l.logger.Warn().Err(l.err).Str("flag", key).Msg("feature flag fetch failed")
		}
	}()

	return l
}

// Resolved returns a Loader that is already complete (tests, static config)
func Resolved(key string, v Value) *Loader {
	l := &Loader{key: key, done: make(chan struct{}), value: v, logger: zerolog.Nop()}
	close(l.done)
	return l
}

// Ready reports whether the fetch has finished
func (l *Loader) Ready() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Await waits up to timeout for the flag. On timeout, provider error or ctx
// cancellation the flag is reported absent.
func (l *Loader) Await(ctx context.Context, timeout time.Duration) Value {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-l.done:
		if l.err != nil {
			return Absent
		}
		return l.value
	case <-timer.C:
		l.logger.Warn().Str("flag", l.key).Dur("timeout", timeout).Msg("feature flag not ready, continuing without it")
		return Absent
	case <-ctx.Done():
		return Absent
	}
}

// Err returns the fetch error once Ready
func (l *Loader) Err() error {
	if !l.Ready() {
		return nil
	}
	return l.err
}

// NewSource builds the provider selected by cfg
func NewSource(cfg model.FlagsConfig, distinctID string) (Source, error) {
	switch cfg.Provider {
	case "", "static":
		return NewStaticSource(cfg.StaticValue), nil
	case "posthog":
		id := cfg.DistinctID
		if id == "" {
			id = distinctID
		}
		return NewPostHogSource(cfg.PostHogHost, cfg.PostHogAPIKey, id, cfg.InitTimeout), nil
	case "redis":
		return NewRedisSource(cfg.RedisAddr, cfg.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown flag provider: %s", cfg.Provider)
	}
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context, key string) (Value, error)

// GetVariantFlag calls f
func (f SourceFunc) GetVariantFlag(ctx context.Context, key string) (Value, error) {
	return f(ctx, key)
}
