// Package tracking builds engagement events and runs the passive dwell and
// scroll measurements for a post detail view.
package tracking

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/feedlens/internal/model"
	"github.com/ppiankov/feedlens/internal/telemetry"
)

// Clock reports the current time (injectable for tests)
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using real time
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Tracker stamps events and forwards them to a sink. A Tracker with no sink
// silently drops everything; sink errors are logged and swallowed.
type Tracker struct {
	sink   telemetry.Sink
	clock  Clock
	logger zerolog.Logger
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock replaces the time source
func WithClock(c Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithLogger attaches a logger
func WithLogger(l zerolog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker creates a tracker; sink may be nil
func NewTracker(sink telemetry.Sink, opts ...Option) *Tracker {
	t := &Tracker{
		sink:   sink,
		clock:  RealClock{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Enabled reports whether events go anywhere
func (t *Tracker) Enabled() bool {
	return t != nil && t.sink != nil
}

func (t *Tracker) capture(ctx context.Context, e model.Event) {
	if !t.Enabled() {
		return
	}
	if err := t.sink.Capture(ctx, string(e.Name()), e.Properties()); err != nil {
		t.logger.Debug().Err(err).Str("event", string(e.Name())).Msg("event dropped")
	}
}

func (t *Tracker) timestamp() string {
	return model.FormatTimestamp(t.clock.Now())
}

// TrackViewed records a post detail render
func (t *Tracker) TrackViewed(ctx context.Context, postID string, variant model.Variant) model.PostViewed {
	e := model.PostViewed{PostID: postID, Variant: variant, Timestamp: t.timestamp()}
	t.capture(ctx, e)
	return e
}

// TrackEngagement records an interaction; is_positive follows the fixed vocabulary
func (t *Tracker) TrackEngagement(ctx context.Context, postID string, variant model.Variant, kind model.EngagementKind) model.PostEngagement {
	e := model.PostEngagement{
		PostID:         postID,
		Variant:        variant,
		EngagementType: kind,
		IsPositive:     kind.IsPositive(),
		Timestamp:      t.timestamp(),
	}
	t.capture(ctx, e)
	return e
}

// TrackDwellTime records time on page, rounded to whole seconds
func (t *Tracker) TrackDwellTime(ctx context.Context, postID string, variant model.Variant, seconds float64, wasVisible bool) model.PostDwellTime {
	if seconds < 0 {
		seconds = 0
	}
	e := model.PostDwellTime{
		PostID:           postID,
		Variant:          variant,
		DwellTimeSeconds: int(math.Round(seconds)),
		WasVisible:       wasVisible,
		Timestamp:        t.timestamp(),
	}
	t.capture(ctx, e)
	return e
}

// TrackScrollDepth records current and maximum scroll, clamped to [0,100] and rounded
func (t *Tracker) TrackScrollDepth(ctx context.Context, postID string, variant model.Variant, pct, maxPct float64) model.PostScrollDepth {
	e := model.PostScrollDepth{
		PostID:           postID,
		Variant:          variant,
		ScrollPercentage: clampPercent(pct),
		MaxScrollReached: clampPercent(maxPct),
		Timestamp:        t.timestamp(),
	}
	t.capture(ctx, e)
	return e
}

func clampPercent(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}

// ScrollPercent converts a scroll position into a percentage of the
// scrollable range. A document that does not overflow the viewport is fully read.
func ScrollPercent(scrollTop, documentHeight, windowHeight float64) float64 {
	scrollable := documentHeight - windowHeight
	if scrollable <= 0 {
		return 100
	}
	return scrollTop / scrollable * 100
}
