package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/ppiankov/feedlens/internal/model"
)

type dwellState int

const (
	dwellActive dwellState = iota
	dwellHidden
	dwellFlushed
)

func (s dwellState) String() string {
	switch s {
	case dwellActive:
		return "active"
	case dwellHidden:
		return "hidden"
	default:
		return "flushed"
	}
}

// DwellSession measures how long a page stays open and how much of that
// time it was visible. It flushes exactly one event, on Unload or Close
// whichever comes first.
type DwellSession struct {
	tracker *Tracker
	postID  string
	variant model.Variant

	mu           sync.Mutex
	state        dwellState
	start        time.Time
	visibleSince time.Time
	visible      time.Duration
}

// StartDwell begins measuring; visible is the page visibility at setup
func (t *Tracker) StartDwell(postID string, variant model.Variant, visible bool) *DwellSession {
	now := t.clock.Now()
	s := &DwellSession{
		tracker: t,
		postID:  postID,
		variant: variant,
		state:   dwellHidden,
		start:   now,
	}
	if visible {
		s.state = dwellActive
		s.visibleSince = now
	}
	return s
}

// SetVisible applies a visibility transition. Repeated signals for the
// current state and signals after the flush are ignored.
func (s *DwellSession) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tracker.clock.Now()
	switch {
	case s.state == dwellHidden && visible:
		s.state = dwellActive
		s.visibleSince = now
	case s.state == dwellActive && !visible:
		s.visible += now.Sub(s.visibleSince)
		s.state = dwellHidden
	}
}

// State returns "active", "hidden" or "flushed"
func (s *DwellSession) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.String()
}

// Unload flushes on the page unload signal
func (s *DwellSession) Unload(ctx context.Context) {
	s.flush(ctx)
}

// Close flushes if Unload has not already done so
func (s *DwellSession) Close() error {
	s.flush(context.Background())
	return nil
}

func (s *DwellSession) flush(ctx context.Context) {
	s.mu.Lock()
	if s.state == dwellFlushed {
		s.mu.Unlock()
		return
	}
	now := s.tracker.clock.Now()
	if s.state == dwellActive {
		s.visible += now.Sub(s.visibleSince)
	}
	total := now.Sub(s.start)
	visible := s.visible
	s.state = dwellFlushed
	s.mu.Unlock()

	wasVisible := visible.Seconds() > total.Seconds()*0.5
	s.tracker.TrackDwellTime(ctx, s.postID, s.variant, total.Seconds(), wasVisible)
}
