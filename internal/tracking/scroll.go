package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/ppiankov/feedlens/internal/model"
)

// DefaultScrollInterval is the periodic scroll flush cadence
const DefaultScrollInterval = 5 * time.Second

// ScrollSession tracks the current and deepest scroll position and reports
// both on a fixed interval and once more at teardown
type ScrollSession struct {
	tracker *Tracker
	postID  string
	variant model.Variant

	mu      sync.Mutex
	current float64
	max     float64
	flushed bool

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// StartScroll begins tracking. A non-positive interval disables periodic
// flushes; the final flush still happens.
func (t *Tracker) StartScroll(postID string, variant model.Variant, interval time.Duration) *ScrollSession {
	s := &ScrollSession{
		tracker: t,
		postID:  postID,
		variant: variant,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if interval > 0 {
		go s.run(interval)
	} else {
		close(s.done)
	}
	return s
}

func (s *ScrollSession) run(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Flush(context.Background())
		case <-s.stop:
			return
		}
	}
}

// Update records a scroll percentage
func (s *ScrollSession) Update(pct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flushed {
		return
	}
	s.current = pct
	if pct > s.max {
		s.max = pct
	}
}

// Observe records a raw scroll position
func (s *ScrollSession) Observe(scrollTop, documentHeight, windowHeight float64) {
	s.Update(ScrollPercent(scrollTop, documentHeight, windowHeight))
}

// Depth returns the current and maximum percentages, clamped and rounded
func (s *ScrollSession) Depth() (current, max int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clampPercent(s.current), clampPercent(s.max)
}

// Flush reports the current state. It is a no-op after the final flush.
func (s *ScrollSession) Flush(ctx context.Context) {
	s.mu.Lock()
	if s.flushed {
		s.mu.Unlock()
		return
	}
	current, max := s.current, s.max
	s.mu.Unlock()

	s.tracker.TrackScrollDepth(ctx, s.postID, s.variant, current, max)
}

// Unload stops the timer and sends the final flush
func (s *ScrollSession) Unload(ctx context.Context) {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done

	s.mu.Lock()
	if s.flushed {
		s.mu.Unlock()
		return
	}
	s.flushed = true
	current, max := s.current, s.max
	s.mu.Unlock()

	s.tracker.TrackScrollDepth(ctx, s.postID, s.variant, current, max)
}

// Close is Unload without a caller context
func (s *ScrollSession) Close() error {
	s.Unload(context.Background())
	return nil
}
