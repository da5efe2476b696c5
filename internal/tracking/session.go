package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/feedlens/internal/model"
)

// PageView bundles the passive measurements for one mounted post detail page
type PageView struct {
	ID      string        `json:"id"`
	PostID  string        `json:"post_id"`
	Variant model.Variant `json:"variant"`

	Dwell  *DwellSession  `json:"-"`
	Scroll *ScrollSession `json:"-"`
}

// StartPageView starts dwell and scroll tracking for postID
func (t *Tracker) StartPageView(postID string, variant model.Variant, visible bool, scrollInterval time.Duration) *PageView {
	return &PageView{
		ID:      uuid.NewString(),
		PostID:  postID,
		Variant: variant,
		Dwell:   t.StartDwell(postID, variant, visible),
		Scroll:  t.StartScroll(postID, variant, scrollInterval),
	}
}

// Unload flushes both measurements on the unload signal
func (p *PageView) Unload(ctx context.Context) {
	p.Scroll.Unload(ctx)
	p.Dwell.Unload(ctx)
}

// Close detaches timers and performs the final flushes; safe to call twice
func (p *PageView) Close() error {
	_ = p.Scroll.Close()
	return p.Dwell.Close()
}

// Sessions holds at most one live page view per subject
type Sessions struct {
	mu    sync.Mutex
	views map[string]*PageView
}

// NewSessions creates an empty registry
func NewSessions() *Sessions {
	return &Sessions{views: make(map[string]*PageView)}
}

// Replace closes any page view registered under key before calling start,
// then registers the result
func (s *Sessions) Replace(key string, start func() *PageView) *PageView {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.views[key]; ok {
		_ = prev.Close()
		delete(s.views, key)
	}

	pv := start()
	if pv != nil {
		s.views[key] = pv
	}
	return pv
}

// Get returns the live page view for key
func (s *Sessions) Get(key string) (*PageView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pv, ok := s.views[key]
	return pv, ok
}

// Close closes and forgets the page view for key
func (s *Sessions) Close(key string) bool {
	s.mu.Lock()
	pv, ok := s.views[key]
	delete(s.views, key)
	s.mu.Unlock()

	if ok {
		_ = pv.Close()
	}
	return ok
}

// Release closes pv and forgets it if it is still the view registered under
// key. A newer mount under the same key is left in place.
func (s *Sessions) Release(key string, pv *PageView) bool {
	s.mu.Lock()
	current, ok := s.views[key]
	owned := ok && current == pv
	if owned {
		delete(s.views, key)
	}
	s.mu.Unlock()

	_ = pv.Close()
	return owned
}

// CloseAll closes every live page view
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*PageView)
	s.mu.Unlock()

	for _, pv := range views {
		_ = pv.Close()
	}
}

// Len returns the number of live page views
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}
