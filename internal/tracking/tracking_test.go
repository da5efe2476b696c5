package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/feedlens/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type capture struct {
	event string
	props map[string]any
}

type memorySink struct {
	mu     sync.Mutex
	events []capture
}

func (m *memorySink) Capture(_ context.Context, event string, props map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, capture{event: event, props: props})
	return nil
}

func (m *memorySink) Close() error { return nil }

func (m *memorySink) Events(name string) []capture {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []capture
	for _, e := range m.events {
		if e.event == name {
			out = append(out, e)
		}
	}
	return out
}

func newTestTracker() (*Tracker, *memorySink, *fakeClock) {
	sink := &memorySink{}
	clock := newFakeClock()
	return NewTracker(sink, WithClock(clock)), sink, clock
}

func TestTrackViewed(t *testing.T) {
	tr, sink, _ := newTestTracker()

	e := tr.TrackViewed(context.Background(), "post-1", model.VariantTreatment)
	assert.Equal(t, "2025-03-14T09:26:53.589Z", e.Timestamp)

	got := sink.Events("post_viewed")
	require.Len(t, got, 1)
	assert.Equal(t, "post-1", got[0].props["post_id"])
	assert.Equal(t, "treatment", got[0].props["variant"])
}

func TestTrackEngagement_Positivity(t *testing.T) {
	tr, sink, _ := newTestTracker()

	for _, kind := range model.EngagementKinds {
		e := tr.TrackEngagement(context.Background(), "p", model.VariantControl, kind)
		assert.Equal(t, kind != model.EngagementBackButton, e.IsPositive, kind)
	}

	got := sink.Events("post_engagement")
	require.Len(t, got, len(model.EngagementKinds))
	last := got[len(got)-1]
	assert.Equal(t, "back_button", last.props["engagement_type"])
	assert.Equal(t, false, last.props["is_positive"])
}

func TestTrackScrollDepth_Clamps(t *testing.T) {
	tr, _, _ := newTestTracker()
	ctx := context.Background()

	e := tr.TrackScrollDepth(ctx, "p", model.VariantControl, 150, 150)
	assert.Equal(t, 100, e.ScrollPercentage)
	assert.Equal(t, 100, e.MaxScrollReached)

	e = tr.TrackScrollDepth(ctx, "p", model.VariantControl, -10, 42.6)
	assert.Equal(t, 0, e.ScrollPercentage)
	assert.Equal(t, 43, e.MaxScrollReached)
}

func TestTrackDwellTime_Rounds(t *testing.T) {
	tr, _, _ := newTestTracker()

	e := tr.TrackDwellTime(context.Background(), "p", model.VariantControl, 12.5, true)
	assert.Equal(t, 13, e.DwellTimeSeconds)

	e = tr.TrackDwellTime(context.Background(), "p", model.VariantControl, -3, false)
	assert.Equal(t, 0, e.DwellTimeSeconds)
}

func TestNilSinkIsSilent(t *testing.T) {
	tr := NewTracker(nil)
	assert.False(t, tr.Enabled())

	assert.NotPanics(t, func() {
		tr.TrackViewed(context.Background(), "p", model.VariantControl)
		tr.StartPageView("p", model.VariantControl, true, 0).Close()
	})
}

func TestScrollPercent(t *testing.T) {
	assert.InDelta(t, 50.0, ScrollPercent(500, 2000, 1000), 1e-9)
	assert.Equal(t, 100.0, ScrollPercent(0, 800, 1000))
	assert.Equal(t, 100.0, ScrollPercent(0, 1000, 1000))
}

func TestDwell_VisibleMajority(t *testing.T) {
	tr, sink, clock := newTestTracker()

	s := tr.StartDwell("p", model.VariantTreatment, true)
	clock.Advance(20 * time.Second)
	s.SetVisible(false)
	assert.Equal(t, "hidden", s.State())
	clock.Advance(10 * time.Second)
	s.SetVisible(true)
	clock.Advance(5 * time.Second)

	s.Unload(context.Background())
	assert.Equal(t, "flushed", s.State())

	got := sink.Events("post_dwell_time")
	require.Len(t, got, 1)
	assert.Equal(t, 35, got[0].props["dwell_time_seconds"])
	assert.Equal(t, true, got[0].props["was_visible"])
}

func TestDwell_MostlyHidden(t *testing.T) {
	tr, sink, clock := newTestTracker()

	s := tr.StartDwell("p", model.VariantControl, false)
	clock.Advance(30 * time.Second)
	s.SetVisible(true)
	clock.Advance(10 * time.Second)
	require.NoError(t, s.Close())

	got := sink.Events("post_dwell_time")
	require.Len(t, got, 1)
	assert.Equal(t, 40, got[0].props["dwell_time_seconds"])
	assert.Equal(t, false, got[0].props["was_visible"])
}

func TestDwell_ExactlyHalfIsNotVisible(t *testing.T) {
	tr, sink, clock := newTestTracker()

	s := tr.StartDwell("p", model.VariantControl, true)
	clock.Advance(10 * time.Second)
	s.SetVisible(false)
	clock.Advance(10 * time.Second)
	require.NoError(t, s.Close())

	got := sink.Events("post_dwell_time")
	require.Len(t, got, 1)
	assert.Equal(t, false, got[0].props["was_visible"])
}

func TestDwell_UnloadThenCloseFlushesOnce(t *testing.T) {
	tr, sink, clock := newTestTracker()

	s := tr.StartDwell("p", model.VariantControl, true)
	clock.Advance(7 * time.Second)
	s.Unload(context.Background())
	clock.Advance(7 * time.Second)
	require.NoError(t, s.Close())
	s.SetVisible(false)

	got := sink.Events("post_dwell_time")
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].props["dwell_time_seconds"])
}

func TestDwell_RepeatedVisibilitySignals(t *testing.T) {
	tr, sink, clock := newTestTracker()

	s := tr.StartDwell("p", model.VariantControl, true)
	clock.Advance(4 * time.Second)
	s.SetVisible(true)
	clock.Advance(4 * time.Second)
	s.SetVisible(false)
	s.SetVisible(false)
	clock.Advance(2 * time.Second)
	require.NoError(t, s.Close())

	got := sink.Events("post_dwell_time")
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].props["dwell_time_seconds"])
	assert.Equal(t, true, got[0].props["was_visible"])
}

func TestScroll_RunningMaxAndFinalFlush(t *testing.T) {
	tr, sink, _ := newTestTracker()

	s := tr.StartScroll("p", model.VariantComparison, 0)
	s.Update(30)
	s.Update(80.4)
	s.Observe(200, 2000, 1000)

	cur, max := s.Depth()
	assert.Equal(t, 20, cur)
	assert.Equal(t, 80, max)

	s.Flush(context.Background())
	s.Unload(context.Background())
	require.NoError(t, s.Close())
	s.Flush(context.Background())
	s.Update(99)

	got := sink.Events("post_scroll_depth")
	require.Len(t, got, 2, "one manual flush and one final flush")
	for _, e := range got {
		assert.Equal(t, 20, e.props["scroll_percentage"])
		assert.Equal(t, 80, e.props["max_scroll_reached"])
	}
}

func TestScroll_PeriodicFlush(t *testing.T) {
	tr, sink, _ := newTestTracker()

	s := tr.StartScroll("p", model.VariantControl, 10*time.Millisecond)
	s.Update(55)

	require.Eventually(t, func() bool {
		return len(sink.Events("post_scroll_depth")) >= 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Close())
	n := len(sink.Events("post_scroll_depth"))
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, len(sink.Events("post_scroll_depth")), "no flushes after close")
}

func TestSessions_ReplaceClosesPrevious(t *testing.T) {
	tr, sink, clock := newTestTracker()
	sessions := NewSessions()

	first := sessions.Replace("post-1", func() *PageView {
		return tr.StartPageView("post-1", model.VariantTreatment, true, 0)
	})
	clock.Advance(3 * time.Second)

	var closedBeforeStart bool
	second := sessions.Replace("post-1", func() *PageView {
		closedBeforeStart = first.Dwell.State() == "flushed"
		return tr.StartPageView("post-1", model.VariantTreatment, true, 0)
	})

	assert.True(t, closedBeforeStart)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, sessions.Len())
	assert.Len(t, sink.Events("post_dwell_time"), 1)
	assert.Len(t, sink.Events("post_scroll_depth"), 1)

	got, ok := sessions.Get("post-1")
	require.True(t, ok)
	assert.Equal(t, second, got)

	sessions.Replace("post-2", func() *PageView {
		return tr.StartPageView("post-2", model.VariantControl, false, 0)
	})
	assert.True(t, sessions.Close("post-2"))
	assert.False(t, sessions.Close("post-2"))

	sessions.CloseAll()
	assert.Equal(t, 0, sessions.Len())
	assert.Len(t, sink.Events("post_dwell_time"), 3)
}

func TestSessions_ReleaseKeepsNewerMount(t *testing.T) {
	tr, sink, _ := newTestTracker()
	sessions := NewSessions()

	stale := sessions.Replace("post-1", func() *PageView {
		return tr.StartPageView("post-1", model.VariantControl, true, 0)
	})
	current := sessions.Replace("post-1", func() *PageView {
		return tr.StartPageView("post-1", model.VariantControl, true, 0)
	})

	assert.False(t, sessions.Release("post-1", stale))
	got, ok := sessions.Get("post-1")
	require.True(t, ok)
	assert.Equal(t, current, got)
	assert.Equal(t, "active", current.Dwell.State())
	assert.Len(t, sink.Events("post_dwell_time"), 1)

	assert.True(t, sessions.Release("post-1", current))
	assert.Equal(t, 0, sessions.Len())
	assert.Len(t, sink.Events("post_dwell_time"), 2)
}

func TestPageView_UnloadThenClose(t *testing.T) {
	tr, sink, clock := newTestTracker()

	pv := tr.StartPageView("p", model.VariantControl, true, 0)
	pv.Scroll.Update(40)
	clock.Advance(2 * time.Second)
	pv.Unload(context.Background())
	require.NoError(t, pv.Close())

	assert.Len(t, sink.Events("post_dwell_time"), 1)
	assert.Len(t, sink.Events("post_scroll_depth"), 1)
}
