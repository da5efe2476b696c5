package audience

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/feedlens/internal/model"
)

func TestMockSource_CachesPerSubject(t *testing.T) {
	src := NewMockSource()
	defer src.Close()
	ctx := context.Background()

	first, err := src.GetAudienceStats(ctx, "X")
	require.NoError(t, err)
	second, err := src.GetAudienceStats(ctx, "X")
	require.NoError(t, err)

	assert.Equal(t, first, second, "repeated lookups must be deep-equal, including lastUpdated")
	assert.True(t, first.LastUpdated.Equal(second.LastUpdated))
}

func TestMockSource_DifferentSubjects(t *testing.T) {
	src := NewMockSource(WithGenerator(seeded(10)))
	ctx := context.Background()

	a, err := src.GetAudienceStats(ctx, "post-a")
	require.NoError(t, err)
	b, err := src.GetAudienceStats(ctx, "post-b")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, src.Len())
}

func TestMockSource_ClearCache(t *testing.T) {
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	src := NewMockSource(WithGenerator(NewGenerator(WithClock(clock))))
	ctx := context.Background()

	before, err := src.GetAudienceStats(ctx, "X")
	require.NoError(t, err)

	src.ClearCache()
	assert.Equal(t, 0, src.Len())

	after, err := src.GetAudienceStats(ctx, "X")
	require.NoError(t, err)
	assert.NotEqual(t, before, after, "regenerated statistics should differ after clear")
}

func TestMockSource_ConcurrentFirstLookup(t *testing.T) {
	src := NewMockSource()
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]model.AudienceStatistics, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stats, err := src.GetAudienceStats(ctx, "shared")
			assert.NoError(t, err)
			results[i] = stats
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
}

func TestMockSource_Warm(t *testing.T) {
	src := NewMockSource(WithWarmWorkers(3))

	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("post-%d", i)
	}

	require.NoError(t, src.Warm(context.Background(), ids))
	assert.Equal(t, 10, src.Len())
}

func TestMockSource_Close(t *testing.T) {
	src := NewMockSource()
	assert.True(t, src.IsAvailable())

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	assert.False(t, src.IsAvailable())
	_, err := src.GetAudienceStats(context.Background(), "X")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMockSource_ContextCancelled(t *testing.T) {
	src := NewMockSource()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.GetAudienceStats(ctx, "X")
	assert.ErrorIs(t, err, context.Canceled)
}
