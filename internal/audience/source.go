package audience

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ppiankov/feedlens/internal/cache"
	"github.com/ppiankov/feedlens/internal/model"
	"github.com/ppiankov/feedlens/internal/worker"
)

// ErrClosed is returned by a source used after Close
var ErrClosed = errors.New("audience source closed")

// Source provides audience statistics for a subject.
// Callers must fall back to the control experience when IsAvailable is false.
type Source interface {
	GetAudienceStats(ctx context.Context, subjectID string) (model.AudienceStatistics, error)
	IsAvailable() bool
}

// MockSource serves generated statistics, memoized per subject for the
// lifetime of the instance
type MockSource struct {
	generator *Generator
	cache     cache.Cache[model.AudienceStatistics]
	warm      *worker.BatchProcessor
	logger    zerolog.Logger
	closed    atomic.Bool
}

// MockSourceOption configures a MockSource
type MockSourceOption func(*MockSource)

// WithGenerator replaces the default generator
func WithGenerator(g *Generator) MockSourceOption {
	return func(s *MockSource) { s.generator = g }
}

// WithLogger attaches a logger
func WithLogger(l zerolog.Logger) MockSourceOption {
	return func(s *MockSource) { s.logger = l }
}

// WithWarmWorkers bounds concurrency for Warm
func WithWarmWorkers(n int) MockSourceOption {
	return func(s *MockSource) { s.warm = worker.NewBatchProcessor(n) }
}

// NewMockSource creates a mock source with an empty cache
func NewMockSource(opts ...MockSourceOption) *MockSource {
	s := &MockSource{
		generator: NewGenerator(),
		cache:     cache.NewMemory[model.AudienceStatistics](cache.NoExpiration, 0),
		warm:      worker.NewBatchProcessor(4),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAudienceStats returns the cached statistics for subjectID, generating
// them on first request
func (s *MockSource) GetAudienceStats(ctx context.Context, subjectID string) (model.AudienceStatistics, error) {
	if s.closed.Load() {
		return model.AudienceStatistics{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return model.AudienceStatistics{}, err
	}

	key := cache.Key("stats", subjectID)
	if stats, found := s.cache.Get(key); found {
		return stats, nil
	}

	stats := s.generator.Generate(subjectID)
	if !s.cache.Add(key, stats, 0) {
		// Lost a race with another request; the first write wins
		if existing, found := s.cache.Get(key); found {
			return existing, nil
		}
		s.cache.Set(key, stats, 0)
	}

	s.logger.Debug().
		Str("subject", subjectID).
		Int("viewers", stats.ViewerCount).
		Msg("generated audience statistics")

	return stats, nil
}

// Warm populates the cache for ids with bounded concurrency
func (s *MockSource) Warm(ctx context.Context, ids []string) error {
	results := s.warm.Process(ctx, ids, func(ctx context.Context, id string) error {
		_, err := s.GetAudienceStats(ctx, id)
		return err
	})

	var errs []error
	for _, r := range results {
		if r.Error != nil {
			errs = append(errs, fmt.Errorf("warm %s: %w", r.Key, r.Error))
		}
	}
	return errors.Join(errs...)
}

// IsAvailable is always true for the synthetic source until closed
func (s *MockSource) IsAvailable() bool {
	return !s.closed.Load()
}

// ClearCache empties the store unconditionally
func (s *MockSource) ClearCache() {
	s.cache.Clear()
}

// Len returns the number of memoized subjects
func (s *MockSource) Len() int {
	return s.cache.Len()
}

// Close releases the cache. Subsequent lookups fail with ErrClosed.
func (s *MockSource) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.cache.Clear()
	}
	return nil
}
