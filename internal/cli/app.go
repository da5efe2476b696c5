package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/ppiankov/feedlens/internal/audience"
	"github.com/ppiankov/feedlens/internal/content"
	"github.com/ppiankov/feedlens/internal/flags"
	"github.com/ppiankov/feedlens/internal/model"
	"github.com/ppiankov/feedlens/internal/page"
	"github.com/ppiankov/feedlens/internal/storage"
	"github.com/ppiankov/feedlens/internal/telemetry"
	"github.com/ppiankov/feedlens/internal/tracking"
	"github.com/ppiankov/feedlens/internal/variant"
)

const telemetryQueueSize = 256

// app owns every long-lived component for one process
type app struct {
	cfg      *model.Config
	registry *prometheus.Registry
	store    storage.Store
	resolver *variant.Resolver
	stats    *audience.MockSource
	sink     telemetry.Sink
	ctrl     *page.Controller
	closers  []io.Closer
}

// newResolver opens the override store and starts the flag fetch
func newResolver(ctx context.Context, cfg *model.Config, logger zerolog.Logger) (*variant.Resolver, storage.Store, []io.Closer, error) {
	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open storage: %w", err)
	}
	closers := []io.Closer{store}

	src, err := flags.NewSource(cfg.Flags, cfg.API.ViewerID)
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, err
	}
	if c, ok := src.(io.Closer); ok {
		closers = append(closers, c)
	}

	loader := flags.Load(ctx, src, cfg.Flags.Key, logger)
	resolver := variant.NewResolver(store, loader,
		variant.WithInitTimeout(cfg.Flags.InitTimeout),
		variant.WithLogger(logger),
	)
	return resolver, store, closers, nil
}

// newApp wires the configured components together and completes client setup
func newApp(ctx context.Context, cfg *model.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	resolver, store, closers, err := newResolver(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.resolver, a.store, a.closers = resolver, store, closers

	client, err := content.NewClient(cfg.API,
		content.WithLogger(logger),
		content.WithRegisterer(a.registry),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	opts := []page.Option{
		page.WithViewerID(cfg.API.ViewerID),
		page.WithDebugControls(cfg.UI.ShowDebugControls),
		page.WithScrollInterval(cfg.Tracking.ScrollInterval),
		page.WithLogger(logger),
	}

	if cfg.Stats.Enabled {
		a.stats = audience.NewMockSource(
			audience.WithLogger(logger),
			audience.WithWarmWorkers(cfg.Stats.WarmWorkers),
		)
		opts = append(opts, page.WithStats(a.stats))
	}

	if cfg.Tracking.Enabled {
		sink, err := telemetry.Open(cfg.Telemetry, cfg.API.ViewerID, a.registry, logger)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("open telemetry: %w", err)
		}
		a.sink = telemetry.NewAsync(sink, telemetryQueueSize, logger)
		opts = append(opts, page.WithTracker(tracking.NewTracker(a.sink, tracking.WithLogger(logger))))
	}

	a.ctrl = page.New(client, a.resolver, opts...)
	a.resolver.Init(ctx)
	return a, nil
}

// Close flushes tracking, drains telemetry and releases storage
func (a *app) Close() error {
	var errs []error
	if a.ctrl != nil {
		errs = append(errs, a.ctrl.Close())
	}
	if a.sink != nil {
		errs = append(errs, a.sink.Close())
	}
	if a.stats != nil {
		errs = append(errs, a.stats.Close())
	}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
