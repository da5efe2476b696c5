// Package variant assigns the viewer to an arm of the post-detail experiment.
//
// Precedence, highest first: a manual override persisted in client storage,
// the remote feature flag, then control. Values outside the enumeration are
// ignored at every level.
package variant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/feedlens/internal/flags"
	"github.com/ppiankov/feedlens/internal/model"
	"github.com/ppiankov/feedlens/internal/storage"
)

// ErrInvalidVariant is returned when setting an override outside the enumeration
var ErrInvalidVariant = errors.New("invalid variant")

// Origin names the input that produced the resolved variant
type Origin string

const (
	OriginOverride Origin = "override"
	OriginFlag     Origin = "flag"
	OriginDefault  Origin = "default"
)

// State is the resolver output consumed by renderers
type State struct {
	Variant model.Variant `json:"variant"`
	Origin  Origin        `json:"origin"`
	Loading bool          `json:"loading"` // True until Init completes
}

// Resolver resolves the active variant for one client session
type Resolver struct {
	store       storage.Store
	loader      *flags.Loader
	overrideKey string
	initTimeout time.Duration
	logger      zerolog.Logger

	initOnce sync.Once
	mu       sync.RWMutex
	ready    bool
	flag     flags.Value // Read once; later flag changes do not move the session
}

// Option configures a Resolver
type Option func(*Resolver)

// WithInitTimeout bounds how long Init waits for the flag provider
func WithInitTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.initTimeout = d }
}

// WithOverrideKey replaces the storage key holding the override
func WithOverrideKey(key string) Option {
	return func(r *Resolver) { r.overrideKey = key }
}

// WithLogger attaches a logger
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver. loader may be nil when no flag provider exists.
func NewResolver(store storage.Store, loader *flags.Loader, opts ...Option) *Resolver {
	r := &Resolver{
		store:       store,
		loader:      loader,
		overrideKey: model.VariantOverrideKey,
		initTimeout: 2 * time.Second,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init completes the one-time client setup: the flag is awaited once with the
// configured timeout. Subsequent calls return immediately.
func (r *Resolver) Init(ctx context.Context) {
	r.initOnce.Do(func() {
		flag := flags.Absent
		if r.loader != nil {
			flag = r.loader.Await(ctx, r.initTimeout)
		}

		r.mu.Lock()
		r.flag = flag
		r.ready = true
		r.mu.Unlock()

		state := r.State()
		r.logger.Info().
			Str("variant", state.Variant.String()).
			Str("origin", string(state.Origin)).
			Msg("experiment variant resolved")
	})
}

// Resolve returns the active variant
func (r *Resolver) Resolve() model.Variant {
	return r.State().Variant
}

// State returns the active variant, where it came from, and whether the
// client setup is still pending
func (r *Resolver) State() State {
	r.mu.RLock()
	ready := r.ready
	flag := r.flag
	r.mu.RUnlock()

	if v, ok := r.Override(); ok {
		return State{Variant: v, Origin: OriginOverride, Loading: !ready}
	}
	if v, ok := flag.Variant(); ok {
		return State{Variant: v, Origin: OriginFlag, Loading: !ready}
	}
	return State{Variant: model.VariantControl, Origin: OriginDefault, Loading: !ready}
}

// Override returns the persisted override when it is a valid variant
func (r *Resolver) Override() (model.Variant, bool) {
	raw, found, err := r.store.Get(r.overrideKey)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", r.overrideKey).Msg("read variant override")
		return "", false
	}
	if !found {
		return "", false
	}
	return model.ParseVariant(raw)
}

// SetManualOverride persists v as the override; nil removes it so resolution
// falls back to the flag, not to control
func (r *Resolver) SetManualOverride(v *model.Variant) error {
	if v == nil {
		if err := r.store.Remove(r.overrideKey); err != nil {
			return fmt.Errorf("clear override: %w", err)
		}
		r.logger.Info().Msg("variant override cleared")
		return nil
	}

	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidVariant, string(*v))
	}
	if err := r.store.Set(r.overrideKey, string(*v)); err != nil {
		return fmt.Errorf("persist override: %w", err)
	}
	r.logger.Info().Str("variant", v.String()).Msg("variant override set")
	return nil
}

// ClearOverride is SetManualOverride(nil)
func (r *Resolver) ClearOverride() error {
	return r.SetManualOverride(nil)
}
