package uistate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-uistate/pkg/activity"
	"github.com/goliatone/go-uistate/pkg/medium"
)

// Factory creates and tracks stores. Each key maps to at most one store for
// the lifetime of the factory.
type Factory struct {
	cfg     factoryConfig
	emitter *activity.Emitter

	mu      sync.Mutex
	entries map[string]registered

	evalOnce  sync.Once
	evaluator Evaluator
}

// registered is the type-erased view of a *Store the registry keeps.
type registered interface {
	Key() string
	storeType() string
}

var (
	defaultMu      sync.Mutex
	defaultFactory *Factory
)

// Default returns the process-wide factory. It persists to an in-memory
// medium unless replaced with SetDefault.
func Default() *Factory {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultFactory == nil {
		defaultFactory = NewFactory()
	}
	return defaultFactory
}

// SetDefault replaces the process-wide factory. Stores already created through
// the previous default stay registered there.
func SetDefault(f *Factory) {
	defaultMu.Lock()
	defaultFactory = f
	defaultMu.Unlock()
}

// NewFactory constructs an empty factory.
func NewFactory(opts ...FactoryOption) *Factory {
	cfg := applyFactoryOptions(opts)
	return &Factory{
		cfg: cfg,
		emitter: activity.NewEmitter(cfg.hooks, activity.Config{
			Enabled: true,
			Channel: cfg.channel,
		}, cfg.now),
		entries: map[string]registered{},
	}
}

// Create returns the store registered under key, creating it on first use.
//
// On first use the persisted record for key is read from the medium. When it
// is absent, unreadable, written under another version without a migration,
// or rejected by validation, the store starts from defaults and the defaults
// are written through. build runs exactly once per key.
//
// A second call with the same key returns the existing store and ignores
// defaults, build and opts. If the existing store has different state or
// action types, ErrKeyConflict is returned. build runs while the registry is
// locked and must not call Create on the same factory. Activity hooks run
// after the registry is released.
func Create[S, A any](f *Factory, key string, defaults S, build ActionsBuilder[S, A], opts ...StoreOption) (*Store[S, A], error) {
	if f == nil {
		f = Default()
	}
	if strings.TrimSpace(key) == "" {
		return nil, ErrKeyRequired
	}

	f.mu.Lock()
	store, created, err := register(f, key, defaults, build, opts)
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if created {
		store.releaseEvents()
	}
	return store, nil
}

// register looks up or builds the store for key. The caller holds f.mu.
func register[S, A any](f *Factory, key string, defaults S, build ActionsBuilder[S, A], opts []StoreOption) (*Store[S, A], bool, error) {
	if existing, ok := f.entries[key]; ok {
		store, ok := existing.(*Store[S, A])
		if !ok {
			return nil, false, fmt.Errorf("%w: %q holds %s", ErrKeyConflict, key, existing.storeType())
		}
		return store, false, nil
	}
	if build == nil {
		return nil, false, ErrActionsRequired
	}

	store, err := newStore[S, A](f, key, defaults, applyStoreOptions(opts))
	if err != nil {
		return nil, false, err
	}
	source := store.hydrate()
	store.actions = build(store.Mutate, store.State)
	f.entries[key] = store

	f.cfg.logger.WithField("key", key).WithField("source", source).Debug("store created")
	store.emit(activity.BuildStoreCreatedEvent(activity.StoreEventInput{
		Key:     key,
		Version: store.versionPtr(),
		Source:  source,
	}))
	return store, true, nil
}

// MustCreate is like Create but panics on error.
func MustCreate[S, A any](f *Factory, key string, defaults S, build ActionsBuilder[S, A], opts ...StoreOption) *Store[S, A] {
	store, err := Create(f, key, defaults, build, opts...)
	if err != nil {
		panic(err)
	}
	return store
}

// Lookup returns the store registered under key when it has the requested
// types.
func Lookup[S, A any](f *Factory, key string) (*Store[S, A], bool) {
	if f == nil {
		f = Default()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	store, ok := f.entries[key].(*Store[S, A])
	return store, ok
}

// Has reports whether a store is registered under key.
func (f *Factory) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[key]
	return ok
}

// Keys returns the registered store keys sorted alphabetically.
func (f *Factory) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.entries))
	for key := range f.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Medium returns the persistence backend.
func (f *Factory) Medium() medium.Medium {
	return f.cfg.medium
}

// Codec returns the record encoding.
func (f *Factory) Codec() medium.Codec {
	return f.cfg.codec
}

// ClearPersisted removes persisted records for keys. With no keys it removes
// every record the medium can enumerate, falling back to the registered keys
// when the medium cannot list. Registered stores keep their in-memory state.
func (f *Factory) ClearPersisted(ctx context.Context, keys ...string) error {
	if ctx == nil {
		ctx = f.cfg.ctx
	}
	if len(keys) == 0 {
		listed, err := f.persistedKeys(ctx)
		if err != nil {
			return err
		}
		keys = listed
	}
	var errs []error
	for _, key := range keys {
		if err := f.cfg.medium.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("uistate: clear %q: %w", key, err))
			continue
		}
		f.cfg.logger.WithField("key", key).Debug("persisted record cleared")
		f.emit(activity.BuildStoreClearedEvent(activity.StoreEventInput{Key: key}))
	}
	return errors.Join(errs...)
}

// PersistedKeys lists the keys the medium holds records for. Media that
// cannot enumerate report the registered keys instead.
func (f *Factory) PersistedKeys(ctx context.Context) ([]string, error) {
	if ctx == nil {
		ctx = f.cfg.ctx
	}
	return f.persistedKeys(ctx)
}

func (f *Factory) persistedKeys(ctx context.Context) ([]string, error) {
	if lister, ok := f.cfg.medium.(medium.Lister); ok {
		keys, err := lister.Keys(ctx)
		if err != nil {
			return nil, fmt.Errorf("uistate: list persisted keys: %w", err)
		}
		return keys, nil
	}
	return f.Keys(), nil
}

// Record reads the raw persisted record for key.
func (f *Factory) Record(ctx context.Context, key string) (medium.Record, bool, error) {
	if ctx == nil {
		ctx = f.cfg.ctx
	}
	return medium.Read(ctx, f.cfg.medium, f.cfg.codec, key)
}
