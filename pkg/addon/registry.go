package addon

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-uistate/internal/logging"
	"github.com/goliatone/go-uistate/internal/schemacheck"
	"github.com/goliatone/go-uistate/pkg/activity"
	"github.com/sirupsen/logrus"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger routes skip diagnostics to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithActivityHooks emits an addon.skipped event for every diagnostic.
func WithActivityHooks(hooks activity.Hooks, channel string) Option {
	return func(r *Registry) {
		r.hooks = hooks.Compact()
		r.channel = channel
	}
}

// WithClock overrides the clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry maps metadata labels to renderers.
type Registry struct {
	logger  logrus.FieldLogger
	emitter *activity.Emitter
	hooks   activity.Hooks
	channel string
	now     func() time.Time

	mu      sync.RWMutex
	entries map[int]*entry
}

type entry struct {
	key    int
	loader Loader

	mu     sync.Mutex
	loaded bool
	ready  loaded
}

// loaded is a renderer together with what it reported about itself at load
// time. Name and Modes are read once so a misbehaving renderer fails its own
// load rather than the whole Resolve.
type loaded struct {
	renderer  Renderer
	name      string
	modes     []Mode
	validator *schemacheck.Validator
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger:  logging.Discard(),
		now:     time.Now,
		entries: map[int]*entry{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.emitter = activity.NewEmitter(r.hooks, activity.Config{Enabled: true, Channel: r.channel}, r.now)
	return r
}

// Register adds a lazy loader for key.
func (r *Registry) Register(key int, loader Loader) error {
	if loader == nil {
		return ErrNilLoader
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateKey, key)
	}
	r.entries[key] = &entry{key: key, loader: loader}
	return nil
}

// RegisterRenderer adds an already constructed renderer for key.
func (r *Registry) RegisterRenderer(key int, renderer Renderer) error {
	if renderer == nil {
		return ErrNilLoader
	}
	return r.Register(key, Static(renderer))
}

// Keys returns the registered labels in ascending order.
func (r *Registry) Keys() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]int, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}

// Renderer loads and returns the renderer registered for key.
func (r *Registry) Renderer(ctx context.Context, key int) (Renderer, error) {
	e, ok := r.lookup(key)
	if !ok {
		return nil, fmt.Errorf("addon: no renderer for key %d", key)
	}
	ready, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	return ready.renderer, nil
}

func (r *Registry) lookup(key int) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	return e, ok
}

// Resolve renders items in input order. Items without a renderer, whose
// renderer fails to load, lacks the mode, rejects the metadata or fails to
// render are left out of the output and reported in the diagnostics. When
// ctx is done the remaining items are reported as canceled.
func (r *Registry) Resolve(ctx context.Context, items []Item, mode Mode) ([]Rendered, []Diagnostic) {
	if ctx == nil {
		ctx = context.Background()
	}
	rendered := make([]Rendered, 0, len(items))
	var diagnostics []Diagnostic
	for index, item := range items {
		if err := ctx.Err(); err != nil {
			for rest := index; rest < len(items); rest++ {
				diagnostics = append(diagnostics, r.skip(Diagnostic{
					Index:  rest,
					Key:    items[rest].Key,
					Mode:   mode,
					Reason: ReasonCanceled,
					Err:    err,
				}))
			}
			break
		}
		out, diagnostic, ok := r.resolveItem(ctx, index, item, mode)
		if !ok {
			diagnostics = append(diagnostics, r.skip(diagnostic))
			continue
		}
		rendered = append(rendered, out)
	}
	return rendered, diagnostics
}

func (r *Registry) resolveItem(ctx context.Context, index int, item Item, mode Mode) (Rendered, Diagnostic, bool) {
	diagnostic := Diagnostic{Index: index, Key: item.Key, Mode: mode}

	e, ok := r.lookup(item.Key)
	if !ok {
		diagnostic.Reason = ReasonNotRegistered
		return Rendered{}, diagnostic, false
	}
	ready, err := e.load(ctx)
	if err != nil {
		diagnostic.Reason = ReasonLoadFailed
		diagnostic.Err = err
		return Rendered{}, diagnostic, false
	}
	diagnostic.Renderer = ready.name
	if !slices.Contains(ready.modes, mode) {
		diagnostic.Reason = ReasonModeUnsupported
		return Rendered{}, diagnostic, false
	}
	if ready.validator != nil {
		if err := ready.validator.Validate(item.JSON); err != nil {
			diagnostic.Reason = ReasonInvalidMetadata
			diagnostic.Err = err
			return Rendered{}, diagnostic, false
		}
	}
	output, err := render(ctx, ready, item, mode)
	if err != nil {
		diagnostic.Reason = ReasonRenderFailed
		diagnostic.Err = err
		return Rendered{}, diagnostic, false
	}
	return Rendered{
		Index:    index,
		Key:      item.Key,
		Renderer: ready.name,
		Mode:     mode,
		Output:   output,
	}, diagnostic, true
}

func render(ctx context.Context, ready loaded, item Item, mode Mode) (output any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("addon: renderer %s panicked: %v", ready.name, recovered)
		}
	}()
	return ready.renderer.Render(ctx, item, mode)
}

// load runs the loader once it succeeds; failures are retried on the next
// call. Panics from the loader or from the renderer's Name, Modes or
// MetadataSchema are reported as load errors.
func (e *entry) load(ctx context.Context) (ready loaded, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		return e.ready, nil
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			ready = loaded{}
			err = fmt.Errorf("addon: loader for key %d panicked: %v", e.key, recovered)
		}
	}()
	renderer, err := e.loader(ctx)
	if err != nil {
		return loaded{}, fmt.Errorf("addon: load key %d: %w", e.key, err)
	}
	if renderer == nil {
		return loaded{}, fmt.Errorf("%w: key %d", ErrNilRenderer, e.key)
	}
	ready = loaded{
		renderer: renderer,
		name:     renderer.Name(),
		modes:    slices.Clone(renderer.Modes()),
	}
	if provider, ok := renderer.(SchemaProvider); ok {
		if document := provider.MetadataSchema(); len(document) > 0 {
			ready.validator, err = schemacheck.Compile(fmt.Sprintf("addon-%d.schema.json", e.key), document)
			if err != nil {
				return loaded{}, fmt.Errorf("addon: metadata schema for key %d: %w", e.key, err)
			}
		}
	}
	e.ready, e.loaded = ready, true
	return ready, nil
}

func (r *Registry) skip(diagnostic Diagnostic) Diagnostic {
	entry := r.logger.WithFields(logrus.Fields{
		"index":  diagnostic.Index,
		"key":    diagnostic.Key,
		"mode":   diagnostic.Mode,
		"reason": diagnostic.Reason,
	})
	switch diagnostic.Reason {
	case ReasonNotRegistered, ReasonModeUnsupported, ReasonCanceled:
		entry.Debug("metadata item skipped")
	default:
		entry.WithError(diagnostic.Err).Warn("metadata item skipped")
	}

	event := activity.BuildAddonSkippedEvent(activity.AddonEventInput{
		Key:      diagnostic.Key,
		Index:    diagnostic.Index,
		Mode:     string(diagnostic.Mode),
		Renderer: diagnostic.Renderer,
		Reason:   string(diagnostic.Reason),
		Err:      diagnostic.Err,
	})
	if err := r.emitter.Emit(context.Background(), event); err != nil {
		r.logger.WithError(err).Debug("activity hook failed")
	}
	return diagnostic
}
