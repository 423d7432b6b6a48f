package uistate

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"sync"

	"github.com/goliatone/go-uistate/internal/schemacheck"
	"github.com/goliatone/go-uistate/layering"
	"github.com/goliatone/go-uistate/pkg/activity"
	"github.com/goliatone/go-uistate/pkg/medium"
)

// Store is a named state container created through a Factory.
type Store[S, A any] struct {
	key       string
	factory   *Factory
	cfg       storeConfig
	defaults  S
	validator *schemacheck.Validator
	actions   A

	// writeMu serializes mutations end to end, including write-through and
	// listener delivery.
	writeMu sync.Mutex

	mu         sync.RWMutex
	state      S
	revision   uint64
	persistErr error
	listeners  []subscription[S]
	nextSubID  uint64

	// Events raised while Create holds the factory registry are queued and
	// delivered once it is released, so hooks may call back into the factory.
	eventsMu sync.Mutex
	holding  bool
	held     []activity.Event
}

type subscription[S any] struct {
	id       uint64
	listener Listener[S]
}

func newStore[S, A any](f *Factory, key string, defaults S, cfg storeConfig) (*Store[S, A], error) {
	if _, err := medium.Plain(defaults); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidDefaults, key, err)
	}
	store := &Store[S, A]{
		key:      key,
		factory:  f,
		cfg:      cfg,
		defaults: layering.Clone(defaults),
		holding:  true,
	}
	if cfg.validateSchema {
		validator, err := schemacheck.ForType(url.PathEscape(key)+".schema.json", defaults)
		if err != nil {
			return nil, fmt.Errorf("uistate: schema for %q: %w", key, err)
		}
		store.validator = validator
	}
	return store, nil
}

// Key returns the store key.
func (s *Store[S, A]) Key() string {
	return s.key
}

func (s *Store[S, A]) storeType() string {
	return fmt.Sprintf("*uistate.Store[%s, %s]", typeName[S](), typeName[A]())
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// Version returns the configured version and whether the store is versioned.
func (s *Store[S, A]) Version() (int, bool) {
	return s.cfg.version, s.cfg.versioned
}

func (s *Store[S, A]) versionPtr() *int {
	if !s.cfg.versioned {
		return nil
	}
	return medium.IntPtr(s.cfg.version)
}

// Ephemeral reports whether the store skips persistence.
func (s *Store[S, A]) Ephemeral() bool {
	return s.cfg.ephemeral
}

// State returns a deep copy of the current state.
func (s *Store[S, A]) State() S {
	s.mu.RLock()
	current := s.state
	s.mu.RUnlock()
	return layering.Clone(current)
}

// Defaults returns a deep copy of the default state.
func (s *Store[S, A]) Defaults() S {
	return layering.Clone(s.defaults)
}

// Actions returns the actions built when the store was created.
func (s *Store[S, A]) Actions() A {
	return s.actions
}

// View returns the current state together with the actions.
func (s *Store[S, A]) View() View[S, A] {
	return View[S, A]{State: s.State(), Actions: s.actions}
}

// Revision counts committed mutations since creation.
func (s *Store[S, A]) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// PersistError returns the error from the most recent write-through, or nil
// when it succeeded.
func (s *Store[S, A]) PersistError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistErr
}

// Schema returns the JSON schema reflected from the state type.
func (s *Store[S, A]) Schema() ([]byte, error) {
	if s.validator != nil {
		return s.validator.Document(), nil
	}
	return schemacheck.Reflect(s.defaults)
}

// Mutate applies recipe to a draft copy of the state. When recipe returns an
// error, or the draft fails validation or cannot be serialized, the state is
// left unchanged and nothing is persisted or notified. Otherwise the draft
// becomes the new state, is written through and every listener is called
// once. recipe must not call Mutate on the same store.
func (s *Store[S, A]) Mutate(recipe func(draft *S) error) error {
	if recipe == nil {
		return ErrRecipeRequired
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	draft := s.State()
	if err := recipe(&draft); err != nil {
		return err
	}
	if err := validateValue(draft); err != nil {
		return err
	}
	plain, err := medium.Plain(draft)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnserializableState, s.key, err)
	}

	s.mu.Lock()
	s.state = draft
	s.revision++
	revision := s.revision
	listeners := append([]subscription[S](nil), s.listeners...)
	s.mu.Unlock()

	writeID := s.persist(plain)
	s.emit(activity.BuildStoreUpdatedEvent(activity.StoreEventInput{
		Key:      s.key,
		Version:  s.versionPtr(),
		Revision: revision,
		WriteID:  writeID,
	}))
	for _, sub := range listeners {
		sub.listener(layering.Clone(draft))
	}
	return nil
}

// Reset replaces the state with the defaults as a regular mutation.
func (s *Store[S, A]) Reset() error {
	return s.Mutate(func(draft *S) error {
		*draft = layering.Clone(s.defaults)
		return nil
	})
}

// Subscribe registers listener for committed mutations. The returned function
// removes it; calling it more than once is a no-op.
func (s *Store[S, A]) Subscribe(listener Listener[S]) (unsubscribe func()) {
	if listener == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.listeners = append(s.listeners, subscription[S]{id: id, listener: listener})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Watch subscribes listener until ctx is done. A context that is never done
// keeps the listener registered for the life of the store.
func (s *Store[S, A]) Watch(ctx context.Context, listener Listener[S]) {
	unsubscribe := s.Subscribe(listener)
	if ctx == nil || ctx.Done() == nil {
		return
	}
	context.AfterFunc(ctx, unsubscribe)
}

func (s *Store[S, A]) emit(event activity.Event) {
	s.eventsMu.Lock()
	if s.holding {
		s.held = append(s.held, event)
		s.eventsMu.Unlock()
		return
	}
	s.eventsMu.Unlock()
	s.factory.emit(event)
}

// releaseEvents delivers queued events and stops queueing.
func (s *Store[S, A]) releaseEvents() {
	s.eventsMu.Lock()
	events := s.held
	s.held, s.holding = nil, false
	s.eventsMu.Unlock()
	for _, event := range events {
		s.factory.emit(event)
	}
}

// Listeners reports how many listeners are registered.
func (s *Store[S, A]) Listeners() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}
