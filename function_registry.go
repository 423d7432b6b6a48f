package uistate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrFunctionExists indicates a function is already registered under the name.
	ErrFunctionExists = errors.New("uistate: function already registered")
	// ErrFunctionNotFound indicates a selector called an unknown function.
	ErrFunctionNotFound = errors.New("uistate: function not registered")
)

// Function is a custom helper callable from selector expressions, either
// directly by name or through call(name, ...).
type Function func(args ...any) (any, error)

// FunctionRegistry holds custom selector functions. Names are case
// insensitive and stored lower-cased.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

func normalizeFunctionName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register stores fn under name. Registering a name twice fails with
// ErrFunctionExists.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := normalizeFunctionName(name)
	if key == "" {
		return fmt.Errorf("uistate: function name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("uistate: function %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("%w: %q", ErrFunctionExists, name)
	}
	r.functions[key] = fn
	return nil
}

// Has reports whether a function is registered under name.
func (r *FunctionRegistry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.functions[normalizeFunctionName(name)]
	return ok
}

// Clone returns a shallow copy of the registry. Evaluators keep a clone so
// later registrations do not change compiled programs.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name. A panicking function is
// reported as an error.
func (r *FunctionRegistry) Call(name string, args ...any) (result any, err error) {
	if r == nil {
		return nil, fmt.Errorf("uistate: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[normalizeFunctionName(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}
	defer func() {
		if rec := recover(); rec != nil {
			result, err = nil, fmt.Errorf("uistate: function %q panicked: %v", name, rec)
		}
	}()
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry makes the functions in registry callable from
// selector expressions.
func WithFunctionRegistry(registry *FunctionRegistry) FactoryOption {
	return func(cfg *factoryConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for selector expressions. A
// later registration under the same name replaces the earlier one.
func WithCustomFunction(name string, fn Function) FactoryOption {
	return func(cfg *factoryConfig) {
		key := normalizeFunctionName(name)
		if key == "" || fn == nil {
			return
		}
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		cfg.functions.mu.Lock()
		cfg.functions.functions[key] = fn
		cfg.functions.mu.Unlock()
	}
}
