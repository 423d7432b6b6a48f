package uistate

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

var evaluatorFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Evaluator
}{
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []ExprEvaluatorOption{}
			if cache != nil {
				opts = append(opts, ExprWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, ExprWithFunctionRegistry(registry))
			}
			return NewExprEvaluator(opts...)
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []CELEvaluatorOption{}
			if cache != nil {
				opts = append(opts, CELWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, CELWithFunctionRegistry(registry))
			}
			return NewCELEvaluator(opts...)
		},
	},
	{
		name: "js",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []JSEvaluatorOption{}
			if cache != nil {
				opts = append(opts, JSWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, JSWithFunctionRegistry(registry))
			}
			return NewJSEvaluator(opts...)
		},
	},
}

type tableState struct {
	Density string   `json:"density"`
	Columns []string `json:"columns"`
	Theme   string   `json:"theme"`
}

type tableActions struct {
	SetDensity func(string) error
}

func newTableStore(t *testing.T, opts ...FactoryOption) *Store[tableState, tableActions] {
	t.Helper()
	store, err := Create(NewFactory(opts...), "tx_table", tableState{
		Density: "comfortable",
		Columns: []string{"hash", "fees"},
		Theme:   "light",
	}, func(mutate MutateFunc[tableState], _ Getter[tableState]) tableActions {
		return tableActions{SetDensity: func(density string) error {
			return mutate(func(draft *tableState) error {
				draft.Density = density
				return nil
			})
		}}
	})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store
}

func TestSelectAcrossEvaluators(t *testing.T) {
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			store := newTableStore(t, WithEvaluator(factory.new(nil, nil)))

			got, err := store.Select(`density == "comfortable"`)
			if err != nil {
				t.Fatalf("select: %v", err)
			}
			if got != true {
				t.Fatalf("expected true, got %#v", got)
			}

			if err := store.Actions().SetDensity("compact"); err != nil {
				t.Fatalf("set density: %v", err)
			}
			got, err = store.Select(`state.density == "compact" && key == "tx_table"`)
			if err != nil {
				t.Fatalf("select after mutation: %v", err)
			}
			if got != true {
				t.Fatalf("expected selector to observe mutation, got %#v", got)
			}
		})
	}
}

func TestSelectorTracksCurrentState(t *testing.T) {
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			store := newTableStore(t, WithEvaluator(factory.new(nil, nil)))
			selector, err := store.Selector(`density`)
			if err != nil {
				t.Fatalf("compile selector: %v", err)
			}
			if selector.Expression() != "density" {
				t.Fatalf("unexpected expression %q", selector.Expression())
			}

			for _, want := range []string{"comfortable", "compact", "dense"} {
				if want != "comfortable" {
					if err := store.Actions().SetDensity(want); err != nil {
						t.Fatalf("set density: %v", err)
					}
				}
				got, err := selector.Value()
				if err != nil {
					t.Fatalf("selector value: %v", err)
				}
				if got != want {
					t.Fatalf("expected %q, got %#v", want, got)
				}
			}
		})
	}
}

func TestSelectBindsArgsAndMetadata(t *testing.T) {
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			store := newTableStore(t, WithEvaluator(factory.new(nil, nil)))
			got, err := store.Select(`args.theme == theme && metadata.source == "cli"`,
				WithArgs(map[string]any{"theme": "light"}),
				WithMetadata(map[string]any{"source": "cli"}),
			)
			if err != nil {
				t.Fatalf("select: %v", err)
			}
			if got != true {
				t.Fatalf("expected true, got %#v", got)
			}
		})
	}
}

func TestSelectDefaultsToExpr(t *testing.T) {
	store := newTableStore(t)
	got, err := store.Select(`len(columns)`)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected 2 columns, got %#v", got)
	}
	evaluator, err := store.factory.resolveEvaluator()
	if err != nil {
		t.Fatalf("resolve evaluator: %v", err)
	}
	if name := evaluatorEngineName(evaluator); name != "expr" {
		t.Fatalf("expected expr default, got %s", name)
	}
}

func TestSelectErrorsCarryKey(t *testing.T) {
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			store := newTableStore(t, WithEvaluator(factory.new(nil, nil)))
			_, err := store.Select(`density ==`)
			if err == nil {
				t.Fatalf("expected syntax error")
			}
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) {
				t.Fatalf("expected EvaluationError, got %T: %v", err, err)
			}
			if evalErr.Key != "tx_table" && evalErr.Key != "unknown" {
				t.Fatalf("unexpected key metadata %q", evalErr.Key)
			}
			if evalErr.Expr != "density ==" {
				t.Fatalf("unexpected expr metadata %q", evalErr.Expr)
			}
		})
	}
}

func TestSelectRejectsEmptyExpression(t *testing.T) {
	store := newTableStore(t)
	if _, err := store.Select(""); err == nil {
		t.Fatalf("expected error for empty expression")
	}
	if _, err := store.Selector(""); err == nil {
		t.Fatalf("expected error for empty selector")
	}
}

func TestSelectUsesFactoryClock(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	capture := &capturingEvaluator{}
	store := newTableStore(t, WithEvaluator(capture), WithClock(func() time.Time { return fixed }))

	if _, err := store.Select("density"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(capture.contexts) != 1 {
		t.Fatalf("expected one context, got %d", len(capture.contexts))
	}
	ctx := capture.contexts[0]
	if ctx.Now == nil || !ctx.Now.Equal(fixed) {
		t.Fatalf("expected factory clock, got %v", ctx.Now)
	}
	if ctx.Args == nil || ctx.Metadata == nil {
		t.Fatalf("expected default maps")
	}
	if ctx.Key != "tx_table" {
		t.Fatalf("expected key binding, got %q", ctx.Key)
	}

	pinned := fixed.Add(time.Hour)
	if _, err := store.Select("density", WithNow(pinned)); err != nil {
		t.Fatalf("select: %v", err)
	}
	if !capture.contexts[1].Now.Equal(pinned) {
		t.Fatalf("expected pinned now, got %v", capture.contexts[1].Now)
	}
}

func TestEvaluatorProgramCache(t *testing.T) {
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			cache := &fakeProgramCache{}
			store := newTableStore(t, WithEvaluator(factory.new(cache, nil)), WithProgramCache(cache))

			for i := 0; i < 3; i++ {
				if _, err := store.Select(`density == "comfortable"`); err != nil {
					t.Fatalf("iteration %d: %v", i, err)
				}
			}
			if cache.misses != 1 || cache.hits != 2 {
				t.Fatalf("expected 1 miss and 2 hits, got %d misses %d hits", cache.misses, cache.hits)
			}
		})
	}
}

func TestCustomFunctionsAcrossEvaluators(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("equalsIgnoreCase", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("equalsIgnoreCase expects 2 args")
		}
		a, _ := args[0].(string)
		b, _ := args[1].(string)
		return strings.EqualFold(a, b), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			store := newTableStore(t, WithFunctionRegistry(registry), WithEvaluator(factory.new(nil, registry)))
			got, err := store.Select(`call("equalsIgnoreCase", theme, "LIGHT")`)
			if err != nil {
				t.Fatalf("select: %v", err)
			}
			if got != true {
				t.Fatalf("expected true, got %#v", got)
			}
		})
	}
}

func TestCustomFunctionOnDefaultEvaluator(t *testing.T) {
	store := newTableStore(t, WithCustomFunction("shout", func(args ...any) (any, error) {
		s, _ := args[0].(string)
		return strings.ToUpper(s), nil
	}))
	got, err := store.Select(`shout(density)`)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if got != "COMFORTABLE" {
		t.Fatalf("expected COMFORTABLE, got %#v", got)
	}
}

func TestEvaluatorLoggerReceivesEvents(t *testing.T) {
	var events []EvaluatorLogEvent
	store := newTableStore(t, WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		events = append(events, event)
	})))

	if _, err := store.Select("density"); err != nil {
		t.Fatalf("select: %v", err)
	}
	selector, err := store.Selector("theme")
	if err != nil {
		t.Fatalf("selector: %v", err)
	}
	if _, err := selector.Value(); err != nil {
		t.Fatalf("selector value: %v", err)
	}
	if _, err := store.Select("density +"); err == nil {
		t.Fatalf("expected evaluation error")
	}

	if len(events) != 3 {
		t.Fatalf("expected 3 log events, got %d", len(events))
	}
	for _, event := range events[:2] {
		if event.Engine != "expr" || event.Key != "tx_table" || event.Err != nil {
			t.Fatalf("unexpected event %+v", event)
		}
	}
	if events[2].Err == nil {
		t.Fatalf("expected failure to be logged")
	}
}

func TestNewEvaluatorByName(t *testing.T) {
	for _, engine := range []string{"", "expr", "cel", "js"} {
		evaluator, err := NewEvaluator(engine, nil, nil)
		if err != nil {
			t.Fatalf("engine %q: %v", engine, err)
		}
		want := engine
		if want == "" {
			want = "expr"
		}
		if got := evaluatorEngineName(evaluator); got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
	if _, err := NewEvaluator("lua", nil, nil); err == nil {
		t.Fatalf("expected unknown engine error")
	}
}

func TestFunctionRegistryGuards(t *testing.T) {
	registry := NewFunctionRegistry()
	fn := func(...any) (any, error) { return nil, nil }
	if err := registry.Register("", fn); err == nil {
		t.Fatalf("expected empty name error")
	}
	if err := registry.Register("x", nil); err == nil {
		t.Fatalf("expected nil function error")
	}
	if err := registry.Register("Upper", fn); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("upper", fn); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected missing function error")
	}
	if names := registry.Clone().Names(); len(names) != 1 || names[0] != "upper" {
		t.Fatalf("unexpected names %v", names)
	}
}

type capturingEvaluator struct {
	mu       sync.Mutex
	contexts []SelectContext
}

func (c *capturingEvaluator) Evaluate(ctx SelectContext, _ string) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contexts = append(c.contexts, ctx)
	return true, nil
}

func (c *capturingEvaluator) Compile(expr string) (CompiledSelector, error) {
	return capturedSelector{evaluator: c, expr: expr}, nil
}

type capturedSelector struct {
	evaluator *capturingEvaluator
	expr      string
}

func (s capturedSelector) Evaluate(ctx SelectContext) (any, error) {
	return s.evaluator.Evaluate(ctx, s.expr)
}

type fakeProgramCache struct {
	mu     sync.Mutex
	values map[string]any
	hits   int
	misses int
}

func (c *fakeProgramCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return value, ok
}

func (c *fakeProgramCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = map[string]any{}
	}
	c.values[key] = value
}

func TestFunctionRegistrySentinelsAndPanics(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register(" Boom ", func(...any) (any, error) { panic("kaboom") }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !registry.Has("boom") || registry.Has("other") {
		t.Fatalf("unexpected Has results for %v", registry.Names())
	}
	if err := registry.Register("BOOM", func(...any) (any, error) { return nil, nil }); !errors.Is(err, ErrFunctionExists) {
		t.Fatalf("expected ErrFunctionExists, got %v", err)
	}
	if _, err := registry.Call("missing"); !errors.Is(err, ErrFunctionNotFound) {
		t.Fatalf("expected ErrFunctionNotFound, got %v", err)
	}
	_, err := registry.Call("boom")
	if err == nil || !strings.Contains(err.Error(), `function "boom" panicked: kaboom`) {
		t.Fatalf("expected panic converted to error, got %v", err)
	}
}

func TestProgramCacheSharedAcrossEngines(t *testing.T) {
	cache := NewMapProgramCache()
	engines := []Evaluator{
		NewExprEvaluator(ExprWithProgramCache(cache)),
		NewJSEvaluator(JSWithProgramCache(cache)),
	}
	ctx := SelectContext{Snapshot: map[string]any{"density": "compact"}, Key: "tx_table"}
	for _, evaluator := range engines {
		got, err := evaluator.Evaluate(ctx, `density`)
		if err != nil {
			t.Fatalf("%s: %v", evaluatorEngineName(evaluator), err)
		}
		if got != "compact" {
			t.Fatalf("%s: expected compact, got %#v", evaluatorEngineName(evaluator), got)
		}
	}
	for _, key := range []string{"expr:density", "js:density"} {
		if _, ok := cache.Get(key); !ok {
			t.Fatalf("expected cache entry %q", key)
		}
	}
}

func TestCELRecompilesForNewStateShape(t *testing.T) {
	cache := &fakeProgramCache{}
	evaluator := NewCELEvaluator(CELWithProgramCache(cache))

	got, err := evaluator.Evaluate(SelectContext{Snapshot: map[string]any{"density": "compact"}}, `density != ""`)
	if err != nil || got != true {
		t.Fatalf("first shape: %v %#v", err, got)
	}
	got, err = evaluator.Evaluate(SelectContext{Snapshot: map[string]any{"density": "dense", "theme": "dark"}}, `density != ""`)
	if err != nil || got != true {
		t.Fatalf("second shape: %v %#v", err, got)
	}
	if _, err := evaluator.Evaluate(SelectContext{Snapshot: map[string]any{"density": "dense"}}, `density != ""`); err != nil {
		t.Fatalf("first shape again: %v", err)
	}
	if cache.misses != 2 || cache.hits != 1 {
		t.Fatalf("expected a compile per state shape, got %d misses %d hits", cache.misses, cache.hits)
	}
}
