package uistate

import (
	"context"
	"time"

	"github.com/goliatone/go-uistate/pkg/activity"
	"github.com/goliatone/go-uistate/pkg/medium"
	"github.com/sirupsen/logrus"
)

// MutateFunc commits a recipe against a draft copy of the current state.
type MutateFunc[S any] func(recipe func(draft *S) error) error

// Getter returns a copy of the current state.
type Getter[S any] func() S

// ActionsBuilder produces the named operations of a store. It runs exactly
// once, when the store is first created.
type ActionsBuilder[S, A any] func(mutate MutateFunc[S], get Getter[S]) A

// Listener receives the committed state after every successful mutation.
// Listeners run synchronously on the mutating goroutine and must not call
// Mutate on the same store.
type Listener[S any] func(state S)

// View bundles a state snapshot with the store actions.
type View[S, A any] struct {
	State   S
	Actions A
}

// Migration converts a stored payload written under fromVersion into a
// payload matching the current store version.
type Migration func(stored any, fromVersion int) (any, error)

// SelectContext carries inputs needed when evaluating a selector expression.
type SelectContext struct {
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Key      string
}

func (ctx SelectContext) withDefaultNow() SelectContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx SelectContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx SelectContext) withDefaultMaps() SelectContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx SelectContext) withDefaults() SelectContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx SelectContext) keyLabel() string {
	if ctx.Key != "" {
		return ctx.Key
	}
	return "unknown"
}

// Evaluator executes selector expressions against a select context.
type Evaluator interface {
	Evaluate(ctx SelectContext, expr string) (any, error)
	Compile(expr string) (CompiledSelector, error)
}

// CompiledSelector represents a reusable expression program.
type CompiledSelector interface {
	Evaluate(ctx SelectContext) (any, error)
}

// FactoryOption configures a Factory.
type FactoryOption func(*factoryConfig)

type factoryConfig struct {
	ctx        context.Context
	medium     medium.Medium
	codec      medium.Codec
	logger     logrus.FieldLogger
	hooks      activity.Hooks
	channel    string
	now        func() time.Time
	newID      func() string
	evaluator  Evaluator
	cache      ProgramCache
	functions  *FunctionRegistry
	evalLogger EvaluatorLogger
}

// StoreOption configures a single store at creation time.
type StoreOption func(*storeConfig)

type storeConfig struct {
	version        int
	versioned      bool
	migrate        Migration
	validateSchema bool
	ephemeral      bool
}
