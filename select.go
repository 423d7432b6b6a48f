package uistate

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrNoEvaluator = errors.New("uistate: evaluator not configured")

// SelectOption adjusts the context a selector runs with.
type SelectOption func(*SelectContext)

// WithArgs exposes args to the expression as `args`.
func WithArgs(args map[string]any) SelectOption {
	return func(ctx *SelectContext) {
		ctx.Args = args
	}
}

// WithMetadata exposes metadata to the expression as `metadata`.
func WithMetadata(metadata map[string]any) SelectOption {
	return func(ctx *SelectContext) {
		ctx.Metadata = metadata
	}
}

// WithNow pins the `now` binding.
func WithNow(now time.Time) SelectOption {
	return func(ctx *SelectContext) {
		ctx.Now = &now
	}
}

// Select evaluates expression against the current state. Top-level state
// fields are bound by their JSON names; the whole state is also bound as
// `state`.
func (s *Store[S, A]) Select(expression string, opts ...SelectOption) (any, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	ctx, err := s.selectContext(opts)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expression)
	evalErr = wrapEvaluationError(evaluatorEngineName(evaluator), expression, ctx.keyLabel(), evalErr)
	s.logEvaluation(evaluator, expression, time.Since(start), evalErr)
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

// Selector is a compiled expression bound to a store.
type Selector[S, A any] struct {
	store      *Store[S, A]
	expression string
	engine     string
	compiled   CompiledSelector
}

// Selector compiles expression once for repeated evaluation against the
// store's current state.
func (s *Store[S, A]) Selector(expression string) (*Selector[S, A], error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	engine := evaluatorEngineName(evaluator)
	compiled, err := evaluator.Compile(expression)
	if err != nil {
		return nil, wrapEvaluationError(engine, expression, s.key, err)
	}
	return &Selector[S, A]{
		store:      s,
		expression: expression,
		engine:     engine,
		compiled:   compiled,
	}, nil
}

// Expression returns the source expression.
func (sel *Selector[S, A]) Expression() string {
	return sel.expression
}

// Value evaluates the selector against the store's current state.
func (sel *Selector[S, A]) Value(opts ...SelectOption) (any, error) {
	ctx, err := sel.store.selectContext(opts)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	value, evalErr := sel.compiled.Evaluate(ctx)
	evalErr = wrapEvaluationError(sel.engine, sel.expression, ctx.keyLabel(), evalErr)
	sel.store.factory.cfg.evalLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   sel.engine,
		Expr:     sel.expression,
		Key:      sel.store.key,
		Duration: time.Since(start),
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

func (s *Store[S, A]) selectContext(opts []SelectOption) (SelectContext, error) {
	snapshot, err := selectSnapshot(s.State())
	if err != nil {
		return SelectContext{}, fmt.Errorf("uistate: snapshot %q: %w", s.key, err)
	}
	now := s.factory.cfg.now()
	ctx := SelectContext{Snapshot: snapshot, Now: &now, Key: s.key}
	for _, opt := range opts {
		if opt != nil {
			opt(&ctx)
		}
	}
	return ctx.withDefaults(), nil
}

func (s *Store[S, A]) logEvaluation(evaluator Evaluator, expression string, duration time.Duration, err error) {
	s.factory.cfg.evalLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   evaluatorEngineName(evaluator),
		Expr:     expression,
		Key:      s.key,
		Duration: duration,
		Err:      err,
	})
}

func (s *Store[S, A]) resolveEvaluator() (Evaluator, error) {
	return s.factory.resolveEvaluator()
}

func (f *Factory) resolveEvaluator() (Evaluator, error) {
	f.evalOnce.Do(func() {
		if f.cfg.evaluator != nil {
			f.evaluator = f.cfg.evaluator
			return
		}
		var exprOpts []ExprEvaluatorOption
		if f.cfg.cache != nil {
			exprOpts = append(exprOpts, ExprWithProgramCache(f.cfg.cache))
		}
		if f.cfg.functions != nil {
			exprOpts = append(exprOpts, ExprWithFunctionRegistry(f.cfg.functions))
		}
		f.evaluator = NewExprEvaluator(exprOpts...)
	})
	if f.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return f.evaluator, nil
}

// NewEvaluator builds the named engine ("expr", "cel" or "js") wired to the
// given cache and registry. Either may be nil.
func NewEvaluator(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch engine {
	case "", "expr":
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry)), nil
	case "cel":
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry)), nil
	case "js":
		return NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry)), nil
	default:
		return nil, fmt.Errorf("uistate: unknown selector engine %q", engine)
	}
}

// selectSnapshot converts typed state into the map form evaluators bind.
// Non-object state is exposed only through `state`.
func selectSnapshot(state any) (any, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func reservedBinding(name string) bool {
	switch name {
	case "now", "args", "metadata", "key", "state", "call":
		return true
	default:
		return false
	}
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	case *jsEvaluator:
		return "js"
	default:
		return "custom"
	}
}
