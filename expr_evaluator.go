package uistate

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry wires a FunctionRegistry into the expr evaluator.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.useRegistry(registry)
	}
}

// exprEvaluator is the default engine, backed by github.com/expr-lang/expr.
// Unknown identifiers evaluate to nil instead of failing compilation.
type exprEvaluator struct {
	engineBase
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{engineBase: engineBase{engine: "expr"}}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *exprEvaluator) Evaluate(ctx SelectContext, expression string) (any, error) {
	selector, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	return selector.Evaluate(ctx)
}

func (e *exprEvaluator) Compile(expression string) (CompiledSelector, error) {
	return e.compile(expression)
}

func (e *exprEvaluator) compile(expression string) (*exprSelector, error) {
	if expression == "" {
		return nil, emptyExpression(e.engine)
	}
	program, err := cachedProgram(&e.engineBase, expression, func() (*exprvm.Program, error) {
		return exprlang.Compile(expression, e.compileOptions()...)
	})
	if err != nil {
		return nil, wrapEvaluationError(e.engine, expression, "", err)
	}
	return &exprSelector{evaluator: e, program: program, expression: expression}, nil
}

func (e *exprEvaluator) compileOptions() []exprlang.Option {
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if e.registry == nil {
		return options
	}
	registry := e.registry
	for _, name := range registry.Names() {
		name := name
		options = append(options, exprlang.Function(name, func(arguments ...any) (any, error) {
			return registry.Call(name, arguments...)
		}))
	}
	return options
}

type exprSelector struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (s *exprSelector) Evaluate(ctx SelectContext) (any, error) {
	env := selectorBindings(ctx)
	functionBindings(s.evaluator.registry, env)
	result, err := exprlang.Run(s.program, env)
	if err != nil {
		return nil, wrapEvaluationError(s.evaluator.engine, s.expression, ctx.keyLabel(), err)
	}
	return result, nil
}
