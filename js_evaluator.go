package uistate

import (
	"github.com/dop251/goja"
)

// JSEvaluatorOption configures the JS evaluator.
type JSEvaluatorOption func(*jsEvaluator)

// JSWithProgramCache wires a ProgramCache into the JS evaluator.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(e *jsEvaluator) {
		e.cache = cache
	}
}

// JSWithFunctionRegistry wires a FunctionRegistry into the JS evaluator.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(e *jsEvaluator) {
		e.useRegistry(registry)
	}
}

// jsEvaluator runs selector expressions with goja. Programs are shared, each
// evaluation gets a fresh runtime.
type jsEvaluator struct {
	engineBase
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	e := &jsEvaluator{engineBase: engineBase{engine: "js"}}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *jsEvaluator) Evaluate(ctx SelectContext, expression string) (any, error) {
	selector, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	return selector.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string) (CompiledSelector, error) {
	return e.compile(expression)
}

func (e *jsEvaluator) compile(expression string) (*jsSelector, error) {
	if expression == "" {
		return nil, emptyExpression(e.engine)
	}
	program, err := cachedProgram(&e.engineBase, expression, func() (*goja.Program, error) {
		// Wrapping keeps object literals and statements from being parsed as
		// a block.
		return goja.Compile("selector.js", "(function(){ return ("+expression+"); })()", false)
	})
	if err != nil {
		return nil, wrapEvaluationError(e.engine, expression, "", err)
	}
	return &jsSelector{evaluator: e, program: program, expression: expression}, nil
}

type jsSelector struct {
	evaluator  *jsEvaluator
	program    *goja.Program
	expression string
}

func (s *jsSelector) Evaluate(ctx SelectContext) (any, error) {
	bindings := selectorBindings(ctx)
	functionBindings(s.evaluator.registry, bindings)

	vm := goja.New()
	for name, value := range bindings {
		if err := vm.Set(name, value); err != nil {
			return nil, wrapEvaluationError(s.evaluator.engine, s.expression, ctx.keyLabel(), err)
		}
	}
	value, err := vm.RunProgram(s.program)
	if err != nil {
		return nil, wrapEvaluationError(s.evaluator.engine, s.expression, ctx.keyLabel(), err)
	}
	return value.Export(), nil
}
