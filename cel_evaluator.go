package uistate

import (
	"fmt"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
// Functions are reachable through call(name, ...) with up to maxCallArgs
// arguments.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.useRegistry(registry)
	}
}

// celEvaluator type-checks against the state fields it is given, so programs
// are compiled lazily per state shape and cached under expression plus
// field names.
type celEvaluator struct {
	engineBase
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{engineBase: engineBase{engine: "cel"}}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx SelectContext, expression string) (any, error) {
	selector, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return selector.Evaluate(ctx)
}

func (e *celEvaluator) Compile(expression string) (CompiledSelector, error) {
	if expression == "" {
		return nil, emptyExpression(e.engine)
	}
	return &celSelector{evaluator: e, expression: expression}, nil
}

func (e *celEvaluator) program(expression string, fields map[string]any) (celgo.Program, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	cacheKey := expression + "\x00" + strings.Join(names, ",")
	return cachedProgram(&e.engineBase, cacheKey, func() (celgo.Program, error) {
		env, err := e.environment(names)
		if err != nil {
			return nil, err
		}
		ast, issues := env.Compile(expression)
		if issues != nil && issues.Err() != nil {
			return nil, issues.Err()
		}
		return env.Program(ast)
	})
}

func (e *celEvaluator) environment(fields []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
		celgo.Variable("key", celgo.StringType),
		celgo.Variable("state", celgo.DynType),
	}
	for _, name := range fields {
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", e.callOverloads()...))
	}
	return celgo.NewEnv(opts...)
}

type celSelector struct {
	evaluator  *celEvaluator
	expression string
}

func (s *celSelector) Evaluate(ctx SelectContext) (any, error) {
	e := s.evaluator
	bindings := selectorBindings(ctx)
	program, err := e.program(s.expression, snapshotFields(ctx.Snapshot))
	if err != nil {
		return nil, wrapEvaluationError(e.engine, s.expression, ctx.keyLabel(), err)
	}
	out, _, err := program.Eval(bindings)
	if err != nil {
		return nil, wrapEvaluationError(e.engine, s.expression, ctx.keyLabel(), err)
	}
	return out.Value(), nil
}

// maxCallArgs bounds the arity of call(name, ...) since CEL overloads are
// fixed-arity.
const maxCallArgs = 4

func (e *celEvaluator) callOverloads() []celgo.FunctionOpt {
	binding := celgo.FunctionBinding(e.callBinding())
	overloads := make([]celgo.FunctionOpt, 0, maxCallArgs+1)
	params := []*celgo.Type{celgo.StringType}
	for arity := 0; arity <= maxCallArgs; arity++ {
		id := fmt.Sprintf("call_string_dyn%d", arity)
		overloads = append(overloads, celgo.Overload(id, append([]*celgo.Type(nil), params...), celgo.DynType, binding))
		params = append(params, celgo.DynType)
	}
	return overloads
}

func (e *celEvaluator) callBinding() functions.FunctionOp {
	registry := e.registry
	return func(values ...ref.Val) ref.Val {
		if len(values) == 0 {
			return types.NewErr("uistate: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("uistate: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
