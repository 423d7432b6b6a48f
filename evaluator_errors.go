package uistate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyExpression is returned when a selector expression is blank.
var ErrEmptyExpression = errors.New("uistate: expression must not be empty")

// maxDescribedExpression bounds how much of an expression lands in error text.
const maxDescribedExpression = 120

// EvaluationError ties a compile or evaluation failure to the engine, the
// selector expression and the store key it ran against.
type EvaluationError struct {
	Engine string
	Expr   string
	Key    string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("uistate: ")
	b.WriteString(e.Engine)
	b.WriteString(" evaluator ")
	b.WriteString(describeExpression(e.Expr))
	if e.Key != "" {
		b.WriteString(" key=")
		b.WriteString(e.Key)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "expr=<empty>"
	}
	if runes := []rune(expr); len(runes) > maxDescribedExpression {
		expr = string(runes[:maxDescribedExpression]) + "..."
	}
	return fmt.Sprintf("expr=%q", expr)
}

// emptyExpression reports a blank selector for engine.
func emptyExpression(engine string) error {
	return fmt.Errorf("uistate: %s evaluator: %w", engine, ErrEmptyExpression)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) || strings.HasPrefix(err.Error(), "uistate:") {
		return err
	}
	return fmt.Errorf("uistate: %s evaluator: %w", engine, err)
}

// wrapEvaluationError attaches selector metadata to err. An existing
// EvaluationError keeps its values and only has blank fields filled in.
func wrapEvaluationError(engine, expr, key string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		return &EvaluationError{Engine: engine, Expr: expr, Key: key, Err: err}
	}
	if evalErr.Engine == "" {
		evalErr.Engine = engine
	}
	if evalErr.Expr == "" {
		evalErr.Expr = expr
	}
	if evalErr.Key == "" {
		evalErr.Key = key
	}
	return evalErr
}
