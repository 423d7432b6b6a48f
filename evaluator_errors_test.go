package uistate

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "theme == missing", "theme_store", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Expr != "theme == missing" {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.Key != "theme_store" {
		t.Fatalf("expected key metadata, got %q", evalErr.Key)
	}
	if !errors.Is(evalErr.Err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "rule", "tx_table", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
	if existing.Key != "tx_table" {
		t.Fatalf("key should be filled, got %q", existing.Key)
	}
}

func TestEmptyExpressionIsSentinel(t *testing.T) {
	for _, evaluator := range []Evaluator{NewExprEvaluator(), NewCELEvaluator(), NewJSEvaluator()} {
		if _, err := evaluator.Compile(""); !errors.Is(err, ErrEmptyExpression) {
			t.Fatalf("expected ErrEmptyExpression, got %v", err)
		}
	}
}

func TestEvaluationErrorTruncatesLongExpressions(t *testing.T) {
	long := strings.Repeat("a", maxDescribedExpression+40)
	err := &EvaluationError{Engine: "expr", Expr: long, Err: errors.New("boom")}
	msg := err.Error()
	if strings.Contains(msg, long) || !strings.Contains(msg, `..."`) {
		t.Fatalf("expected truncated expression, got %q", msg)
	}
	if strings.Contains(msg, "key=") {
		t.Fatalf("blank key should be omitted, got %q", msg)
	}
}
