package uistate

import (
	"time"

	"github.com/sirupsen/logrus"
)

// EvaluatorLogEvent describes a selector evaluation for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Key      string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// LogrusEvaluatorLogger writes evaluations at debug level and failures at
// warn level.
func LogrusEvaluatorLogger(logger logrus.FieldLogger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		entry := logger.WithFields(logrus.Fields{
			"engine":   event.Engine,
			"expr":     event.Expr,
			"key":      event.Key,
			"duration": event.Duration,
		})
		if event.Err != nil {
			entry.WithError(event.Err).Warn("selector evaluation failed")
			return
		}
		entry.Debug("selector evaluated")
	})
}

// WithEvaluatorLogger attaches an evaluator logger to the factory.
func WithEvaluatorLogger(logger EvaluatorLogger) FactoryOption {
	return func(cfg *factoryConfig) {
		if logger == nil {
			cfg.evalLogger = noopEvaluatorLogger{}
			return
		}
		cfg.evalLogger = logger
	}
}
