// Package logging builds component-scoped logrus loggers.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// EnvLevel overrides Config.Level when set.
const EnvLevel = "UISTATE_LOG_LEVEL"

// Config controls logger construction.
type Config struct {
	// Level is the minimum level ("debug", "info", "warn", "error").
	Level string `yaml:"level" toml:"level"`
	// Format is "text" (default) or "json".
	Format string `yaml:"format" toml:"format"`
	// ReportCaller includes file and line in each entry.
	ReportCaller bool `yaml:"report_caller" toml:"report_caller"`
}

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
	output    io.Writer = os.Stderr
)

// New returns the logger for component, creating it on first use. Later calls
// for the same component return the cached entry and ignore cfg.
func New(component string, cfg Config) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, ok := loggers[component]; ok {
		return logger
	}

	logger := logrus.New()
	logger.SetOutput(output)
	logger.SetLevel(ParseLevel(cfg.Level))
	logger.SetReportCaller(cfg.ReportCaller)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// ParseLevel resolves the effective level, preferring the environment.
func ParseLevel(configured string) logrus.Level {
	value := configured
	if env := strings.TrimSpace(os.Getenv(EnvLevel)); env != "" {
		value = env
	}
	if value == "" {
		return logrus.InfoLevel
	}
	level, err := logrus.ParseLevel(value)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// Discard returns a logger that drops every entry.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// SetOutput redirects loggers created after the call.
func SetOutput(w io.Writer) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	output = w
}

// Reset forgets cached component loggers.
func Reset() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	loggers = make(map[string]*logrus.Entry)
}
