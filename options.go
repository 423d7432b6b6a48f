package uistate

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-uistate/internal/logging"
	"github.com/goliatone/go-uistate/pkg/medium"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// WithMedium sets the persistence backend. Factories default to an in-memory
// medium.
func WithMedium(m medium.Medium) FactoryOption {
	return func(cfg *factoryConfig) {
		if m != nil {
			cfg.medium = m
		}
	}
}

// WithCodec sets the record encoding used against the medium.
func WithCodec(codec medium.Codec) FactoryOption {
	return func(cfg *factoryConfig) {
		if codec != nil {
			cfg.codec = codec
		}
	}
}

// WithLogger routes factory and store diagnostics to logger.
func WithLogger(logger logrus.FieldLogger) FactoryOption {
	return func(cfg *factoryConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithContext sets the context passed to medium calls and activity hooks.
func WithContext(ctx context.Context) FactoryOption {
	return func(cfg *factoryConfig) {
		if ctx != nil {
			cfg.ctx = ctx
		}
	}
}

// WithClock overrides the clock used for record timestamps and selectors.
func WithClock(now func() time.Time) FactoryOption {
	return func(cfg *factoryConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// WithIDGenerator overrides the generator used for record write ids.
func WithIDGenerator(newID func() string) FactoryOption {
	return func(cfg *factoryConfig) {
		if newID != nil {
			cfg.newID = newID
		}
	}
}

// WithEvaluator configures the selector evaluator. Stores fall back to an
// expr-lang evaluator when none is set.
func WithEvaluator(e Evaluator) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.evaluator = e
	}
}

func applyFactoryOptions(opts []FactoryOption) factoryConfig {
	cfg := factoryConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.ctx == nil {
		cfg.ctx = context.Background()
	}
	if cfg.medium == nil {
		cfg.medium = medium.NewMemory()
	}
	if cfg.codec == nil {
		cfg.codec = medium.JSONCodec{}
	}
	if cfg.logger == nil {
		cfg.logger = logging.Discard()
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if cfg.newID == nil {
		cfg.newID = uuid.NewString
	}
	if cfg.evalLogger == nil {
		cfg.evalLogger = noopEvaluatorLogger{}
	}
	cfg.channel = strings.TrimSpace(cfg.channel)
	return cfg
}

// WithVersion marks the store as versioned. Persisted records written under
// another version are discarded unless WithMigrate converts them.
func WithVersion(version int) StoreOption {
	return func(cfg *storeConfig) {
		cfg.version = version
		cfg.versioned = true
	}
}

// WithMigrate registers a conversion for records written under an older or
// newer version.
func WithMigrate(migrate Migration) StoreOption {
	return func(cfg *storeConfig) {
		cfg.migrate = migrate
	}
}

// WithSchemaValidation checks stored payloads against a JSON schema reflected
// from the default state before they are hydrated.
func WithSchemaValidation() StoreOption {
	return func(cfg *storeConfig) {
		cfg.validateSchema = true
	}
}

// Ephemeral keeps the store in memory only. Nothing is read from or written
// to the medium.
func Ephemeral() StoreOption {
	return func(cfg *storeConfig) {
		cfg.ephemeral = true
	}
}

func applyStoreOptions(opts []StoreOption) storeConfig {
	cfg := storeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// validateValue invokes Validate on state types that declare it.
func validateValue[T any](value T) error {
	if v, ok := any(value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	if v, ok := any(&value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}
