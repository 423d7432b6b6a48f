// Package config loads go-uistate settings from YAML or TOML files and the
// environment, and builds the medium and factory they describe.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	uistate "github.com/goliatone/go-uistate"
	"github.com/goliatone/go-uistate/internal/logging"
	"github.com/goliatone/go-uistate/layering"
	"github.com/goliatone/go-uistate/pkg/activity"
	"github.com/goliatone/go-uistate/pkg/medium"
)

// Medium drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Environment variables that override file settings.
const (
	EnvMediumDriver   = "UISTATE_MEDIUM_DRIVER"
	EnvMediumPath     = "UISTATE_MEDIUM_PATH"
	EnvMediumCodec    = "UISTATE_MEDIUM_CODEC"
	EnvLogFormat      = "UISTATE_LOG_FORMAT"
	EnvSelectorEngine = "UISTATE_SELECTOR_ENGINE"
	EnvChannel        = "UISTATE_ACTIVITY_CHANNEL"
)

var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// Config is the full settings tree.
type Config struct {
	Medium    Medium          `yaml:"medium" toml:"medium"`
	Logging   logging.Config  `yaml:"logging" toml:"logging"`
	Activity  activity.Config `yaml:"activity" toml:"activity"`
	Selectors Selectors       `yaml:"selectors" toml:"selectors"`
}

// Medium selects and locates the persistence backend.
type Medium struct {
	// Driver is "memory", "file" or "sqlite".
	Driver string `yaml:"driver" toml:"driver"`
	// Path is the directory for "file" and the database file for "sqlite".
	Path string `yaml:"path" toml:"path"`
	// Codec is "json" or "yaml".
	Codec string `yaml:"codec" toml:"codec"`
}

// Selectors configures the selector evaluator.
type Selectors struct {
	// Engine is "expr", "cel" or "js".
	Engine string `yaml:"engine" toml:"engine"`
	// Cache keeps compiled programs for reuse. Unset means enabled.
	Cache *bool `yaml:"cache" toml:"cache"`
}

// CacheEnabled reports whether compiled programs are cached.
func (s Selectors) CacheEnabled() bool {
	return s.Cache == nil || *s.Cache
}

// Defaults returns the settings used for anything a file or the environment
// leaves unset.
func Defaults() Config {
	return Config{
		Medium: Medium{
			Driver: DriverFile,
			Path:   ".uistate",
			Codec:  "json",
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
		},
		Activity: activity.Config{
			Channel: activity.DefaultChannel,
		},
		Selectors: Selectors{
			Engine: "expr",
		},
	}
}

// Load reads path (YAML or TOML by extension), applies environment overrides
// and fills the remaining fields from Defaults. An empty path skips the file.
func Load(path string) (Config, error) {
	var file Config
	if path != "" {
		loaded, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		file = loaded
	}
	cfg := layering.MergeLayers(fromEnv(), file, Defaults())
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return cfg, nil
}

func fromEnv() Config {
	return Config{
		Medium: Medium{
			Driver: os.Getenv(EnvMediumDriver),
			Path:   os.Getenv(EnvMediumPath),
			Codec:  os.Getenv(EnvMediumCodec),
		},
		Logging: logging.Config{
			Level:  os.Getenv(logging.EnvLevel),
			Format: os.Getenv(EnvLogFormat),
		},
		Activity: activity.Config{
			Channel: os.Getenv(EnvChannel),
		},
		Selectors: Selectors{
			Engine: os.Getenv(EnvSelectorEngine),
		},
	}
}

// Validate checks driver, path, codec and engine values.
func (c Config) Validate() error {
	var errs []error
	switch c.Medium.Driver {
	case DriverMemory:
	case DriverFile, DriverSQLite:
		if strings.TrimSpace(c.Medium.Path) == "" {
			errs = append(errs, fmt.Errorf("config: medium.path is required for driver %q", c.Medium.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown medium.driver %q", c.Medium.Driver))
	}
	if _, err := medium.CodecByName(c.Medium.Codec); err != nil {
		errs = append(errs, fmt.Errorf("config: medium.codec: %w", err))
	}
	if _, err := uistate.NewEvaluator(c.Selectors.Engine, nil, nil); err != nil {
		errs = append(errs, fmt.Errorf("config: selectors.engine: %w", err))
	}
	return errors.Join(errs...)
}

// OpenMedium opens the configured backend. SQLite media must be closed by
// the caller.
func (c Config) OpenMedium() (medium.Medium, error) {
	switch c.Medium.Driver {
	case DriverMemory:
		return medium.NewMemory(), nil
	case DriverFile:
		return medium.OpenFile(c.Medium.Path)
	case DriverSQLite:
		return medium.OpenSQLite(c.Medium.Path)
	default:
		return nil, fmt.Errorf("config: unknown medium.driver %q", c.Medium.Driver)
	}
}

// NewFactory builds a factory over m using the configured codec, logger,
// selector engine and activity settings. hooks are attached only when
// activity is enabled.
func (c Config) NewFactory(m medium.Medium, hooks activity.Hooks, extra ...uistate.FactoryOption) (*uistate.Factory, error) {
	codec, err := medium.CodecByName(c.Medium.Codec)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var cache uistate.ProgramCache
	if c.Selectors.CacheEnabled() {
		cache = uistate.NewMapProgramCache()
	}
	evaluator, err := uistate.NewEvaluator(c.Selectors.Engine, cache, nil)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.New("uistate", c.Logging)

	opts := []uistate.FactoryOption{
		uistate.WithMedium(m),
		uistate.WithCodec(codec),
		uistate.WithLogger(logger),
		uistate.WithEvaluator(evaluator),
		uistate.WithEvaluatorLogger(uistate.LogrusEvaluatorLogger(logger)),
	}
	if c.Activity.Enabled {
		opts = append(opts,
			uistate.WithActivityHooks(hooks),
			uistate.WithActivityChannel(c.Activity.Channel),
		)
	}
	opts = append(opts, extra...)
	return uistate.NewFactory(opts...), nil
}
