// Package cli implements the uistatectl command tree.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	uistate "github.com/goliatone/go-uistate"
	"github.com/goliatone/go-uistate/config"
	"github.com/goliatone/go-uistate/pkg/activity"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for uistatectl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "uistatectl",
		Short: "Inspect and manage persisted UI state",
		Long: `uistatectl reads the medium configured for go-uistate stores.

It lists persisted keys, prints stored records, clears stale state and
renders transaction metadata files through the addon registry.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (yaml or toml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewKeysCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
		cfg.Activity.Enabled = true
	}
	return cfg, nil
}

// openFactory loads the configuration and opens a factory over its medium.
// The returned close func releases the medium.
func openFactory(opts *RootOptions, formatter *OutputFormatter) (*uistate.Factory, func(), error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, ErrCodeConfig, err)
	}
	formatter.VerboseLog("medium: %s %s (codec %s)", cfg.Medium.Driver, cfg.Medium.Path, cfg.Medium.Codec)

	m, err := cfg.OpenMedium()
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, ErrCodeMedium, err)
	}
	release := func() {
		if closer, ok := m.(io.Closer); ok {
			_ = closer.Close()
		}
	}

	factory, err := cfg.NewFactory(m, activity.Hooks{formatter.ActivityHook()})
	if err != nil {
		release()
		return nil, nil, WrapExitError(ExitCommandError, ErrCodeConfig, err)
	}
	return factory, release, nil
}
