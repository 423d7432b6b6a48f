package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ClearResult lists the keys whose records were removed.
type ClearResult struct {
	Cleared []string `json:"cleared"`
}

// ClearOptions holds flags for the clear command.
type ClearOptions struct {
	All bool
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClearOptions{}

	cmd := &cobra.Command{
		Use:   "clear (<key>... | --all)",
		Short: "Remove persisted records",
		Long: `Remove persisted records so the next process start falls back to defaults.

Pass the keys to remove, or --all to remove every record the medium holds.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "remove every persisted record")

	return cmd
}

func runClear(rootOpts *RootOptions, opts *ClearOptions, keys []string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)
	switch {
	case opts.All && len(keys) > 0:
		return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeInput, errors.New("pass keys or --all, not both")))
	case !opts.All && len(keys) == 0:
		return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeInput, errors.New("no keys given (use --all to clear everything)")))
	}

	factory, release, err := openFactory(rootOpts, formatter)
	if err != nil {
		return formatter.Fail(err)
	}
	defer release()

	if opts.All {
		keys, err = factory.PersistedKeys(cmd.Context())
		if err != nil {
			return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeMedium, err))
		}
	}
	if len(keys) == 0 {
		return formatter.Success(ClearResult{Cleared: []string{}}, "nothing to clear\n")
	}

	if err := factory.ClearPersisted(cmd.Context(), keys...); err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeMedium, err))
	}

	var text strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&text, "cleared %s\n", key)
	}
	return formatter.Success(ClearResult{Cleared: keys}, text.String())
}
