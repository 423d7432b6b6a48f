package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// KeysResult lists the keys the medium holds records for.
type KeysResult struct {
	Keys []string `json:"keys"`
}

// NewKeysCommand creates the keys command.
func NewKeysCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "keys",
		Short:         "List persisted store keys",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeys(rootOpts, cmd)
		},
	}
}

func runKeys(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	factory, release, err := openFactory(opts, formatter)
	if err != nil {
		return formatter.Fail(err)
	}
	defer release()

	keys, err := factory.PersistedKeys(cmd.Context())
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeMedium, err))
	}
	if keys == nil {
		keys = []string{}
	}

	var text strings.Builder
	for _, key := range keys {
		text.WriteString(key)
		text.WriteByte('\n')
	}
	return formatter.Success(KeysResult{Keys: keys}, text.String())
}
