package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-uistate/pkg/medium"
)

// RecordResult is the printable form of a persisted record.
type RecordResult struct {
	Key       string    `json:"key"`
	Version   *int      `json:"version,omitempty"`
	WriteID   string    `json:"write_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	State     any       `json:"state"`
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <key>",
		Short:         "Print the record persisted under key",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], cmd)
		},
	}
}

func runGet(opts *RootOptions, key string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	factory, release, err := openFactory(opts, formatter)
	if err != nil {
		return formatter.Fail(err)
	}
	defer release()

	record, ok, err := factory.Record(cmd.Context(), key)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeMedium, err))
	}
	if !ok {
		return formatter.Fail(WrapExitError(ExitFailure, ErrCodeNotFound, fmt.Errorf("no record for key %q", key)))
	}

	result := RecordResult{
		Key:       record.Key,
		Version:   record.Version,
		WriteID:   record.WriteID,
		UpdatedAt: record.UpdatedAt,
		State:     record.State,
	}
	text, err := formatRecord(record)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeGeneric, err))
	}
	return formatter.Success(result, text)
}

func formatRecord(record medium.Record) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "key:        %s\n", record.Key)
	if record.HasVersion() {
		fmt.Fprintf(&b, "version:    %d\n", *record.Version)
	} else {
		b.WriteString("version:    -\n")
	}
	if record.WriteID != "" {
		fmt.Fprintf(&b, "write_id:   %s\n", record.WriteID)
	}
	if !record.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "updated_at: %s\n", record.UpdatedAt.Format(time.RFC3339))
	}
	state, err := json.MarshalIndent(record.State, "", "  ")
	if err != nil {
		return "", fmt.Errorf("format state: %w", err)
	}
	b.WriteString("state:\n")
	b.Write(state)
	b.WriteByte('\n')
	return b.String(), nil
}
