package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-uistate/internal/logging"
	"github.com/goliatone/go-uistate/pkg/activity"
	"github.com/goliatone/go-uistate/pkg/addon"
	"github.com/goliatone/go-uistate/pkg/addon/builtin"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	Mode   string
	Strict bool
}

// RenderResult holds rendered items and the ones that were skipped.
type RenderResult struct {
	Rendered []addon.Rendered `json:"rendered"`
	Skipped  []SkippedItem    `json:"skipped,omitempty"`
}

// SkippedItem is the printable form of an addon diagnostic.
type SkippedItem struct {
	Index    int          `json:"index"`
	Key      int          `json:"key"`
	Renderer string       `json:"renderer,omitempty"`
	Reason   addon.Reason `json:"reason"`
	Message  string       `json:"message,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render <metadata.json>",
		Short: "Render transaction metadata through the built-in addons",
		Long: `Render transaction metadata items with the registered addon renderers.

The file holds either an array of {"key": <label>, "json": <body>} items or
an object keyed by metadata label. Items without a renderer for the
requested mode are skipped and listed separately.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", string(addon.ModeFull), "render mode (full|summary)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit non-zero when any item is skipped")

	return cmd
}

func runRender(rootOpts *RootOptions, opts *RenderOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)
	if strings.TrimSpace(opts.Mode) == "" {
		return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeInput, fmt.Errorf("mode is required")))
	}

	cfg, err := loadConfig(rootOpts)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeConfig, err))
	}

	items, err := readItems(path)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeInput, err))
	}
	formatter.VerboseLog("loaded %d item(s) from %s", len(items), path)

	registryOpts := []addon.Option{addon.WithLogger(logging.New("addon", cfg.Logging))}
	if rootOpts.Verbose {
		registryOpts = append(registryOpts, addon.WithActivityHooks(activity.Hooks{formatter.ActivityHook()}, cfg.Activity.Channel))
	}
	registry := addon.NewRegistry(registryOpts...)
	if err := builtin.Register(registry); err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeGeneric, err))
	}

	rendered, diagnostics := registry.Resolve(cmd.Context(), items, addon.Mode(opts.Mode))
	result := RenderResult{Rendered: rendered}
	if result.Rendered == nil {
		result.Rendered = []addon.Rendered{}
	}
	for _, d := range diagnostics {
		result.Skipped = append(result.Skipped, SkippedItem{
			Index:    d.Index,
			Key:      d.Key,
			Renderer: d.Renderer,
			Reason:   d.Reason,
			Message:  d.Message(),
		})
	}

	text, err := formatRendered(rendered, diagnostics)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeGeneric, err))
	}
	if err := formatter.Success(result, text); err != nil {
		return err
	}
	if opts.Strict && len(diagnostics) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d item(s) skipped", ErrCodeSkipped, len(diagnostics)))
	}
	return nil
}

// readItems accepts an item array or an object keyed by numeric label.
func readItems(path string) ([]addon.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}

	if data[0] == '[' {
		var items []addon.Item
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return items, nil
	}

	var labelled map[string]any
	if err := json.Unmarshal(data, &labelled); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	items := make([]addon.Item, 0, len(labelled))
	for label, body := range labelled {
		key, err := strconv.Atoi(label)
		if err != nil {
			return nil, fmt.Errorf("parse %s: label %q is not numeric", path, label)
		}
		items = append(items, addon.Item{Key: key, JSON: body})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items, nil
}

func formatRendered(rendered []addon.Rendered, diagnostics []addon.Diagnostic) (string, error) {
	var b strings.Builder
	for _, r := range rendered {
		output, err := json.MarshalIndent(r.Output, "", "  ")
		if err != nil {
			return "", fmt.Errorf("format item %d: %w", r.Index, err)
		}
		fmt.Fprintf(&b, "[%d] %d %s (%s)\n%s\n", r.Index, r.Key, r.Renderer, r.Mode, output)
	}
	for _, d := range diagnostics {
		fmt.Fprintf(&b, "skipped %s\n", d.String())
	}
	if b.Len() == 0 {
		b.WriteString("no items\n")
	}
	return b.String(), nil
}
