// Package addon resolves on-chain metadata items to pluggable renderers keyed
// by the numeric metadata label.
//
// Renderers are registered explicitly, usually as lazy loaders. Resolve walks
// the items in order and renders each one whose renderer exists and supports
// the requested mode. Items that cannot be rendered are left out of the
// output and reported as diagnostics; one failing item never stops the rest.
package addon

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey indicates a renderer is already registered for the key.
	ErrDuplicateKey = errors.New("addon: key already registered")
	// ErrNilLoader indicates Register received a nil loader or renderer.
	ErrNilLoader = errors.New("addon: loader is required")
	// ErrNilRenderer indicates a loader returned neither a renderer nor an error.
	ErrNilRenderer = errors.New("addon: loader returned no renderer")
)

// Mode selects how a renderer presents an item.
type Mode string

const (
	ModeFull    Mode = "full"
	ModeSummary Mode = "summary"
)

// Item is one metadata entry: the numeric label and its JSON body.
type Item struct {
	Key  int `json:"key"`
	JSON any `json:"json"`
}

// Renderer turns a metadata item into presentation data.
type Renderer interface {
	Name() string
	Modes() []Mode
	Render(ctx context.Context, item Item, mode Mode) (any, error)
}

// SchemaProvider is implemented by renderers that want item JSON validated
// before Render is called.
type SchemaProvider interface {
	MetadataSchema() []byte
}

// Loader builds a renderer on first use. A failed load is not cached.
type Loader func(ctx context.Context) (Renderer, error)

// Static wraps an already constructed renderer as a Loader.
func Static(renderer Renderer) Loader {
	return func(context.Context) (Renderer, error) {
		return renderer, nil
	}
}

// Rendered is the output for one item.
type Rendered struct {
	Index    int    `json:"index"`
	Key      int    `json:"key"`
	Renderer string `json:"renderer"`
	Mode     Mode   `json:"mode"`
	Output   any    `json:"output"`
}

// Reason classifies why an item produced no output.
type Reason string

const (
	ReasonNotRegistered   Reason = "not_registered"
	ReasonLoadFailed      Reason = "load_failed"
	ReasonModeUnsupported Reason = "mode_unsupported"
	ReasonInvalidMetadata Reason = "invalid_metadata"
	ReasonRenderFailed    Reason = "render_failed"
	ReasonCanceled        Reason = "canceled"
)

// Diagnostic describes an item that was skipped.
type Diagnostic struct {
	Index    int    `json:"index"`
	Key      int    `json:"key"`
	Mode     Mode   `json:"mode"`
	Renderer string `json:"renderer,omitempty"`
	Reason   Reason `json:"reason"`
	Err      error  `json:"-"`
}

func (d Diagnostic) String() string {
	if d.Err == nil {
		return fmt.Sprintf("item %d (key %d): %s", d.Index, d.Key, d.Reason)
	}
	return fmt.Sprintf("item %d (key %d): %s: %v", d.Index, d.Key, d.Reason, d.Err)
}

// Message returns the error text, or "" when there is none.
func (d Diagnostic) Message() string {
	if d.Err == nil {
		return ""
	}
	return d.Err.Error()
}
