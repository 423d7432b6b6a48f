// Package builtin provides renderers for common Cardano transaction metadata
// labels.
package builtin

import (
	"context"
	"errors"

	"github.com/goliatone/go-uistate/pkg/addon"
)

const (
	// LabelMessage is the CIP-20 transaction message label.
	LabelMessage = 674
	// LabelNFT is the CIP-25 NFT metadata label.
	LabelNFT = 721
)

// Register adds lazy loaders for every built-in renderer.
func Register(r *addon.Registry) error {
	return errors.Join(
		r.Register(LabelMessage, func(context.Context) (addon.Renderer, error) {
			return MessageRenderer{}, nil
		}),
		r.Register(LabelNFT, func(context.Context) (addon.Renderer, error) {
			return NFTRenderer{}, nil
		}),
	)
}
