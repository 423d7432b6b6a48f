package builtin

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/goliatone/go-uistate/pkg/addon"
	"github.com/mitchellh/mapstructure"
)

// NFTCard describes one CIP-25 asset.
type NFTCard struct {
	PolicyID    string `json:"policy_id" mapstructure:"-"`
	AssetName   string `json:"asset_name" mapstructure:"-"`
	Name        string `json:"name" mapstructure:"name"`
	Image       string `json:"image" mapstructure:"image"`
	MediaType   string `json:"media_type,omitempty" mapstructure:"mediaType"`
	Description string `json:"description,omitempty" mapstructure:"description"`
}

// NFTSummary is the compact form of a 721 item.
type NFTSummary struct {
	Count int      `json:"count"`
	Names []string `json:"names"`
}

// NFTRenderer renders label 721 NFT metadata.
type NFTRenderer struct{}

func (NFTRenderer) Name() string { return "cip25-nft" }

func (NFTRenderer) Modes() []addon.Mode {
	return []addon.Mode{addon.ModeFull, addon.ModeSummary}
}

func (NFTRenderer) Render(_ context.Context, item addon.Item, mode addon.Mode) (any, error) {
	cards, err := decodeNFTs(item.JSON)
	if err != nil {
		return nil, err
	}
	if mode == addon.ModeSummary {
		summary := NFTSummary{Count: len(cards), Names: make([]string, 0, len(cards))}
		for _, card := range cards {
			summary.Names = append(summary.Names, card.Name)
		}
		return summary, nil
	}
	return cards, nil
}

// decodeNFTs walks policy id → asset name → asset fields. The top-level
// "version" entry is not a policy and is ignored. Cards are sorted by policy
// then asset so output is stable.
func decodeNFTs(raw any) ([]NFTCard, error) {
	policies, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("builtin: nft metadata must be an object, got %T", raw)
	}
	var cards []NFTCard
	for policyID, assetsRaw := range policies {
		if policyID == "version" {
			continue
		}
		assets, ok := assetsRaw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("builtin: policy %s must be an object", policyID)
		}
		for assetName, fields := range assets {
			card := NFTCard{PolicyID: policyID, AssetName: assetName}
			decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				DecodeHook:       mapstructure.DecodeHookFuncType(joinChunks),
				WeaklyTypedInput: true,
				Result:           &card,
			})
			if err != nil {
				return nil, fmt.Errorf("builtin: nft decoder: %w", err)
			}
			if err := decoder.Decode(fields); err != nil {
				return nil, fmt.Errorf("builtin: decode asset %s.%s: %w", policyID, assetName, err)
			}
			if card.Name == "" {
				card.Name = assetName
			}
			cards = append(cards, card)
		}
	}
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].PolicyID != cards[j].PolicyID {
			return cards[i].PolicyID < cards[j].PolicyID
		}
		return cards[i].AssetName < cards[j].AssetName
	})
	return cards, nil
}

// joinChunks concatenates string arrays into one string. CIP-25 splits
// values longer than 64 bytes, image URIs in particular, into chunks.
func joinChunks(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String || from.Kind() != reflect.Slice {
		return data, nil
	}
	chunks, ok := data.([]any)
	if !ok {
		return data, nil
	}
	var b strings.Builder
	for _, chunk := range chunks {
		s, ok := chunk.(string)
		if !ok {
			return nil, fmt.Errorf("chunk %v is not a string", chunk)
		}
		b.WriteString(s)
	}
	return b.String(), nil
}
