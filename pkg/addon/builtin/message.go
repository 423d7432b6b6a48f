package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-uistate/pkg/addon"
	"github.com/mitchellh/mapstructure"
)

// Message is a decoded CIP-20 message.
type Message struct {
	Lines []string `json:"lines" mapstructure:"msg"`
}

// MessageSummary is the one-line form of a message.
type MessageSummary struct {
	Text      string `json:"text"`
	Truncated bool   `json:"truncated"`
}

const messageSchema = `{
  "type": "object",
  "required": ["msg"],
  "properties": {
    "msg": {
      "type": "array",
      "items": {"type": "string", "maxLength": 64}
    }
  }
}`

// MessageRenderer renders label 674 messages.
type MessageRenderer struct{}

func (MessageRenderer) Name() string { return "cip20-message" }

func (MessageRenderer) Modes() []addon.Mode {
	return []addon.Mode{addon.ModeFull, addon.ModeSummary}
}

func (MessageRenderer) MetadataSchema() []byte {
	return []byte(messageSchema)
}

func (MessageRenderer) Render(_ context.Context, item addon.Item, mode addon.Mode) (any, error) {
	var message Message
	if err := mapstructure.Decode(item.JSON, &message); err != nil {
		return nil, fmt.Errorf("builtin: decode message: %w", err)
	}
	if mode == addon.ModeSummary {
		summary := MessageSummary{Truncated: len(message.Lines) > 1}
		if len(message.Lines) > 0 {
			summary.Text = strings.TrimSpace(message.Lines[0])
		}
		return summary, nil
	}
	return message, nil
}
