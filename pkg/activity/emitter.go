package activity

import (
	"context"
	"strings"
	"time"
)

// DefaultChannel is applied to events emitted without a channel.
const DefaultChannel = "uistate"

// Config controls whether events are emitted and on which channel.
type Config struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Channel string `yaml:"channel" toml:"channel"`
}

// Emitter stamps the channel and time onto events and forwards them to
// hooks. A nil Emitter is disabled.
type Emitter struct {
	hooks   Hooks
	channel string
	now     func() time.Time
}

// NewEmitter builds an emitter over hooks. It is disabled when cfg.Enabled is
// false or hooks holds no usable hook. now defaults to time.Now.
func NewEmitter(hooks Hooks, cfg Config, now func() time.Time) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	if now == nil {
		now = time.Now
	}
	e := &Emitter{channel: channel, now: now}
	if cfg.Enabled {
		e.hooks = hooks.Compact()
	}
	return e
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && len(e.hooks) > 0
}

// Channel returns the channel applied to events without one.
func (e *Emitter) Channel() string {
	if e == nil {
		return DefaultChannel
	}
	return e.channel
}

// Hooks returns a copy of the hooks the emitter notifies.
func (e *Emitter) Hooks() Hooks {
	if e == nil {
		return nil
	}
	return e.hooks.Compact()
}

// Emit forwards event to the hooks. Missing channel and OccurredAt are
// filled in first.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.now()
	}
	return e.hooks.Notify(ctx, event)
}
