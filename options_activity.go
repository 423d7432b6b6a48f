package uistate

import (
	"strings"

	"github.com/goliatone/go-uistate/pkg/activity"
)

// WithActivityHooks attaches activity hooks to the factory. Nil entries are
// dropped; with no usable hook nothing is emitted.
func WithActivityHooks(hooks activity.Hooks) FactoryOption {
	compacted := hooks.Compact()
	return func(cfg *factoryConfig) {
		cfg.hooks = compacted
	}
}

// WithActivityChannel sets the channel applied to emitted events.
func WithActivityChannel(channel string) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.channel = strings.TrimSpace(channel)
	}
}

// ActivityHooks returns a copy of the hooks the factory notifies.
func (f *Factory) ActivityHooks() activity.Hooks {
	if f == nil {
		return nil
	}
	return f.emitter.Hooks()
}

// emit reports event to the activity hooks. Hook failures are logged and
// never reach the caller.
func (f *Factory) emit(event activity.Event) {
	if err := f.emitter.Emit(f.cfg.ctx, event); err != nil {
		f.cfg.logger.WithError(err).WithField("verb", event.Verb).Debug("activity hook failed")
	}
}
