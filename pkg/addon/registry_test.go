package addon_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-uistate/pkg/activity"
	"github.com/goliatone/go-uistate/pkg/addon"
)

type stubRenderer struct {
	name   string
	modes  []addon.Mode
	schema string
	render func(item addon.Item, mode addon.Mode) (any, error)
}

func (s stubRenderer) Name() string        { return s.name }
func (s stubRenderer) Modes() []addon.Mode { return s.modes }

func (s stubRenderer) Render(_ context.Context, item addon.Item, mode addon.Mode) (any, error) {
	if s.render == nil {
		return map[string]any{"key": item.Key, "mode": string(mode)}, nil
	}
	return s.render(item, mode)
}

type schemaRenderer struct {
	stubRenderer
}

func (s schemaRenderer) MetadataSchema() []byte { return []byte(s.schema) }

func fullRenderer(name string) stubRenderer {
	return stubRenderer{name: name, modes: []addon.Mode{addon.ModeFull}}
}

func TestResolveSkipsUnregisteredKeys(t *testing.T) {
	registry := addon.NewRegistry()
	require.NoError(t, registry.RegisterRenderer(1, fullRenderer("one")))

	items := []addon.Item{
		{Key: 1, JSON: map[string]any{}},
		{Key: 999, JSON: map[string]any{}},
	}
	rendered, diagnostics := registry.Resolve(context.Background(), items, addon.ModeFull)

	require.Len(t, rendered, 1)
	assert.Equal(t, 1, rendered[0].Key)
	assert.Equal(t, 0, rendered[0].Index)
	assert.Equal(t, "one", rendered[0].Renderer)

	require.Len(t, diagnostics, 1)
	assert.Equal(t, 999, diagnostics[0].Key)
	assert.Equal(t, 1, diagnostics[0].Index)
	assert.Equal(t, addon.ReasonNotRegistered, diagnostics[0].Reason)
}

func TestResolvePreservesInputOrder(t *testing.T) {
	registry := addon.NewRegistry()
	require.NoError(t, registry.RegisterRenderer(1, fullRenderer("one")))
	require.NoError(t, registry.RegisterRenderer(2, fullRenderer("two")))

	items := []addon.Item{{Key: 2}, {Key: 7}, {Key: 1}, {Key: 2}}
	rendered, diagnostics := registry.Resolve(context.Background(), items, addon.ModeFull)

	require.Len(t, rendered, 3)
	assert.Equal(t, []int{0, 2, 3}, []int{rendered[0].Index, rendered[1].Index, rendered[2].Index})
	assert.Equal(t, []string{"two", "one", "two"}, []string{rendered[0].Renderer, rendered[1].Renderer, rendered[2].Renderer})
	require.Len(t, diagnostics, 1)
	assert.Equal(t, 1, diagnostics[0].Index)
}

func TestResolveSkipsUnsupportedMode(t *testing.T) {
	registry := addon.NewRegistry()
	require.NoError(t, registry.RegisterRenderer(1, fullRenderer("one")))

	rendered, diagnostics := registry.Resolve(context.Background(), []addon.Item{{Key: 1}}, addon.ModeSummary)
	assert.Empty(t, rendered)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, addon.ReasonModeUnsupported, diagnostics[0].Reason)
	assert.Equal(t, "one", diagnostics[0].Renderer)
}

func TestLoaderRunsOnceAfterSuccess(t *testing.T) {
	registry := addon.NewRegistry()
	calls := 0
	require.NoError(t, registry.Register(1, func(context.Context) (addon.Renderer, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("not yet")
		}
		return fullRenderer("lazy"), nil
	}))
	assert.Zero(t, calls)

	items := []addon.Item{{Key: 1}}
	rendered, diagnostics := registry.Resolve(context.Background(), items, addon.ModeFull)
	assert.Empty(t, rendered)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, addon.ReasonLoadFailed, diagnostics[0].Reason)
	assert.Contains(t, diagnostics[0].Message(), "not yet")

	for i := 0; i < 3; i++ {
		rendered, diagnostics = registry.Resolve(context.Background(), items, addon.ModeFull)
		require.Len(t, rendered, 1)
		assert.Empty(t, diagnostics)
	}
	assert.Equal(t, 2, calls)
}

func TestLoaderReturningNilRenderer(t *testing.T) {
	registry := addon.NewRegistry()
	require.NoError(t, registry.Register(1, func(context.Context) (addon.Renderer, error) { return nil, nil }))

	_, err := registry.Renderer(context.Background(), 1)
	require.ErrorIs(t, err, addon.ErrNilRenderer)
}

func TestRenderFailuresAreIsolated(t *testing.T) {
	registry := addon.NewRegistry()
	failing := fullRenderer("failing")
	failing.render = func(addon.Item, addon.Mode) (any, error) { return nil, errors.New("bad json") }
	panicking := fullRenderer("panicking")
	panicking.render = func(addon.Item, addon.Mode) (any, error) { panic("boom") }
	require.NoError(t, registry.RegisterRenderer(1, failing))
	require.NoError(t, registry.RegisterRenderer(2, panicking))
	require.NoError(t, registry.RegisterRenderer(3, fullRenderer("ok")))
	require.NoError(t, registry.Register(4, func(context.Context) (addon.Renderer, error) { panic("loader boom") }))

	items := []addon.Item{{Key: 1}, {Key: 2}, {Key: 4}, {Key: 3}}
	rendered, diagnostics := registry.Resolve(context.Background(), items, addon.ModeFull)

	require.Len(t, rendered, 1)
	assert.Equal(t, 3, rendered[0].Key)
	require.Len(t, diagnostics, 3)
	assert.Equal(t, addon.ReasonRenderFailed, diagnostics[0].Reason)
	assert.Equal(t, addon.ReasonRenderFailed, diagnostics[1].Reason)
	assert.Contains(t, diagnostics[1].Message(), "panicked")
	assert.Equal(t, addon.ReasonLoadFailed, diagnostics[2].Reason)
	assert.Contains(t, diagnostics[2].String(), "loader boom")
}

func TestMetadataSchemaRejectsItems(t *testing.T) {
	registry := addon.NewRegistry()
	renderer := schemaRenderer{stubRenderer: fullRenderer("validated")}
	renderer.schema = `{"type":"object","required":["msg"]}`
	require.NoError(t, registry.RegisterRenderer(674, renderer))

	items := []addon.Item{
		{Key: 674, JSON: map[string]any{"other": true}},
		{Key: 674, JSON: map[string]any{"msg": []any{"hi"}}},
	}
	rendered, diagnostics := registry.Resolve(context.Background(), items, addon.ModeFull)

	require.Len(t, rendered, 1)
	assert.Equal(t, 1, rendered[0].Index)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, addon.ReasonInvalidMetadata, diagnostics[0].Reason)
}

func TestInvalidSchemaFailsLoad(t *testing.T) {
	registry := addon.NewRegistry()
	renderer := schemaRenderer{stubRenderer: fullRenderer("broken")}
	renderer.schema = `{"type": 12}`
	require.NoError(t, registry.RegisterRenderer(1, renderer))

	_, diagnostics := registry.Resolve(context.Background(), []addon.Item{{Key: 1}}, addon.ModeFull)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, addon.ReasonLoadFailed, diagnostics[0].Reason)
}

func TestResolveStopsWhenCanceled(t *testing.T) {
	registry := addon.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	cancelling := fullRenderer("cancelling")
	cancelling.render = func(addon.Item, addon.Mode) (any, error) {
		cancel()
		return "done", nil
	}
	require.NoError(t, registry.RegisterRenderer(1, cancelling))

	rendered, diagnostics := registry.Resolve(ctx, []addon.Item{{Key: 1}, {Key: 1}, {Key: 5}}, addon.ModeFull)
	require.Len(t, rendered, 1)
	require.Len(t, diagnostics, 2)
	for _, diagnostic := range diagnostics {
		assert.Equal(t, addon.ReasonCanceled, diagnostic.Reason)
		assert.ErrorIs(t, diagnostic.Err, context.Canceled)
	}
}

func TestRegisterGuards(t *testing.T) {
	registry := addon.NewRegistry()
	require.ErrorIs(t, registry.Register(1, nil), addon.ErrNilLoader)
	require.ErrorIs(t, registry.RegisterRenderer(1, nil), addon.ErrNilLoader)
	require.NoError(t, registry.RegisterRenderer(721, fullRenderer("nft")))
	require.NoError(t, registry.RegisterRenderer(674, fullRenderer("msg")))
	require.ErrorIs(t, registry.RegisterRenderer(721, fullRenderer("again")), addon.ErrDuplicateKey)
	assert.Equal(t, []int{674, 721}, registry.Keys())

	_, err := registry.Renderer(context.Background(), 1)
	require.Error(t, err)
}

func TestSkipsEmitActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	fixed := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	registry := addon.NewRegistry(
		addon.WithActivityHooks(activity.Hooks{capture}, "addons"),
		addon.WithClock(func() time.Time { return fixed }),
	)
	require.NoError(t, registry.RegisterRenderer(1, fullRenderer("one")))

	registry.Resolve(context.Background(), []addon.Item{{Key: 1}, {Key: 999}}, addon.ModeFull)

	require.Len(t, capture.Events, 1)
	event := capture.Events[0]
	assert.Equal(t, activity.VerbAddonSkipped, event.Verb)
	assert.Equal(t, "999", event.ObjectID)
	assert.Equal(t, "addons", event.Channel)
	assert.Equal(t, "addon:not_registered", event.DefinitionCode)
	assert.Equal(t, fixed, event.OccurredAt)
}

type explodingModesRenderer struct {
	stubRenderer
}

func (explodingModesRenderer) Modes() []addon.Mode { panic("modes exploded") }

func TestMisbehavingRendererMetadataIsIsolated(t *testing.T) {
	registry := addon.NewRegistry()
	var typedNil *stubRenderer
	require.NoError(t, registry.RegisterRenderer(2, explodingModesRenderer{fullRenderer("exploding")}))
	require.NoError(t, registry.RegisterRenderer(3, typedNil))
	require.NoError(t, registry.RegisterRenderer(1, fullRenderer("ok")))

	items := []addon.Item{{Key: 2}, {Key: 3}, {Key: 1}}
	var (
		rendered    []addon.Rendered
		diagnostics []addon.Diagnostic
	)
	require.NotPanics(t, func() {
		rendered, diagnostics = registry.Resolve(context.Background(), items, addon.ModeFull)
	})

	require.Len(t, rendered, 1)
	assert.Equal(t, 1, rendered[0].Key)
	require.Len(t, diagnostics, 2)
	assert.Equal(t, addon.ReasonLoadFailed, diagnostics[0].Reason)
	assert.Contains(t, diagnostics[0].String(), "modes exploded")
	assert.Equal(t, addon.ReasonLoadFailed, diagnostics[1].Reason)
}
