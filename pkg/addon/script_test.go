package addon_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-uistate/pkg/addon"
)

const greetingScript = `
var modes = ["full", "summary"];

function render(json, mode) {
  if (mode === "summary") {
    return json.name;
  }
  return { title: "Hello " + json.name, tags: json.tags.length };
}
`

func TestScriptRendererRendersModes(t *testing.T) {
	renderer, err := addon.NewScriptRenderer("greeting.js", greetingScript)
	require.NoError(t, err)
	assert.Equal(t, "greeting.js", renderer.Name())
	assert.Equal(t, []addon.Mode{addon.ModeFull, addon.ModeSummary}, renderer.Modes())

	item := addon.Item{Key: 42, JSON: map[string]any{"name": "Ada", "tags": []any{"a", "b"}}}
	out, err := renderer.Render(context.Background(), item, addon.ModeFull)
	require.NoError(t, err)
	full, ok := out.(map[string]any)
	require.True(t, ok, "expected object output, got %T", out)
	assert.Equal(t, "Hello Ada", full["title"])
	assert.EqualValues(t, 2, full["tags"])

	out, err = renderer.Render(context.Background(), item, addon.ModeSummary)
	require.NoError(t, err)
	assert.Equal(t, "Ada", out)
}

func TestScriptRendererRejectsBadScripts(t *testing.T) {
	cases := map[string]string{
		"syntax":       `var modes = [;`,
		"no modes":     `function render() { return 1; }`,
		"modes object": `var modes = {full: true}; function render() {}`,
		"no render":    `var modes = ["full"];`,
		"mode type":    `var modes = [1]; function render() {}`,
	}
	for name, source := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := addon.NewScriptRenderer(name, source)
			require.Error(t, err)
		})
	}
}

func TestScriptRendererThrowsBecomeDiagnostics(t *testing.T) {
	registry := addon.NewRegistry()
	require.NoError(t, registry.Register(7, addon.ScriptLoader("throws.js", `
var modes = ["full"];
function render(json) { throw new Error("cannot render " + json.id); }
`)))
	require.NoError(t, registry.Register(8, addon.ScriptLoader("greeting.js", greetingScript)))

	items := []addon.Item{
		{Key: 7, JSON: map[string]any{"id": "x"}},
		{Key: 8, JSON: map[string]any{"name": "Grace", "tags": []any{}}},
	}
	rendered, diagnostics := registry.Resolve(context.Background(), items, addon.ModeFull)

	require.Len(t, rendered, 1)
	assert.Equal(t, 8, rendered[0].Key)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, addon.ReasonRenderFailed, diagnostics[0].Reason)
	assert.Contains(t, diagnostics[0].Message(), "cannot render x")
}

func TestScriptLoaderCompileErrorIsLoadFailure(t *testing.T) {
	registry := addon.NewRegistry()
	require.NoError(t, registry.Register(7, addon.ScriptLoader("broken.js", `var modes = [;`)))

	_, diagnostics := registry.Resolve(context.Background(), []addon.Item{{Key: 7}}, addon.ModeFull)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, addon.ReasonLoadFailed, diagnostics[0].Reason)
}

func TestScriptRendererInterruptedByContext(t *testing.T) {
	renderer, err := addon.NewScriptRenderer("spin.js", `
var modes = ["full"];
function render() { while (true) {} }
`)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = renderer.Render(ctx, addon.Item{Key: 1}, addon.ModeFull)
	require.Error(t, err)
}
