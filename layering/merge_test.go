package layering

import (
	"reflect"
	"testing"
)

type mergeSettings struct {
	Driver string
	Path   string
	Level  string
	Labels map[string]string
	Hosts  []string
}

func TestMergeLayersFillsMissingFromWeaker(t *testing.T) {
	strong := mergeSettings{Driver: "sqlite", Labels: map[string]string{"env": "prod"}}
	middle := mergeSettings{Path: "/var/lib/ui.db", Labels: map[string]string{"team": "web"}}
	weak := mergeSettings{Driver: "memory", Path: "ignored", Level: "info", Hosts: []string{"a"}}

	got := MergeLayers(strong, middle, weak)
	want := mergeSettings{
		Driver: "sqlite",
		Path:   "/var/lib/ui.db",
		Level:  "info",
		Labels: map[string]string{"env": "prod", "team": "web"},
		Hosts:  []string{"a"},
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("merged snapshot mismatch:\nwant: %#v\n got: %#v", want, got)
	}
}

func TestMergeLayersDoesNotAliasInputs(t *testing.T) {
	weak := mergeSettings{Hosts: []string{"a"}}
	got := MergeLayers(mergeSettings{}, weak)
	got.Hosts[0] = "changed"
	if weak.Hosts[0] != "a" {
		t.Fatalf("expected weak layer untouched, got %v", weak.Hosts)
	}
}

func TestMergeLayersZeroInput(t *testing.T) {
	type sample struct {
		Value int
	}
	var zero sample
	if got := MergeLayers[sample](); got != zero {
		t.Fatalf("expected MergeLayers() to return zero value, got %+v", got)
	}
}

func TestMergeLayersKeepsExplicitZeroPointer(t *testing.T) {
	type toggles struct {
		Cache   *bool
		Enabled *bool
	}
	off, on := false, true

	got := MergeLayers(toggles{Cache: &off}, toggles{Cache: &on, Enabled: &on})
	if got.Cache == nil || *got.Cache {
		t.Fatalf("expected explicit false to win, got %v", got.Cache)
	}
	if got.Enabled == nil || !*got.Enabled {
		t.Fatalf("expected enabled filled from weaker layer, got %v", got.Enabled)
	}
	if got.Cache == &off {
		t.Fatalf("expected merged pointer to be detached")
	}
}

func TestMergeLayersFillsNestedPlainMaps(t *testing.T) {
	strong := map[string]any{"theme": map[string]any{"mode": "dark"}}
	weak := map[string]any{
		"theme":  map[string]any{"mode": "light", "accent": "teal"},
		"layout": "grid",
	}

	got := MergeLayers(strong, weak)
	want := map[string]any{
		"theme":  map[string]any{"mode": "dark", "accent": "teal"},
		"layout": "grid",
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("merged map mismatch:\nwant: %#v\n got: %#v", want, got)
	}
	if _, ok := strong["theme"].(map[string]any)["accent"]; ok {
		t.Fatalf("expected strongest layer untouched, got %#v", strong)
	}
}
