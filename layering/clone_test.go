package layering

import (
	"reflect"
	"testing"
	"time"
)

type cloneSample struct {
	Name    string
	Tags    []string
	Limits  map[string]int
	Nested  *cloneNested
	Extra   any
	Updated time.Time
}

type cloneNested struct {
	Enabled bool
	Items   []map[string]any
}

func TestCloneDetachesReferences(t *testing.T) {
	original := cloneSample{
		Name:   "theme",
		Tags:   []string{"a", "b"},
		Limits: map[string]int{"rows": 10},
		Nested: &cloneNested{
			Enabled: true,
			Items:   []map[string]any{{"k": "v"}},
		},
		Extra:   map[string]any{"inner": []any{1, 2}},
		Updated: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	cloned := Clone(original)
	if !reflect.DeepEqual(original, cloned) {
		t.Fatalf("clone mismatch:\nwant: %#v\n got: %#v", original, cloned)
	}

	cloned.Tags[0] = "changed"
	cloned.Limits["rows"] = 99
	cloned.Nested.Enabled = false
	cloned.Nested.Items[0]["k"] = "changed"
	cloned.Extra.(map[string]any)["inner"] = nil

	if original.Tags[0] != "a" {
		t.Fatalf("expected slice to be detached, got %v", original.Tags)
	}
	if original.Limits["rows"] != 10 {
		t.Fatalf("expected map to be detached, got %v", original.Limits)
	}
	if !original.Nested.Enabled || original.Nested.Items[0]["k"] != "v" {
		t.Fatalf("expected nested pointer to be detached, got %#v", original.Nested)
	}
	if original.Extra.(map[string]any)["inner"] == nil {
		t.Fatalf("expected interface payload to be detached")
	}
	if !original.Updated.Equal(cloned.Updated) {
		t.Fatalf("expected time value preserved, got %v", cloned.Updated)
	}
}

func TestCloneNilInterface(t *testing.T) {
	var value any
	if got := Clone(value); got != nil {
		t.Fatalf("expected nil, got %#v", got)
	}
}

func TestClonePreservesNilCollections(t *testing.T) {
	got := Clone(cloneSample{Name: "x"})
	if got.Tags != nil || got.Limits != nil || got.Nested != nil {
		t.Fatalf("expected nil collections to stay nil, got %#v", got)
	}
}
