package activity

import (
	"context"
	"errors"
	"testing"
)

func TestBuildStoreUpdatedEventIncludesMetadata(t *testing.T) {
	version := 2
	input := StoreEventInput{
		ActorID:  " actor ",
		Key:      " theme_store ",
		Version:  &version,
		Revision: 3,
		WriteID:  "w-1",
		Metadata: map[string]any{"custom": "value"},
		Channel:  " ui ",
	}

	event := BuildStoreUpdatedEvent(input)

	if event.Verb != VerbStoreUpdated {
		t.Fatalf("expected verb %s got %s", VerbStoreUpdated, event.Verb)
	}
	if event.ObjectType != ObjectTypeStore || event.ObjectID != "theme_store" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "actor" || event.Channel != "ui" {
		t.Fatalf("unexpected trimmed fields: %+v", event)
	}
	if event.Metadata["version"] != 2 || event.Metadata["revision"] != uint64(3) || event.Metadata["write_id"] != "w-1" {
		t.Fatalf("unexpected metadata: %+v", event.Metadata)
	}
	event.Metadata["custom"] = "changed"
	if input.Metadata["custom"] != "value" {
		t.Fatalf("expected input metadata untouched")
	}
}

func TestBuildPersistFailedEventCarriesError(t *testing.T) {
	event := BuildPersistFailedEvent(StoreEventInput{Key: "theme_store", Err: errors.New("quota exceeded")})
	if event.Verb != VerbStorePersistFailed {
		t.Fatalf("unexpected verb %s", event.Verb)
	}
	if event.Metadata["error"] != "quota exceeded" {
		t.Fatalf("expected error metadata, got %+v", event.Metadata)
	}
}

func TestBuildStoreCreatedEventWithoutMetadata(t *testing.T) {
	event := BuildStoreCreatedEvent(StoreEventInput{Key: "theme_store"})
	if event.Metadata != nil {
		t.Fatalf("expected nil metadata, got %+v", event.Metadata)
	}
}

func TestBuildAddonSkippedEvent(t *testing.T) {
	event := BuildAddonSkippedEvent(AddonEventInput{Key: 999, Index: 1, Mode: "card", Reason: "not_registered"})
	if event.ObjectType != ObjectTypeAddon || event.ObjectID != "999" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.DefinitionCode != "addon:not_registered" {
		t.Fatalf("unexpected definition code %q", event.DefinitionCode)
	}
	if event.Metadata["index"] != 1 || event.Metadata["mode"] != "card" {
		t.Fatalf("unexpected metadata: %+v", event.Metadata)
	}
}

func TestStoreEventsPassHookValidation(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	events := []Event{
		BuildStoreCreatedEvent(StoreEventInput{Key: "a", Source: "defaults"}),
		BuildRehydrateDiscardedEvent(StoreEventInput{Key: "a", Reason: "version_mismatch"}),
		BuildStoreClearedEvent(StoreEventInput{Key: "a"}),
	}
	for _, event := range events {
		if err := hooks.Notify(context.Background(), event); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	verbs := capture.Verbs()
	want := []string{VerbStoreCreated, VerbStoreRehydrateSkip, VerbStoreCleared}
	if len(verbs) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), verbs)
	}
	for i := range want {
		if verbs[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, verbs)
		}
	}
	if _, ok := capture.Find(VerbStoreCleared); !ok {
		t.Fatalf("expected cleared event to be captured")
	}
}
