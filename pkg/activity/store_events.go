package activity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	VerbStoreCreated       = "store.created"
	VerbStoreUpdated       = "store.updated"
	VerbStorePersistFailed = "store.persist_failed"
	VerbStoreRehydrateSkip = "store.rehydrate_discarded"
	VerbStoreCleared       = "store.cleared"
	VerbAddonSkipped       = "addon.skipped"

	ObjectTypeStore = "store"
	ObjectTypeAddon = "addon"
)

// StoreEventInput describes the common fields for store lifecycle events.
type StoreEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	Channel    string
	Key        string
	Version    *int
	Revision   uint64
	WriteID    string
	Source     string
	Reason     string
	Err        error
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildStoreCreatedEvent reports a store entering the registry. Source is
// "persisted", "migrated", "defaults" or "ephemeral".
func BuildStoreCreatedEvent(input StoreEventInput) Event {
	return buildStoreEvent(VerbStoreCreated, input)
}

// BuildStoreUpdatedEvent reports a committed mutation.
func BuildStoreUpdatedEvent(input StoreEventInput) Event {
	return buildStoreEvent(VerbStoreUpdated, input)
}

// BuildPersistFailedEvent reports a write-through the medium rejected. The
// in-memory state stays authoritative.
func BuildPersistFailedEvent(input StoreEventInput) Event {
	return buildStoreEvent(VerbStorePersistFailed, input)
}

// BuildRehydrateDiscardedEvent reports a stored record that was ignored in
// favour of defaults.
func BuildRehydrateDiscardedEvent(input StoreEventInput) Event {
	return buildStoreEvent(VerbStoreRehydrateSkip, input)
}

// BuildStoreClearedEvent reports a persisted record removed from the medium.
func BuildStoreClearedEvent(input StoreEventInput) Event {
	return buildStoreEvent(VerbStoreCleared, input)
}

func buildStoreEvent(verb string, input StoreEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Version != nil {
		metadata = ensureMetadata(metadata)
		metadata["version"] = *input.Version
	}
	if input.Revision > 0 {
		metadata = ensureMetadata(metadata)
		metadata["revision"] = input.Revision
	}
	if input.WriteID != "" {
		metadata = ensureMetadata(metadata)
		metadata["write_id"] = input.WriteID
	}
	if input.Source != "" {
		metadata = ensureMetadata(metadata)
		metadata["source"] = input.Source
	}
	if input.Reason != "" {
		metadata = ensureMetadata(metadata)
		metadata["reason"] = input.Reason
	}
	if input.Err != nil {
		metadata = ensureMetadata(metadata)
		metadata["error"] = input.Err.Error()
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectTypeStore,
		ObjectID:   strings.TrimSpace(input.Key),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// AddonEventInput describes a metadata item the addon registry skipped.
type AddonEventInput struct {
	Channel    string
	Key        int
	Index      int
	Mode       string
	Renderer   string
	Reason     string
	Err        error
	OccurredAt time.Time
}

// BuildAddonSkippedEvent reports an item that produced no rendered output.
func BuildAddonSkippedEvent(input AddonEventInput) Event {
	metadata := map[string]any{
		"index": input.Index,
		"mode":  input.Mode,
	}
	if input.Renderer != "" {
		metadata["renderer"] = input.Renderer
	}
	if input.Reason != "" {
		metadata["reason"] = input.Reason
	}
	if input.Err != nil {
		metadata["error"] = input.Err.Error()
	}
	return Event{
		Verb:           VerbAddonSkipped,
		ObjectType:     ObjectTypeAddon,
		ObjectID:       strconv.Itoa(input.Key),
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: fmt.Sprintf("addon:%s", input.Reason),
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
