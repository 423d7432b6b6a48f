// Package usersink forwards activity events to a go-users ActivitySink.
package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-uistate/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts store and addon activity events to a go-users ActivitySink so
// persistence failures land in the same audit trail as user actions.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
// Incomplete events are dropped.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil || !event.Complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, Record(event))
}

// Record converts event into the go-users record shape. Store keys and
// metadata labels are copied into Data so sinks that index by Data can find
// them without parsing ObjectID.
func Record(event activity.Event) usertypes.ActivityRecord {
	normalized := activity.NormalizeEvent(event)
	data := make(map[string]any, len(normalized.Metadata)+3)
	for key, value := range normalized.Metadata {
		data[key] = value
	}

	switch normalized.ObjectType {
	case activity.ObjectTypeStore:
		data["store_key"] = normalized.ObjectID
	case activity.ObjectTypeAddon:
		data["metadata_label"] = normalized.ObjectID
	}
	if normalized.DefinitionCode != "" {
		data["definition_code"] = normalized.DefinitionCode
	}
	if len(normalized.Recipients) > 0 {
		data["recipients"] = append([]string{}, normalized.Recipients...)
	}

	return usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.ActorID),
		UserID:     parseUUID(normalized.UserID),
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       data,
		OccurredAt: normalized.OccurredAt,
	}
}

// parseUUID maps identifiers that are not UUIDs to uuid.Nil.
func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
