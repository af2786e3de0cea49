package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Recording holds the schema definition for the Recording entity.
// Tracks the raw per-track blobs captured for a meeting (or uploaded
// standalone, in which case meeting_id is unset and status is "orphan").
type Recording struct {
	ent.Schema
}

// Fields of the Recording.
func (Recording) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("recording_id").
			Unique().
			Immutable(),
		field.String("meeting_id").
			Optional().
			Nillable(),
		field.String("bucket").
			Comment("Blob store bucket/container holding this recording's objects"),
		field.String("object_prefix").
			Comment("Key prefix; tracks live at {object_prefix}/{track_index}"),
		field.JSON("track_keys", []string{}).
			Optional().
			Comment("Object keys of each raw track, index-ordered"),
		field.Enum("status").
			Values("pending", "orphan", "active", "failed", "deleted").
			Default("pending"),
		field.Time("recorded_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Recording.
func (Recording) Edges() []ent.Edge {
	return nil
}

// Indexes of the Recording.
func (Recording) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("meeting_id"),
		index.Fields("status"),
	}
}

// The pairing of status='orphan' with meeting_id IS NULL is not enforced:
// this schema, the SQL migration and internal/store.RecordingStore carry
// no check of it.
