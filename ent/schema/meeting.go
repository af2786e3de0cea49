package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Meeting holds the schema definition for the Meeting entity. One
// occurrence of a room being in session, bounded by start/end.
type Meeting struct {
	ent.Schema
}

// Fields of the Meeting.
func (Meeting) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("meeting_id").
			Unique().
			Immutable(),
		field.String("room_id").
			Immutable(),
		field.String("transcript_id").
			Optional().
			Nillable(),
		field.Time("started_at").
			Default(time.Now).
			Immutable(),
		field.Time("ended_at").
			Optional().
			Nillable(),
	}
}

// Indexes of the Meeting.
func (Meeting) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("room_id", "started_at"),
		index.Fields("transcript_id"),
	}
}
