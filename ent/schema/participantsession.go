package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ParticipantSession holds the schema definition for the
// ParticipantSession entity. One participant's attendance span within a
// meeting. left_at is mutable in this schema, and nothing in
// internal/store writes it or rejects overwriting a non-nil value.
type ParticipantSession struct {
	ent.Schema
}

// Fields of the ParticipantSession.
func (ParticipantSession) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("participant_session_id").
			Unique().
			Immutable(),
		field.String("meeting_id").
			Immutable(),
		field.String("user_id").
			Immutable(),
		field.Int("track_index").
			Optional().
			Nillable().
			Comment("Index into the recording's tracks, assigned on join"),
		field.Time("joined_at").
			Default(time.Now).
			Immutable(),
		field.Time("left_at").
			Optional().
			Nillable().
			Comment("Departure time; not guarded against being overwritten"),
	}
}

// Indexes of the ParticipantSession.
func (ParticipantSession) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("meeting_id", "user_id"),
	}
}
