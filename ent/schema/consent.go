package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Consent holds the schema definition for the Consent entity. Tracks
// whether a meeting participant declined to be recorded/transcribed;
// consulted by the cleanup_consent workflow step.
type Consent struct {
	ent.Schema
}

// Fields of the Consent.
func (Consent) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("consent_id").
			Unique().
			Immutable(),
		field.String("meeting_id").
			Immutable(),
		field.String("user_id").
			Immutable(),
		field.Bool("declined").
			Default(false),
		field.Time("recorded_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Indexes of the Consent.
func (Consent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("meeting_id", "user_id").
			Unique(),
	}
}
