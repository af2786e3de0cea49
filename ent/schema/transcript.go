package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Transcript holds the schema definition for the Transcript entity.
// The central annotated-transcript record produced by the diarization
// workflow: status, change sequence, and the progressively-filled
// title/summary/topic/webvtt fields.
type Transcript struct {
	ent.Schema
}

// Fields of the Transcript.
func (Transcript) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("transcript_id").
			Unique().
			Immutable(),
		field.String("user_id").
			Optional().
			Nillable().
			Comment("Owner, if any"),
		field.String("room_id").
			Optional().
			Nillable().
			Comment("Owning meeting room, if recorded in one"),
		field.Enum("status").
			Values("idle", "recording", "processing", "ended", "error").
			Default("idle"),
		field.Int64("change_seq").
			Default(0).
			Comment("Monotonic sequence bumped by every mutation, never reset"),
		field.String("title").
			Optional().
			Nillable(),
		field.Text("short_summary").
			Optional().
			Nillable(),
		field.Text("long_summary").
			Optional().
			Nillable(),
		field.JSON("topics", []map[string]interface{}{}).
			Optional().
			Comment("Ordered topic list: name, summary, timestamp, words"),
		field.JSON("action_items", []string{}).
			Optional(),
		field.Text("webvtt").
			Optional().
			Nillable(),
		field.Float("duration").
			Optional().
			Nillable().
			Comment("Seconds, set at finalize"),
		field.String("source_language").
			Optional().
			Nillable(),
		field.String("target_language").
			Optional().
			Nillable(),
		field.Bool("audio_deleted").
			Default(false),
		field.String("workflow_run_id").
			Optional().
			Nillable().
			Comment("Set once by the first workflow to claim this transcript, never cleared"),
		field.Bool("locked").
			Default(false).
			Comment("Admin-only lock rejecting further pipeline mutation; never set implicitly by status transitions"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the Transcript.
func (Transcript) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("events", TranscriptEvent.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Transcript.
func (Transcript) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("user_id"),
		index.Fields("room_id"),
		index.Fields("workflow_run_id"),
	}
}

// Annotations for PostgreSQL-specific features.
// There is no tsvector column; the full-text GIN expression indexes on
// title, long_summary and webvtt are created by a migration hook in
// internal/database/migrations.go.
func (Transcript) Annotations() []schema.Annotation {
	return []schema.Annotation{}
}
