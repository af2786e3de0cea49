package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TranscriptEvent holds the schema definition for the TranscriptEvent entity.
// Append-only change log backing the transcript's change_seq and the
// replayable event stream fanned out over WebSocket.
type TranscriptEvent struct {
	ent.Schema
}

// Fields of the TranscriptEvent.
func (TranscriptEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("event_id").
			Unique().
			Immutable(),
		field.String("transcript_id").
			Immutable(),
		field.Int64("seq").
			Comment("Position within the transcript, equal to change_seq at append time"),
		field.Enum("event_name").
			Values(
				"TRANSCRIPT", "STATUS", "DURATION", "TOPIC", "FINAL_TITLE",
				"LONG_SUMMARY", "SHORT_SUMMARY", "ACTION_ITEMS", "WEBVTT",
				"WAVEFORM", "PIPELINE_PROGRESS", "DAG_STATUS",
			).
			Immutable(),
		field.JSON("data", map[string]interface{}{}).
			Optional(),
		field.String("dedup_key").
			Optional().
			Nillable().
			Comment("Replay-safety key, e.g. hash of (run_id, step_name); duplicate appends are no-ops"),
		field.Time("occurred_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the TranscriptEvent.
func (TranscriptEvent) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("transcript", Transcript.Type).
			Ref("events").
			Field("transcript_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the TranscriptEvent.
func (TranscriptEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("transcript_id", "seq").
			Unique(),
		index.Fields("dedup_key").
			Unique(),
	}
}
