package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ExternalCallLog holds the schema definition for the ExternalCallLog
// entity: full request/response detail for one call to an ASR,
// diarization, translation, or LLM backend, keyed to the task execution
// that made it. One table covers all four backends, since Reflector's
// external backends share a uniform capability-client shape
// (internal/external) rather than needing per-backend tables.
type ExternalCallLog struct {
	ent.Schema
}

// Fields of the ExternalCallLog.
func (ExternalCallLog) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("call_id").
			Unique().
			Immutable(),
		field.String("task_execution_id").
			Immutable(),
		field.Enum("backend").
			Values("asr", "diarize", "translate", "llm").
			Immutable(),
		field.String("provider").
			Comment("e.g. 'whisper', 'deepinfra', 'elevenlabs'"),
		field.JSON("request", map[string]interface{}{}).
			Optional(),
		field.JSON("response", map[string]interface{}{}).
			Optional(),
		field.Int("duration_ms").
			Optional().
			Nillable(),
		field.String("error_message").
			Optional().
			Nillable(),
		field.String("error_class").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the ExternalCallLog.
func (ExternalCallLog) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("task_execution_id", "created_at"),
		index.Fields("backend"),
	}
}
