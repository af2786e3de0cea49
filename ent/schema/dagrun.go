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

// DAGRun holds the schema definition for the DAGRun entity: one
// execution of a registered workflow graph (e.g. the diarization
// workflow) against a root input, claimed by exactly one worker at a
// time via FOR UPDATE SKIP LOCKED.
type DAGRun struct {
	ent.Schema
}

// Fields of the DAGRun.
func (DAGRun) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("run_id").
			Unique().
			Immutable(),
		field.String("workflow_name").
			Immutable().
			Comment("Registry key, e.g. 'diarization'"),
		field.JSON("root_input", map[string]interface{}{}).
			Immutable(),
		field.Enum("status").
			Values("queued", "running", "cancelling", "succeeded", "failed", "cancelled").
			Default("queued"),
		field.String("error_message").
			Optional().
			Nillable(),
		field.String("pod_id").
			Optional().
			Nillable().
			Comment("Worker currently advancing this run, for orphan detection"),
		field.Time("last_interaction_at").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("started_at").
			Optional().
			Nillable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

// Edges of the DAGRun.
func (DAGRun) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("steps", DAGStep.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the DAGRun.
func (DAGRun) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("workflow_name"),
		index.Fields("status", "last_interaction_at"),
	}
}

// Annotations pins an explicit table name rather than relying on ent's
// snake_case pluralization of an acronym-bearing type name.
func (DAGRun) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "dag_runs"},
	}
}
