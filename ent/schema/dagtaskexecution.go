package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// DAGTaskExecution holds the schema definition for the DAGTaskExecution
// entity: one task attempt within a step (the fan_out_index-th item for
// a fan-out step, always 0 for a plain step). Output is persisted here
// before the step is marked completed, which is what lets
// runTaskExecution skip an already-completed task when a run is executed
// again.
type DAGTaskExecution struct {
	ent.Schema
}

// Fields of the DAGTaskExecution.
func (DAGTaskExecution) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("task_execution_id").
			Unique().
			Immutable(),
		field.String("step_id").
			Immutable(),
		field.String("run_id").
			Immutable().
			Comment("Denormalized for cross-run queries"),
		field.String("task_name").
			Immutable().
			Comment("Registry key of the task definition"),
		field.Int("fan_out_index").
			Default(0),
		field.Enum("status").
			Values("queued", "running", "succeeded", "failed_retryable", "failed_terminal", "cancelled").
			Default("queued"),
		field.Int("attempt").
			Default(1),
		field.JSON("output", map[string]interface{}{}).
			Optional().
			Comment("Persisted once succeeded; read back on replay"),
		field.String("error_message").
			Optional().
			Nillable(),
		field.String("error_class").
			Optional().
			Nillable().
			Comment("transient | permanent | cancelled"),
		field.Time("started_at").
			Optional().
			Nillable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

// Edges of the DAGTaskExecution.
func (DAGTaskExecution) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("step", DAGStep.Type).
			Ref("task_executions").
			Field("step_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the DAGTaskExecution.
func (DAGTaskExecution) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("step_id", "fan_out_index").
			Unique(),
		index.Fields("run_id"),
		index.Fields("status"),
	}
}

// Annotations pins an explicit table name (see DAGRun.Annotations).
func (DAGTaskExecution) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "dag_task_executions"},
	}
}
