package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// DAGStep holds the schema definition for the DAGStep entity: one named
// step of a workflow graph as executed within a run. Plain steps have
// exactly one DAGTaskExecution child; fan-out steps have one per item.
type DAGStep struct {
	ent.Schema
}

// Fields of the DAGStep.
func (DAGStep) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("step_id").
			Unique().
			Immutable(),
		field.String("run_id").
			Immutable(),
		field.String("step_name").
			Immutable(),
		field.Int("step_index").
			Comment("Position in the graph's declared step order"),
		field.Int("fan_out_count").
			Optional().
			Nillable().
			Comment("Number of child task executions expected; nil for a plain step"),
		field.Enum("status").
			Values("pending", "running", "joining", "completed", "failed", "cancelled").
			Default("pending"),
		field.Time("started_at").
			Optional().
			Nillable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

// Edges of the DAGStep.
func (DAGStep) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("run", DAGRun.Type).
			Ref("steps").
			Field("run_id").
			Unique().
			Required().
			Immutable(),
		edge.To("task_executions", DAGTaskExecution.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the DAGStep.
func (DAGStep) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("run_id", "step_index").
			Unique(),
	}
}

// Annotations pins an explicit table name (see DAGRun.Annotations).
func (DAGStep) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "dag_steps"},
	}
}
