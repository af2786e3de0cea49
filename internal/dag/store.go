package dag

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/monadical-sas/reflector/ent"
	"github.com/monadical-sas/reflector/ent/dagrun"
	"github.com/monadical-sas/reflector/ent/dagstep"
	"github.com/monadical-sas/reflector/ent/dagtaskexecution"
)

// runStore persists DAGRun/DAGStep/DAGTaskExecution rows. Claiming a
// queued run uses FOR UPDATE SKIP LOCKED so only one pod wins a given
// run.
type runStore struct {
	client *ent.Client
}

func newRunStore(client *ent.Client) *runStore {
	return &runStore{client: client}
}

func (s *runStore) createRun(ctx context.Context, id, workflowName string, rootInput map[string]interface{}) (*ent.DAGRun, error) {
	return s.client.DAGRun.Create().
		SetID(id).
		SetWorkflowName(workflowName).
		SetRootInput(rootInput).
		SetStatus(dagrun.StatusQueued).
		Save(ctx)
}

// claimQueuedRun atomically claims one queued run for this pod.
func (s *runStore) claimQueuedRun(ctx context.Context, podID string) (*ent.DAGRun, error) {
	tx, err := s.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	run, err := tx.DAGRun.Query().
		Where(dagrun.StatusEQ(dagrun.StatusQueued)).
		Order(ent.Asc(dagrun.FieldCreatedAt)).
		Limit(1).
		ForUpdate(entsql.WithLockAction(entsql.SkipLocked)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNoRunsAvailable
		}
		return nil, fmt.Errorf("query queued run: %w", err)
	}

	now := time.Now()
	run, err = tx.DAGRun.UpdateOneID(run.ID).
		SetStatus(dagrun.StatusRunning).
		SetPodID(podID).
		SetStartedAt(now).
		SetLastInteractionAt(now).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("claim run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return run, nil
}

func (s *runStore) heartbeat(ctx context.Context, runID string) error {
	return s.client.DAGRun.UpdateOneID(runID).
		SetLastInteractionAt(time.Now()).
		Exec(ctx)
}

func (s *runStore) markRunStatus(ctx context.Context, runID string, status dagrun.Status, errMsg string) error {
	upd := s.client.DAGRun.UpdateOneID(runID).SetStatus(status)
	if status == dagrun.StatusSucceeded || status == dagrun.StatusFailed || status == dagrun.StatusCancelled {
		upd = upd.SetCompletedAt(time.Now())
	}
	if errMsg != "" {
		upd = upd.SetErrorMessage(errMsg)
	}
	return upd.Exec(ctx)
}

// requestCancel marks a running run "cancelling" so every step polls
// and transitions to cancelled at its next suspension point: only the
// step that observes ctx.Err() != nil transitions the row to the
// terminal "cancelled".
func (s *runStore) requestCancel(ctx context.Context, runID string) error {
	return s.client.DAGRun.Update().
		Where(dagrun.ID(runID), dagrun.StatusEQ(dagrun.StatusRunning)).
		SetStatus(dagrun.StatusCancelling).
		Exec(ctx)
}

func (s *runStore) isCancelling(ctx context.Context, runID string) (bool, error) {
	run, err := s.client.DAGRun.Get(ctx, runID)
	if err != nil {
		return false, err
	}
	return run.Status == dagrun.StatusCancelling, nil
}

// getOrCreateStep returns the step row for (runID, stepName), creating
// it if this is the run's first visit — idempotent when a run is executed
// again.
func (s *runStore) getOrCreateStep(ctx context.Context, runID, stepName string, stepIndex int, fanOutCount *int) (*ent.DAGStep, error) {
	existing, err := s.client.DAGStep.Query().
		Where(dagstep.RunID(runID), dagstep.StepName(stepName)).
		Only(ctx)
	if err == nil {
		return existing, nil
	}
	if !ent.IsNotFound(err) {
		return nil, fmt.Errorf("query step: %w", err)
	}

	create := s.client.DAGStep.Create().
		SetID(runID + ":" + stepName).
		SetRunID(runID).
		SetStepName(stepName).
		SetStepIndex(stepIndex).
		SetStatus(dagstep.StatusRunning).
		SetStartedAt(time.Now())
	if fanOutCount != nil {
		create = create.SetFanOutCount(*fanOutCount)
	}
	return create.Save(ctx)
}

func (s *runStore) markStepStatus(ctx context.Context, stepID string, status dagstep.Status) error {
	upd := s.client.DAGStep.UpdateOneID(stepID).SetStatus(status)
	if status == dagstep.StatusCompleted || status == dagstep.StatusFailed || status == dagstep.StatusCancelled {
		upd = upd.SetCompletedAt(time.Now())
	}
	return upd.Exec(ctx)
}

// loadTaskExecution returns a previously persisted, successful task
// execution for (stepID, fanOutIndex), or nil if none exists — the
// hook runTaskExecution uses to skip already-completed work.
func (s *runStore) loadTaskExecution(ctx context.Context, stepID string, fanOutIndex int) (*ent.DAGTaskExecution, error) {
	row, err := s.client.DAGTaskExecution.Query().
		Where(
			dagtaskexecution.StepID(stepID),
			dagtaskexecution.FanOutIndex(fanOutIndex),
			dagtaskexecution.StatusEQ(dagtaskexecution.StatusSucceeded),
		).
		Only(ctx)
	if ent.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task execution: %w", err)
	}
	return row, nil
}

func (s *runStore) beginTaskExecution(ctx context.Context, runID, stepID, taskName string, fanOutIndex, attempt int) (*ent.DAGTaskExecution, error) {
	existing, err := s.client.DAGTaskExecution.Query().
		Where(dagtaskexecution.StepID(stepID), dagtaskexecution.FanOutIndex(fanOutIndex)).
		Only(ctx)
	if err == nil {
		return s.client.DAGTaskExecution.UpdateOneID(existing.ID).
			SetStatus(dagtaskexecution.StatusRunning).
			SetAttempt(attempt).
			SetStartedAt(time.Now()).
			ClearErrorMessage().
			ClearErrorClass().
			Save(ctx)
	}
	if !ent.IsNotFound(err) {
		return nil, fmt.Errorf("query task execution: %w", err)
	}

	return s.client.DAGTaskExecution.Create().
		SetID(fmt.Sprintf("%s:%d", stepID, fanOutIndex)).
		SetStepID(stepID).
		SetRunID(runID).
		SetTaskName(taskName).
		SetFanOutIndex(fanOutIndex).
		SetStatus(dagtaskexecution.StatusRunning).
		SetAttempt(attempt).
		SetStartedAt(time.Now()).
		Save(ctx)
}

func (s *runStore) completeTaskExecution(ctx context.Context, id string, output map[string]interface{}) error {
	return s.client.DAGTaskExecution.UpdateOneID(id).
		SetStatus(dagtaskexecution.StatusSucceeded).
		SetOutput(output).
		SetCompletedAt(time.Now()).
		Exec(ctx)
}

func (s *runStore) failTaskExecution(ctx context.Context, id string, class ErrClass, terminal bool, errMsg string) error {
	status := dagtaskexecution.StatusFailedRetryable
	if terminal {
		status = dagtaskexecution.StatusFailedTerminal
	}
	if class == ClassCancelled {
		status = dagtaskexecution.StatusCancelled
	}
	return s.client.DAGTaskExecution.UpdateOneID(id).
		SetStatus(status).
		SetErrorMessage(errMsg).
		SetErrorClass(class.String()).
		SetCompletedAt(time.Now()).
		Exec(ctx)
}
