package dag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/monadical-sas/reflector/ent"
	"github.com/monadical-sas/reflector/ent/dagrun"
)

// DetectAndRequeueOrphans finds "running" runs whose heartbeat has
// gone stale (their owning pod crashed or was killed) and requeues
// them as "queued" so any pod can claim and resume them — replay
// safety (persisted task output) makes this safe to re-run from the
// top of the current step, rather than marking them terminally
// timed-out.
func DetectAndRequeueOrphans(ctx context.Context, client *ent.Client, threshold time.Duration) (int, error) {
	cutoff := time.Now().Add(-threshold)

	orphans, err := client.DAGRun.Query().
		Where(
			dagrun.StatusEQ(dagrun.StatusRunning),
			dagrun.LastInteractionAtNotNil(),
			dagrun.LastInteractionAtLT(cutoff),
		).
		All(ctx)
	if err != nil {
		return 0, fmt.Errorf("query orphaned runs: %w", err)
	}

	recovered := 0
	for _, run := range orphans {
		err := client.DAGRun.UpdateOneID(run.ID).
			SetStatus(dagrun.StatusQueued).
			ClearPodID().
			Exec(ctx)
		if err != nil {
			slog.Error("dag: failed to requeue orphaned run", "run_id", run.ID, "error", err)
			continue
		}
		slog.Warn("dag: requeued orphaned run", "run_id", run.ID, "old_pod_id", run.PodID)
		recovered++
	}
	return recovered, nil
}
