package diarization

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/monadical-sas/reflector/internal/dag"
	"github.com/monadical-sas/reflector/internal/store"
)

// roomLockTTL is the room-creation lock's TTL, bounding how long a
// workflow-start race can hold the lock.
const roomLockTTL = 10 * time.Second

// Start enqueues a diarization run for a recording, claiming
// workflow_run_id on the transcript exactly once. The room lock is tried
// once and not waited on: a caller that finds it held proceeds without
// it. A second caller racing the first loses the SetWorkflowRunID claim
// and gets started=false;
// its spuriously created dag run (if any) is cancelled rather than left
// to execute alongside the winner.
func Start(ctx context.Context, engine *dag.Engine, svc *Services, in StartInput) (runID string, started bool, err error) {
	if in.RoomID != "" {
		unlock, ok, lockErr := svc.Coord.Lock(ctx, "room:"+in.RoomID, roomLockTTL)
		if lockErr != nil {
			return "", false, fmt.Errorf("start: acquire room lock: %w", lockErr)
		}
		if ok {
			defer func() { _ = unlock(ctx) }()
		}
	}

	rootInput, err := encodeMap(in)
	if err != nil {
		return "", false, fmt.Errorf("start: encode root input: %w", err)
	}

	runID, err = engine.Start(ctx, Graph(), rootInput)
	if err != nil {
		return "", false, fmt.Errorf("start: create run: %w", err)
	}

	claimed, err := svc.Transcripts.SetWorkflowRunID(ctx, in.TranscriptID, runID)
	if err != nil {
		return "", false, fmt.Errorf("start: claim workflow_run_id: %w", err)
	}
	if !claimed {
		if cancelErr := engine.Cancel(ctx, runID); cancelErr != nil {
			svc.Log.Warn("start: cancel duplicate run failed", "run_id", runID, "error", cancelErr)
		}
		return "", false, nil
	}

	return runID, true, nil
}

// Sink adapts internal/dag's ProgressSink to internal/store, translating
// a dag run id — the only identifier StepTransition carries — back to
// the transcript id it belongs to, then appending a PIPELINE_PROGRESS
// event. The run->transcript
// mapping is looked up once per run and cached, so a worker resuming
// after a crash (cold cache) still finds it via the transcript row's
// workflow_run_id rather than needing in-memory state to survive.
type Sink struct {
	transcripts *store.TranscriptStore
	log         *slog.Logger

	mu    sync.Mutex
	cache map[string]string
}

func NewSink(transcripts *store.TranscriptStore, log *slog.Logger) *Sink {
	return &Sink{transcripts: transcripts, log: log.With("component", "diarization-sink"), cache: make(map[string]string)}
}

func (s *Sink) StepTransition(ctx context.Context, runID, stepName, status string, detail map[string]interface{}) {
	transcriptID := s.resolve(ctx, runID)
	if transcriptID == "" {
		return
	}

	data := map[string]any{"current_step": stepName, "step_status": status}
	for k, v := range detail {
		data[k] = v
	}
	if err := s.transcripts.AppendEvent(ctx, transcriptID, store.EventPipelineProgress, data, ""); err != nil {
		s.log.Warn("append progress event failed", "run_id", runID, "transcript_id", transcriptID, "error", err)
	}
}

func (s *Sink) resolve(ctx context.Context, runID string) string {
	s.mu.Lock()
	if id, ok := s.cache[runID]; ok {
		s.mu.Unlock()
		return id
	}
	s.mu.Unlock()

	t, err := s.transcripts.GetByWorkflowRunID(ctx, runID)
	if err != nil {
		s.log.Warn("resolve transcript for run failed", "run_id", runID, "error", err)
		return ""
	}

	s.mu.Lock()
	s.cache[runID] = t.ID
	s.mu.Unlock()
	return t.ID
}
