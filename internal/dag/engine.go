package dag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/monadical-sas/reflector/ent"
	"github.com/monadical-sas/reflector/ent/dagrun"
	"github.com/monadical-sas/reflector/ent/dagstep"
)

// ErrNoRunsAvailable is returned by claimQueuedRun when nothing is waiting.
var ErrNoRunsAvailable = errors.New("dag: no queued runs available")

// ProgressSink receives a callback after every task transition. A
// failed sink call is logged and never fails the task — fire-and-forget.
type ProgressSink interface {
	StepTransition(ctx context.Context, runID, stepName, status string, detail map[string]interface{})
}

type noopSink struct{}

func (noopSink) StepTransition(context.Context, string, string, string, map[string]interface{}) {}

// Engine executes Graphs against the Registry, using pools and rate
// limiters for dispatch and the ent-backed runStore for persistence and
// replay safety.
type Engine struct {
	podID    string
	registry *Registry
	pools    *PoolSet
	limiter  *RateLimiter
	store    *runStore
	sink     ProgressSink
}

// EngineConfig bundles Engine dependencies.
type EngineConfig struct {
	PodID      string
	Registry   *Registry
	Pools      *PoolSet
	RateLimits *RateLimiter
	Sink       ProgressSink
}

// NewEngine builds an Engine backed by client for run/step/task
// persistence. sink may be nil (progress reporting disabled).
func NewEngine(client *ent.Client, cfg EngineConfig) *Engine {
	sink := cfg.Sink
	if sink == nil {
		sink = noopSink{}
	}
	return &Engine{
		podID:    cfg.PodID,
		registry: cfg.Registry,
		pools:    cfg.Pools,
		limiter:  cfg.RateLimits,
		store:    newRunStore(client),
		sink:     sink,
	}
}

// Start enqueues a new run for the named workflow and returns its ID.
// Execution happens on the worker loop (see PollOnce and Runner.Run); Start does
// not block on completion.
func (e *Engine) Start(ctx context.Context, graph *Graph, rootInput map[string]interface{}) (string, error) {
	id := uuid.NewString()
	if _, err := e.store.createRun(ctx, id, graph.WorkflowName, rootInput); err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

// Cancel requests cancellation of a running run. The run transitions
// to "cancelled" only once the currently executing step observes it,
// never synchronously here.
func (e *Engine) Cancel(ctx context.Context, runID string) error {
	return e.store.requestCancel(ctx, runID)
}

// PollOnce claims one queued run (if any) and executes its graph to
// completion or suspension. Returns ErrNoRunsAvailable when the queue
// is empty — callers loop this with a sleep.
func (e *Engine) PollOnce(ctx context.Context, graphs map[string]*Graph) error {
	run, err := e.store.claimQueuedRun(ctx, e.podID)
	if err != nil {
		return err
	}

	graph, ok := graphs[run.WorkflowName]
	if !ok {
		_ = e.store.markRunStatus(ctx, run.ID, dagrun.StatusFailed, "unknown workflow: "+run.WorkflowName)
		return fmt.Errorf("unknown workflow %q for run %s", run.WorkflowName, run.ID)
	}

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	go e.runHeartbeat(bgCtx, run.ID)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	go e.watchCancel(bgCtx, run.ID, cancelRun)

	err = e.runGraph(runCtx, run.ID, graph, run.RootInput)
	stopBackground()

	if err != nil {
		if errors.Is(err, context.Canceled) || Classify(err) == ClassCancelled {
			return e.store.markRunStatus(context.Background(), run.ID, dagrun.StatusCancelled, err.Error())
		}
		return e.store.markRunStatus(context.Background(), run.ID, dagrun.StatusFailed, err.Error())
	}
	return e.store.markRunStatus(context.Background(), run.ID, dagrun.StatusSucceeded, "")
}

func (e *Engine) runHeartbeat(ctx context.Context, runID string) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.store.heartbeat(ctx, runID); err != nil {
				slog.Warn("dag: run heartbeat failed", "run_id", runID, "error", err)
			}
		}
	}
}

// watchCancel polls requestCancel's "cancelling" flag and calls cancel as
// soon as it's set, so an in-flight task observes cancellation at its
// next ctx.Done() check (limiter.Wait, pool.Acquire, the retry backoff
// wait, or the task's own I/O under its ctx) instead of only at the next
// step boundary in runGraph.
func (e *Engine) watchCancel(ctx context.Context, runID string, cancel context.CancelFunc) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cancelling, err := e.store.isCancelling(ctx, runID)
			if err != nil {
				slog.Warn("dag: cancel watch failed", "run_id", runID, "error", err)
				continue
			}
			if cancelling {
				cancel()
				return
			}
		}
	}
}

// runGraph executes every step of graph in order, feeding each step's
// output as the next step's input, skipping already-completed steps on
// resume.
func (e *Engine) runGraph(ctx context.Context, runID string, graph *Graph, rootInput map[string]interface{}) error {
	current := rootInput

	for i, step := range graph.Steps {
		if cancelling, err := e.store.isCancelling(ctx, runID); err == nil && cancelling {
			return context.Canceled
		}

		out, err := e.runStep(ctx, runID, step, i, current)
		if err != nil {
			return fmt.Errorf("step %s: %w", step.Name, err)
		}
		current = out
	}
	return nil
}

// runStep executes one Graph step (plain or fan-out), persisting
// results and emitting progress.
func (e *Engine) runStep(ctx context.Context, runID string, step Step, index int, input map[string]interface{}) (map[string]interface{}, error) {
	if step.FanOut == nil {
		stepRow, err := e.store.getOrCreateStep(ctx, runID, step.Name, index, nil)
		if err != nil {
			return nil, err
		}
		out, err := e.runTaskExecution(ctx, runID, stepRow.ID, step.Task, 0, input)
		if err != nil {
			_ = e.store.markStepStatus(ctx, stepRow.ID, dagstep.StatusFailed)
			e.sink.StepTransition(ctx, runID, step.Name, "failed", map[string]interface{}{"error": err.Error()})
			return nil, err
		}
		_ = e.store.markStepStatus(ctx, stepRow.ID, dagstep.StatusCompleted)
		e.sink.StepTransition(ctx, runID, step.Name, "completed", nil)
		return out, nil
	}

	return e.runFanOutStep(ctx, runID, step, index, input)
}

type fanOutResult struct {
	index  int
	output map[string]interface{}
	err    error
}

func (e *Engine) runFanOutStep(ctx context.Context, runID string, step Step, index int, input map[string]interface{}) (map[string]interface{}, error) {
	items, err := step.FanOut(input)
	if err != nil {
		return nil, fmt.Errorf("fan-out derivation: %w", err)
	}

	count := len(items)
	stepRow, err := e.store.getOrCreateStep(ctx, runID, step.Name, index, &count)
	if err != nil {
		return nil, err
	}

	if count == 0 {
		_ = e.store.markStepStatus(ctx, stepRow.ID, dagstep.StatusCompleted)
		e.sink.StepTransition(ctx, runID, step.Name, "completed", map[string]interface{}{"fan_out_count": 0})
		return mergeJoin(input, step.JoinAs, []map[string]interface{}{}), nil
	}

	_ = e.store.markStepStatus(ctx, stepRow.ID, dagstep.StatusRunning)

	results := make(chan fanOutResult, count)
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item map[string]interface{}) {
			defer wg.Done()
			out, err := e.runTaskExecution(ctx, runID, stepRow.ID, step.Task, i, item)
			results <- fanOutResult{index: i, output: out, err: err}
		}(i, item)
	}
	go func() { wg.Wait(); close(results) }()

	ordered := make([]fanOutResult, count)
	for r := range results {
		ordered[r.index] = r
	}

	_ = e.store.markStepStatus(ctx, stepRow.ID, dagstep.StatusJoining)

	joined := make([]map[string]interface{}, 0, count)
	failures := 0
	var lastErr error
	for _, r := range ordered {
		if r.err != nil {
			failures++
			lastErr = r.err
			continue
		}
		joined = append(joined, r.output)
	}

	if failures == count {
		_ = e.store.markStepStatus(ctx, stepRow.ID, dagstep.StatusFailed)
		e.sink.StepTransition(ctx, runID, step.Name, "failed", map[string]interface{}{"failed_count": failures})
		return nil, fmt.Errorf("all %d fan-out items failed, last error: %w", count, lastErr)
	}

	_ = e.store.markStepStatus(ctx, stepRow.ID, dagstep.StatusCompleted)
	e.sink.StepTransition(ctx, runID, step.Name, "completed", map[string]interface{}{
		"fan_out_count": count,
		"failed_count":  failures,
	})
	return mergeJoin(input, step.JoinAs, joined), nil
}

// mergeJoin carries the fan-out step's own input forward alongside the
// joined results, so a workflow's shared context (ids, bucket, language)
// survives a fan-out/join boundary instead of being discarded in favor
// of the joined list alone.
func mergeJoin(input map[string]interface{}, joinAs string, joined []map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(input)+1)
	for k, v := range input {
		out[k] = v
	}
	out[joinAs] = joined
	return out
}

// runTaskExecution runs a single task (plain step or one fan-out item)
// with pool/rate-limit gating, retry-with-backoff on Transient errors,
// and replay safety via a persisted successful output.
func (e *Engine) runTaskExecution(ctx context.Context, runID, stepID, taskName string, fanOutIndex int, input map[string]interface{}) (map[string]interface{}, error) {
	if prior, err := e.store.loadTaskExecution(ctx, stepID, fanOutIndex); err == nil && prior != nil {
		return prior.Output, nil
	}

	def, ok := e.registry.get(taskName)
	if !ok {
		return nil, fmt.Errorf("unregistered task %q", taskName)
	}

	pool := e.pools.Get(def.Pool)
	maxRetries := def.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 30 * time.Second

	var lastErr error
	execID := ""
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		if ctx.Err() != nil {
			return nil, context.Canceled
		}

		exec, err := e.store.beginTaskExecution(ctx, runID, stepID, taskName, fanOutIndex, attempt)
		if err != nil {
			return nil, fmt.Errorf("begin task execution: %w", err)
		}
		execID = exec.ID

		if err := e.limiter.Wait(ctx, def.RateLimit); err != nil {
			return nil, context.Canceled
		}

		release, err := pool.Acquire(ctx)
		if err != nil {
			return nil, context.Canceled
		}

		taskCtx := ctx
		var cancel context.CancelFunc
		if def.Timeout > 0 {
			taskCtx, cancel = context.WithTimeout(ctx, def.Timeout)
		}
		out, runErr := def.Run(taskCtx, input)
		if cancel != nil {
			cancel()
		}
		release()

		if runErr == nil {
			if err := e.store.completeTaskExecution(ctx, execID, out); err != nil {
				return nil, fmt.Errorf("persist task output: %w", err)
			}
			return out, nil
		}

		lastErr = runErr
		class := Classify(runErr)
		terminal := class != ClassTransient || attempt > maxRetries
		if err := e.store.failTaskExecution(ctx, execID, class, terminal, runErr.Error()); err != nil {
			slog.Warn("dag: failed to persist task failure", "task_execution_id", execID, "error", err)
		}

		if class == ClassCancelled {
			return nil, context.Canceled
		}
		if class != ClassTransient || attempt > maxRetries {
			return nil, lastErr
		}

		wait := bo.NextBackOff()
		var httpErr *HTTPStatusError
		if errors.As(runErr, &httpErr) && httpErr.RetryAfter > 0 {
			wait = httpErr.RetryAfter
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, context.Canceled
		}
	}

	return nil, lastErr
}
