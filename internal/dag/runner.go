package dag

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Runner drives an Engine's poll loop: poll, process, sleep with
// jitter on empty queue, brief backoff on error, graceful stop.
type Runner struct {
	engine       *Engine
	graphs       map[string]*Graph
	pollInterval time.Duration
	jitter       time.Duration
	stopCh       chan struct{}
}

// NewRunner builds a Runner over the given graphs, keyed by workflow name.
func NewRunner(engine *Engine, graphs []*Graph, pollInterval, jitter time.Duration) *Runner {
	byName := make(map[string]*Graph, len(graphs))
	for _, g := range graphs {
		byName[g.WorkflowName] = g
	}
	return &Runner{
		engine:       engine,
		graphs:       byName,
		pollInterval: pollInterval,
		jitter:       jitter,
		stopCh:       make(chan struct{}),
	}
}

// Run blocks, polling until ctx is cancelled or Stop is called.
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		default:
			if err := r.engine.PollOnce(ctx, r.graphs); err != nil {
				if errors.Is(err, ErrNoRunsAvailable) {
					r.sleep(r.jitteredInterval())
					continue
				}
				slog.Error("dag: run processing failed", "error", err)
				r.sleep(time.Second)
			}
		}
	}
}

// Stop signals Run to exit.
func (r *Runner) Stop() { close(r.stopCh) }

func (r *Runner) sleep(d time.Duration) {
	select {
	case <-r.stopCh:
	case <-time.After(d):
	}
}

func (r *Runner) jitteredInterval() time.Duration {
	if r.jitter <= 0 {
		return r.pollInterval
	}
	offset := time.Duration(rand.Int64N(int64(2 * r.jitter)))
	return r.pollInterval - r.jitter + offset
}
