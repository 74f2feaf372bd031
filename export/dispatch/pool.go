package dispatch

import (
	"context"
	"fmt"

	"github.com/ncobase/docport/concurrency/worker"
	"github.com/ncobase/docport/config"
	"github.com/ncobase/docport/logging/logger"
)

// PoolDispatcher executes jobs on an in-process worker pool. This is the
// default driver for single-node deployments.
type PoolDispatcher struct {
	pool *worker.Pool
	run  Runner
}

// NewPool builds a pool dispatcher with the configured worker count and
// queue depth.
func NewPool(cfg *config.Queue, run Runner) *PoolDispatcher {
	wc := worker.DefaultConfig()
	if cfg.Workers > 0 {
		wc.MaxWorkers = cfg.Workers
	}
	if cfg.QueueSize > 0 {
		wc.QueueSize = cfg.QueueSize
	}

	d := &PoolDispatcher{run: run}
	d.pool = worker.NewPool(wc, jobProcessor{d})
	return d
}

func (d *PoolDispatcher) Start(ctx context.Context) error {
	d.pool.Start()
	return nil
}

func (d *PoolDispatcher) Stop(ctx context.Context) {
	d.pool.Stop(ctx)
}

func (d *PoolDispatcher) Dispatch(ctx context.Context, jobID string) error {
	return d.pool.Submit(jobID)
}

// Metrics exposes the underlying pool counters.
func (d *PoolDispatcher) Metrics() map[string]int64 {
	return d.pool.GetMetrics()
}

type jobProcessor struct {
	d *PoolDispatcher
}

func (p jobProcessor) Process(task any) error {
	jobID, ok := task.(string)
	if !ok {
		return fmt.Errorf("dispatch: unexpected task type %T", task)
	}
	ctx := context.Background()
	if err := p.d.run(ctx, jobID); err != nil {
		logger.Errorf(ctx, "export job %s failed: %v", jobID, err)
		return err
	}
	return nil
}
