// Package dispatch hands accepted jobs to the pipeline. Three drivers are
// available: an in-process worker pool, a Redis list for multi-process
// deployments, and an inline driver that runs the job on the caller's
// goroutine.
package dispatch

import (
	"context"
	"fmt"

	"github.com/ncobase/docport/config"
)

// Runner executes one job end to end. The pipeline satisfies it.
type Runner func(ctx context.Context, jobID string) error

// Dispatcher queues jobs for execution.
type Dispatcher interface {
	// Start begins consuming queued jobs. It returns once consumers are up.
	Start(ctx context.Context) error
	// Stop drains in-flight work, bounded by the context deadline.
	Stop(ctx context.Context)
	// Dispatch enqueues a job for execution.
	Dispatch(ctx context.Context, jobID string) error
}

// New builds the dispatcher selected by the queue config.
func New(cfg *config.Queue, run Runner) (Dispatcher, error) {
	switch cfg.Driver {
	case "", "pool":
		return NewPool(cfg, run), nil
	case "redis":
		return NewRedis(cfg, run)
	case "inline":
		return NewInline(run), nil
	default:
		return nil, fmt.Errorf("dispatch: unknown queue driver %q", cfg.Driver)
	}
}
