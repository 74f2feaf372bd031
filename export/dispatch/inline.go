package dispatch

import "context"

// InlineDispatcher runs jobs synchronously on the dispatching goroutine.
// It is meant for tests and one-shot tooling, not for serving traffic.
type InlineDispatcher struct {
	run Runner
}

func NewInline(run Runner) *InlineDispatcher {
	return &InlineDispatcher{run: run}
}

func (d *InlineDispatcher) Start(ctx context.Context) error { return nil }

func (d *InlineDispatcher) Stop(ctx context.Context) {}

func (d *InlineDispatcher) Dispatch(ctx context.Context, jobID string) error {
	return d.run(ctx, jobID)
}
