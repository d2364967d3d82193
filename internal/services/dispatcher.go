package services

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Dispatcher runs pipeline executions as detached units of work. The ingress
// submits and returns immediately; outcomes are only visible on the
// submission records. A failed unit never affects the others.
type Dispatcher struct {
	pipeline *PipelineFunction
	group    *errgroup.Group
}

// NewDispatcher creates a dispatcher around the pipeline. limit caps the
// number of concurrently running units of work; zero or negative means
// unbounded.
func NewDispatcher(pipeline *PipelineFunction, limit int) *Dispatcher {
	group := new(errgroup.Group)
	if limit > 0 {
		group.SetLimit(limit)
	}
	return &Dispatcher{pipeline: pipeline, group: group}
}

// Submit schedules one submission for background processing. The request
// context is deliberately not used: the HTTP response returns long before the
// pipeline finishes, and cancellation of in-flight work is not supported.
func (d *Dispatcher) Submit(imageBytes []byte, filename string) {
	d.group.Go(func() error {
		// Errors are already logged and recorded on the submission; swallow
		// them here so one failed unit never cancels the group.
		_ = d.pipeline.Process(context.Background(), imageBytes, filename)
		return nil
	})
}

// Wait blocks until all dispatched units of work have finished. Intended for
// shutdown and tests.
func (d *Dispatcher) Wait() {
	_ = d.group.Wait()
}
