package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/reconthing/reconthing/internal/log"
	"github.com/reconthing/reconthing/internal/metrics"
	"github.com/reconthing/reconthing/internal/task"
)

var ErrShuttingDown = errors.New("shutting down")

// Dispatcher starts pipelines in the background. A started pipeline can't be
// canceled, it only ends when the base context given to NewDispatcher is.
type Dispatcher struct {
	base     context.Context
	orch     *Orchestrator
	registry task.Registry
	metrics  *metrics.Metrics
	sem      chan struct{}
	wg       sync.WaitGroup
}

// NewDispatcher returns a dispatcher running at most maxRunning pipelines at
// once; zero means no limit. Pipelines over the limit wait in progress 0.
func NewDispatcher(base context.Context, orch *Orchestrator, reg task.Registry, maxRunning int, m *metrics.Metrics) *Dispatcher {
	d := &Dispatcher{
		base:     base,
		orch:     orch,
		registry: reg,
		metrics:  m,
	}
	if maxRunning > 0 {
		d.sem = make(chan struct{}, maxRunning)
	}
	return d
}

// Start registers an in-progress task and returns it right away. The
// pipeline runs on its own goroutine.
func (d *Dispatcher) Start(kind task.Kind, domain string) (task.Task, error) {
	if !kind.Valid() {
		return task.Task{}, fmt.Errorf("unknown pipeline %q", kind)
	}
	if d.base.Err() != nil {
		return task.Task{}, ErrShuttingDown
	}
	t := task.New(kind, domain)
	if err := d.registry.Create(t); err != nil {
		return task.Task{}, err
	}
	t, err := d.registry.Get(t.ID)
	if err != nil {
		return task.Task{}, err
	}

	d.wg.Go(func() {
		d.run(t)
	})
	return t, nil
}

func (d *Dispatcher) run(t task.Task) {
	ctx := log.ContextAttrs(d.base,
		slog.String("task_id", t.ID),
		slog.String("kind", string(t.Kind)),
		slog.String("domain", t.Domain),
	)

	if d.sem != nil {
		select {
		case d.sem <- struct{}{}:
			defer func() { <-d.sem }()
		case <-ctx.Done():
			d.orch.fail(ctx, t, ErrShuttingDown.Error())
			return
		}
	}

	d.metrics.TaskStarted(string(t.Kind))
	status := task.StatusFailed
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "pipeline panicked", "panic", r)
			d.orch.fail(ctx, t, fmt.Sprintf("panic: %v", r))
		}
		d.metrics.TaskFinished(string(t.Kind), string(status))
	}()

	slog.InfoContext(ctx, "pipeline started")
	status = d.orch.Run(ctx, t).Status
}

// Wait blocks until every started pipeline has returned or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
