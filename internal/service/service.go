package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	gocron "github.com/go-co-op/gocron/v2"

	"github.com/reconthing/reconthing/internal/api"
	"github.com/reconthing/reconthing/internal/metrics"
	"github.com/reconthing/reconthing/internal/model"
	"github.com/reconthing/reconthing/internal/pipeline"
	"github.com/reconthing/reconthing/internal/store"
	"github.com/reconthing/reconthing/internal/task"
	"github.com/reconthing/reconthing/internal/tool"
)

type Service struct {
	addr            string
	shutdownTimeout time.Duration

	store      *store.Store
	registry   *task.Memory
	metrics    *metrics.Metrics
	dispatcher *pipeline.Dispatcher
	scheduler  gocron.Scheduler
	handler    http.Handler

	// stop aborts the pipelines still running after the shutdown timeout.
	stop context.CancelFunc
}

// New builds every component from cfg and opens the store. Nothing runs
// before Do is called.
func New(ctx context.Context, cfg model.Config) (*Service, error) {
	if cfg.Version != 0 {
		return nil, fmt.Errorf("config version %d is not supported, expected 0", cfg.Version)
	}

	shutdown, err := model.ParseISODuration(cfg.Server.ShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	retention, err := model.ParseISODuration(cfg.Tasks.Retention)
	if err != nil {
		return nil, fmt.Errorf("tasks.retention: %w", err)
	}

	var cmds [3]tool.Command
	for i, t := range []model.Tool{cfg.Tools.Enumerator, cfg.Tools.Resolver, cfg.Tools.Prober} {
		cmds[i], err = tool.FromConfig(t)
		if err != nil {
			return nil, err
		}
	}

	m := metrics.New()
	registry := task.NewMemory(retention)

	scheduler, err := newScheduler(ctx, cfg.Tasks.Sweep, func() {
		n := registry.Sweep(time.Now())
		m.TasksSwept(n)
		slog.DebugContext(ctx, "task sweep done", "removed", n, "remaining", registry.Len())
	})
	if err != nil {
		return nil, fmt.Errorf("task sweep: %w", err)
	}

	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("opening %s store: %w", cfg.Database.Driver, err)
	}

	var runner tool.Runner
	orch := pipeline.NewOrchestrator(
		tool.Enumerator{Runner: runner, Command: cmds[0], Metrics: m},
		tool.Resolver{Runner: runner, Command: cmds[1], Concurrency: cfg.Tools.Concurrency, Metrics: m},
		tool.Prober{Runner: runner, Command: cmds[2], Concurrency: cfg.Tools.Concurrency, Metrics: m},
		st,
		registry,
		cfg.Pipeline.ResolveBatchSize,
	)

	base, stop := context.WithCancel(context.WithoutCancel(ctx))
	dispatcher := pipeline.NewDispatcher(base, orch, registry, cfg.Pipeline.MaxRunning, m)

	return &Service{
		addr:            cfg.Server.Addr,
		shutdownTimeout: shutdown,
		store:           st,
		registry:        registry,
		metrics:         m,
		dispatcher:      dispatcher,
		scheduler:       scheduler,
		handler:         api.NewRouter(dispatcher, registry, st, m.Handler()),
		stop:            stop,
	}, nil
}

func (s *Service) Handler() http.Handler {
	return s.handler
}

// Do listens on the configured address and serves until ctx is done.
func (s *Service) Do(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		s.close(ctx)
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Do on an already open listener, which it closes.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.scheduler.Start()
	slog.InfoContext(ctx, "serving", "addr", ln.Addr().String())

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errs:
		slog.ErrorContext(ctx, "http server stopped", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "shutting down http server", "error", err)
	}
	s.drain(shutdownCtx)
	s.close(ctx)

	if errors.Is(serveErr, http.ErrServerClosed) {
		return nil
	}
	return serveErr
}

// drain waits for running pipelines until ctx ends, then aborts the rest.
func (s *Service) drain(ctx context.Context) {
	if err := s.dispatcher.Wait(ctx); err != nil {
		slog.WarnContext(ctx, "pipelines still running, aborting them", "error", err)
		s.stop()
		// aborted pipelines only need to record their failure
		grace, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.dispatcher.Wait(grace); err != nil {
			slog.ErrorContext(ctx, "pipelines did not stop", "error", err)
		}
	}
}

func (s *Service) close(ctx context.Context) {
	s.stop()
	if err := s.scheduler.Shutdown(); err != nil {
		slog.ErrorContext(ctx, "shutting down gocron has failed", "error", err)
	}
	if err := s.store.Close(); err != nil {
		slog.ErrorContext(ctx, "closing store has failed", "error", err)
	}
}
