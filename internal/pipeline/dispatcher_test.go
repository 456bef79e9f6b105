package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/reconthing/reconthing/internal/metrics"
	"github.com/reconthing/reconthing/internal/pipeline"
	"github.com/reconthing/reconthing/internal/pipeline/mocks"
	"github.com/reconthing/reconthing/internal/task"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func waitStatus(t *testing.T, reg task.Registry, id string, status task.Status) task.Task {
	t.Helper()
	var got task.Task
	require.Eventually(t, func() bool {
		var err error
		got, err = reg.Get(id)
		return err == nil && got.Status == status
	}, 5*time.Second, 10*time.Millisecond)
	return got
}

func TestDispatcher(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 0)
	release := make(chan struct{})
	f.enum.EXPECT().Enumerate(gomock.Any(), "example.com").
		DoAndReturn(func(context.Context, string) ([]string, error) {
			<-release
			return []string{"www.example.com"}, nil
		})

	d := pipeline.NewDispatcher(t.Context(), f.orch, f.reg, 0, metrics.New())
	started, err := d.Start(task.KindEnumerate, "example.com")
	require.NoError(t, err)
	require.NotEmpty(t, started.ID)
	require.Equal(t, task.StatusInProgress, started.Status)
	require.Zero(t, started.Progress)

	running, err := f.reg.Get(started.ID)
	require.NoError(t, err)
	require.Equal(t, task.StatusInProgress, running.Status)

	close(release)
	require.NoError(t, d.Wait(t.Context()))
	done := waitStatus(t, f.reg, started.ID, task.StatusCompleted)
	require.Equal(t, []string{"www.example.com"}, done.Subdomains)
}

func TestDispatcher_UnknownKind(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 0)
	d := pipeline.NewDispatcher(t.Context(), f.orch, f.reg, 0, nil)
	_, err := d.Start(task.Kind("crawl"), "example.com")
	require.Error(t, err)
	require.Zero(t, f.reg.Len())
}

func TestDispatcher_Panic(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 0)
	f.enum.EXPECT().Enumerate(gomock.Any(), "example.com").
		DoAndReturn(func(context.Context, string) ([]string, error) {
			panic("tool exploded")
		})

	d := pipeline.NewDispatcher(t.Context(), f.orch, f.reg, 0, nil)
	started, err := d.Start(task.KindEnumerate, "example.com")
	require.NoError(t, err)
	require.NoError(t, d.Wait(t.Context()))

	got := waitStatus(t, f.reg, started.ID, task.StatusFailed)
	require.Equal(t, "panic: tool exploded", got.Error)
}

func TestDispatcher_MaxRunning(t *testing.T) {
	t.Parallel()
	f := newFixture(t, 0)
	release := make(chan struct{})
	entered := make(chan string, 2)
	f.enum.EXPECT().Enumerate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, domain string) ([]string, error) {
			entered <- domain
			<-release
			return nil, nil
		}).Times(2)

	d := pipeline.NewDispatcher(t.Context(), f.orch, f.reg, 1, nil)
	first, err := d.Start(task.KindEnumerate, "one.com")
	require.NoError(t, err)
	require.Equal(t, "one.com", <-entered)

	second, err := d.Start(task.KindEnumerate, "two.com")
	require.NoError(t, err)

	// the second pipeline waits for the first one
	select {
	case domain := <-entered:
		t.Fatalf("pipeline for %s started over the limit", domain)
	case <-time.After(100 * time.Millisecond):
	}
	queued, err := f.reg.Get(second.ID)
	require.NoError(t, err)
	require.Equal(t, task.StatusInProgress, queued.Status)
	require.Zero(t, queued.Progress)

	close(release)
	require.Equal(t, "two.com", <-entered)
	require.NoError(t, d.Wait(t.Context()))
	waitStatus(t, f.reg, first.ID, task.StatusCompleted)
	waitStatus(t, f.reg, second.ID, task.StatusCompleted)
}

func TestDispatcher_ShuttingDown(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	reg := task.NewMemory(time.Hour)
	orch := pipeline.NewOrchestrator(mocks.NewMockEnumerator(ctrl), mocks.NewMockResolver(ctrl), mocks.NewMockProber(ctrl), mocks.NewMockStore(ctrl), reg, 0)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	d := pipeline.NewDispatcher(ctx, orch, reg, 0, nil)
	_, err := d.Start(task.KindProbe, "example.com")
	require.ErrorIs(t, err, pipeline.ErrShuttingDown)
}
