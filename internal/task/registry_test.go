package task_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/reconthing/reconthing/internal/model"
	"github.com/reconthing/reconthing/internal/task"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type clock struct {
	mx  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.now = t
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestMemory(t *testing.T) {
	t.Parallel()
	c := &clock{now: t0}
	reg := task.NewMemory(24*time.Hour, task.WithClock(c.Now))

	tsk := task.New(task.KindEnumerate, "example.com")
	require.NoError(t, reg.Create(tsk))
	require.ErrorIs(t, reg.Create(tsk), task.ErrExists)

	got, err := reg.Get(tsk.ID)
	require.NoError(t, err)
	require.Equal(t, task.StatusInProgress, got.Status)
	require.Equal(t, 0, got.Progress)
	require.Equal(t, t0, got.CreatedAt)

	c.Set(t0.Add(time.Minute))
	got.Status = task.StatusCompleted
	got.Progress = 100
	got.Subdomains = []string{"a.example.com"}
	require.NoError(t, reg.Update(got))

	// mutating the caller's copy doesn't leak into the registry
	got.Subdomains[0] = "mutated"
	stored, err := reg.Get(tsk.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"a.example.com"}, stored.Subdomains)
	require.Equal(t, t0, stored.CreatedAt)
	require.Equal(t, t0.Add(time.Minute), stored.UpdatedAt)

	// terminal state is final
	stored.Status = task.StatusFailed
	stored.Error = "late"
	require.ErrorIs(t, reg.Update(stored), task.ErrFinished)
	again, err := reg.Get(tsk.ID)
	require.NoError(t, err)
	require.Equal(t, task.StatusCompleted, again.Status)
	require.Empty(t, again.Error)

	_, err = reg.Get("unknown")
	require.ErrorIs(t, err, task.ErrNotFound)
	require.ErrorIs(t, reg.Update(task.Task{ID: "unknown"}), task.ErrNotFound)
	require.Error(t, reg.Create(task.Task{}))
}

func TestMemory_ProgressClamp(t *testing.T) {
	t.Parallel()
	reg := task.NewMemory(time.Hour)
	tsk := task.New(task.KindResolve, "example.com")
	require.NoError(t, reg.Create(tsk))
	tsk.Progress = 250
	require.NoError(t, reg.Update(tsk))
	got, err := reg.Get(tsk.ID)
	require.NoError(t, err)
	require.Equal(t, 100, got.Progress)
}

func TestSweep(t *testing.T) {
	t.Parallel()

	type given struct {
		status task.Status
		age    time.Duration
	}
	var testCases = []struct {
		scenario string
		given    given
		then     bool // swept
	}{
		{"completed 24h old", given{task.StatusCompleted, 24 * time.Hour}, true},
		{"failed 25h old", given{task.StatusFailed, 25 * time.Hour}, true},
		{"completed 1h old", given{task.StatusCompleted, time.Hour}, false},
		{"in progress 48h old", given{task.StatusInProgress, 48 * time.Hour}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			c := &clock{now: t0}
			reg := task.NewMemory(24*time.Hour, task.WithClock(c.Now))
			tsk := task.New(task.KindProbe, "example.com")
			require.NoError(t, reg.Create(tsk))
			tsk.Status = tc.given.status
			require.NoError(t, reg.Update(tsk))

			removed := reg.Sweep(t0.Add(tc.given.age))
			_, err := reg.Get(tsk.ID)
			if tc.then {
				require.Equal(t, 1, removed)
				require.ErrorIs(t, err, task.ErrNotFound)
			} else {
				require.Zero(t, removed)
				require.NoError(t, err)
			}
		})
	}
}

func TestMemory_Concurrent(t *testing.T) {
	t.Parallel()
	reg := task.NewMemory(time.Hour)
	tsk := task.New(task.KindResolve, "example.com")
	require.NoError(t, reg.Create(tsk))

	var wg sync.WaitGroup
	wg.Go(func() {
		cur := tsk
		for i := range 100 {
			cur.Progress = i + 1
			cur.Resolutions = append(cur.Resolutions, model.DNSRecord{Host: fmt.Sprintf("h%d.example.com", i)})
			if err := reg.Update(cur); err != nil {
				t.Errorf("update: %v", err)
				return
			}
		}
	})
	for range 4 {
		wg.Go(func() {
			for range 100 {
				got, err := reg.Get(tsk.ID)
				if err != nil {
					t.Errorf("get: %v", err)
					return
				}
				// a snapshot is never torn: progress matches the payload
				if got.Progress != len(got.Resolutions) {
					t.Errorf("torn read: progress %d, resolutions %d", got.Progress, len(got.Resolutions))
					return
				}
			}
		})
	}
	wg.Wait()
}

func TestTaskJSON(t *testing.T) {
	t.Parallel()

	resolve := task.Task{ID: "r1", Kind: task.KindResolve, Domain: "example.com", Status: task.StatusCompleted, Progress: 100, Resolutions: []model.DNSRecord{}}
	b, err := json.Marshal(resolve)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	require.Equal(t, []any{}, m["resolutions"])
	require.NotContains(t, m, "subdomains")
	require.NotContains(t, m, "probes")
	require.NotContains(t, m, "result")
	require.NotContains(t, m, "error")
	require.Equal(t, "r1", m["task_id"])
	require.Contains(t, m, "timestamp")

	recon := task.Task{ID: "b1", Kind: task.KindBasicRecon, Status: task.StatusCompleted, Progress: 100,
		Result: &task.ReconResult{SubdomainsAdded: 3, DNSResultsAdded: 3, HTTPResultsAdded: 2, TotalTime: "1.5s"}}
	b, err = json.Marshal(recon)
	require.NoError(t, err)
	var back task.Task
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, recon.Result, back.Result)
	require.Equal(t, task.KindBasicRecon, back.Kind)

	failed := task.Task{ID: "e1", Kind: task.KindEnumerate, Status: task.StatusFailed, Error: "boom"}
	b, err = json.Marshal(failed)
	require.NoError(t, err)
	require.Contains(t, string(b), `"error":"boom"`)
	require.Contains(t, string(b), `"subdomains":null`)
}

func TestKind(t *testing.T) {
	t.Parallel()
	require.True(t, task.KindBasicRecon.Valid())
	require.False(t, task.Kind("crawl").Valid())
	require.True(t, task.StatusFailed.Terminal())
	require.False(t, task.StatusInProgress.Terminal())
}
