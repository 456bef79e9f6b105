package service

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/reconthing/reconthing/internal/model"

	"github.com/stretchr/testify/require"
)

func TestNewScheduler(t *testing.T) {
	t.Parallel()
	type then struct {
		err bool
	}
	var testCases = []struct {
		scenario string
		given    model.Sweep
		then     then
	}{
		{"cron", model.Sweep{Cron: "@hourly"}, then{false}},
		{"five fields", model.Sweep{Cron: "*/15 * * * *"}, then{false}},
		{"cron wins", model.Sweep{Cron: "@daily", Duration: "nope"}, then{false}},
		{"duration", model.Sweep{Duration: "PT10M"}, then{false}},
		{"bad cron", model.Sweep{Cron: "* * 32 * *"}, then{true}},
		{"bad duration", model.Sweep{Duration: "10m"}, then{true}},
		{"zero duration", model.Sweep{Duration: "PT0S"}, then{true}},
		{"empty", model.Sweep{}, then{true}},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			s, err := newScheduler(t.Context(), tc.given, func() {})
			if tc.then.err {
				require.Error(t, err)
				require.Nil(t, s)
				return
			}
			require.NoError(t, err)
			require.Len(t, s.Jobs(), 1)
			require.NoError(t, s.Shutdown())
		})
	}
}

func TestNewScheduler_Runs(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	s, err := newScheduler(t.Context(), model.Sweep{Cron: "@every 1s"}, func() { calls.Add(1) })
	require.NoError(t, err)
	s.Start()
	t.Cleanup(func() { _ = s.Shutdown() })

	require.Eventually(t, func() bool { return calls.Load() > 0 }, 5*time.Second, 50*time.Millisecond)
}
