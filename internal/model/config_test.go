package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/reconthing/reconthing/internal/log"
	"github.com/reconthing/reconthing/internal/model"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	yml := `
version: 0
database:
  driver: postgres
  dsn: postgres://recon@localhost/recon?sslmode=disable
tools:
  resolver:
    path: /opt/bin/dnsx
  concurrency: 4
tasks:
  sweep:
    duration: PT10M
service:
  verbose: true
`
	cfg, err := model.LoadConfig(strings.NewReader(yml))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	require.Equal(t, model.DriverPostgres, cfg.Database.Driver)
	require.Equal(t, "postgres://recon@localhost/recon?sslmode=disable", cfg.Database.DSN)
	require.Equal(t, "/opt/bin/dnsx", cfg.Tools.Resolver.Path)
	require.Empty(t, cfg.Tools.Resolver.Args)
	require.Equal(t, "PT1M", cfg.Tools.Resolver.Timeout)
	require.Equal(t, "subfinder", cfg.Tools.Enumerator.Path)
	require.Equal(t, 4, cfg.Tools.Concurrency)
	require.Equal(t, "PT10M", cfg.Tasks.Sweep.Duration)
	require.Empty(t, cfg.Tasks.Sweep.Cron)
	require.True(t, cfg.Service.Verbose)

	// defaults
	require.Equal(t, ":8000", cfg.Server.Addr)
	require.Equal(t, 1000, cfg.Pipeline.ResolveBatchSize)
	require.Equal(t, "P1D", cfg.Tasks.Retention)
	require.Equal(t, log.Stderr, cfg.Service.Log)
	require.Equal(t, 120, cfg.Client.Attempts)
}

func TestLoadConfig_Minimal(t *testing.T) {
	cfg, err := model.LoadConfig(strings.NewReader("version: 0\n"))
	require.NoError(t, err)
	require.Equal(t, model.DefaultConfig(), *cfg)
}

func TestLoadConfig_Fail(t *testing.T) {
	var testCases = []struct {
		scenario string
		given    string
		then     string
	}{
		{
			scenario: "unknown driver",
			given:    "version: 0\ndatabase:\n  driver: mysql\n",
			then:     "database.driver",
		},
		{
			scenario: "tool without path",
			given:    "version: 0\ntools:\n  prober:\n    args: [-json]\n",
			then:     "tools.prober.path",
		},
		{
			scenario: "bad duration",
			given:    "version: 0\ntasks:\n  retention: 1d\n",
			then:     "tasks.retention",
		},
		{
			scenario: "unknown field",
			given:    "version: 0\nserver:\n  port: 80\n",
			then:     "server.port",
		},
		{
			scenario: "zero batch",
			given:    "version: 0\npipeline:\n  resolve_batch_size: 0\n",
			then:     "pipeline.resolve_batch_size",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			_, err := model.LoadConfig(strings.NewReader(tc.given))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.then)
			require.NotEmpty(t, model.CueErrDetails(err))
		})
	}
}

func TestLoadConfig_BadCron(t *testing.T) {
	_, err := model.LoadConfig(strings.NewReader("version: 0\ntasks:\n  sweep:\n    cron: \"61 * * * *\"\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "tasks.sweep.cron")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("RECONTHING_DATABASE_DSN", "/var/lib/reconthing/recon.db")
	t.Setenv("RECONTHING_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("RECONTHING_SERVICE_VERBOSE", "true")

	cfg := model.DefaultConfig()
	model.ApplyEnv(&cfg)
	require.Equal(t, "/var/lib/reconthing/recon.db", cfg.Database.DSN)
	require.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	require.True(t, cfg.Service.Verbose)
	require.Equal(t, model.DriverSQLite, cfg.Database.Driver)
}

func TestParseISODuration(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		given string
		then  time.Duration
	}{
		{"P1D", 24 * time.Hour},
		{"PT1H30M", 90 * time.Minute},
		{"PT30S", 30 * time.Second},
		{"PT0.5S", 500 * time.Millisecond},
		{"P1DT1S", 24*time.Hour + time.Second},
	}
	for _, tc := range testCases {
		d, err := model.ParseISODuration(tc.given)
		require.NoError(t, err, tc.given)
		require.Equal(t, tc.then, d, tc.given)
	}

	for _, bad := range []string{"", "P", "PT", "P1DT", "1D", "P1W", "PT-1S", "P99999999999999D"} {
		_, err := model.ParseISODuration(bad)
		require.ErrorIs(t, err, model.ErrISOFormat, bad)
	}
}

func TestParseCron(t *testing.T) {
	t.Parallel()
	d, err := model.ParseCron("@hourly")
	require.NoError(t, err)
	require.Equal(t, time.Hour, d)

	d, err = model.ParseCron("*/5 * * * *")
	require.NoError(t, err)
	require.Equal(t, 5*time.Minute, d)

	d, err = model.ParseCron("@every 90s")
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, d)

	_, err = model.ParseCron("")
	require.Error(t, err)
	_, err = model.ParseCron("* * *")
	require.Error(t, err)
}
