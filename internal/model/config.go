package model

import (
	"fmt"
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	"github.com/reconthing/reconthing/internal/log"

	_ "embed"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource, cue.Filename("config.cue"))
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
}

type Config struct {
	Version  int      `json:"version" yaml:"version"`
	Server   Server   `json:"server" yaml:"server"`
	Database Database `json:"database" yaml:"database"`
	Tools    Tools    `json:"tools" yaml:"tools"`
	Pipeline Pipeline `json:"pipeline" yaml:"pipeline"`
	Tasks    Tasks    `json:"tasks" yaml:"tasks"`
	Service  Service  `json:"service" yaml:"service"`
	Client   Client   `json:"client" yaml:"client"`
}

type Server struct {
	Addr            string `json:"addr,omitempty" yaml:"addr"`
	ShutdownTimeout string `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout"`
}

type Database struct {
	Driver string `json:"driver,omitempty" yaml:"driver"` // "sqlite" | "postgres"
	DSN    string `json:"dsn,omitempty" yaml:"dsn"`
}

// Tool describes how an external binary is invoked.
type Tool struct {
	Path    string   `json:"path" yaml:"path"`
	Args    []string `json:"args,omitempty" yaml:"args"`
	Timeout string   `json:"timeout,omitempty" yaml:"timeout"`
}

type Tools struct {
	Enumerator  Tool `json:"enumerator" yaml:"enumerator"`
	Resolver    Tool `json:"resolver" yaml:"resolver"`
	Prober      Tool `json:"prober" yaml:"prober"`
	Concurrency int  `json:"concurrency,omitempty" yaml:"concurrency"`
}

type Pipeline struct {
	ResolveBatchSize int `json:"resolve_batch_size,omitempty" yaml:"resolve_batch_size"`
	MaxRunning       int `json:"max_running,omitempty" yaml:"max_running"`
}

type Tasks struct {
	Retention string `json:"retention,omitempty" yaml:"retention"`
	Sweep     Sweep  `json:"sweep" yaml:"sweep"`
}

// Sweep is either a cron expression or an ISO-8601 duration, cron wins.
type Sweep struct {
	Cron     string `json:"cron,omitempty" yaml:"cron,omitempty"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
}

type Service struct {
	Verbose bool   `json:"verbose,omitempty" yaml:"verbose"`
	Log     string `json:"log,omitempty" yaml:"log"` // "stderr"|"stdout"|"discard"|path
}

type Client struct {
	URL      string `json:"url,omitempty" yaml:"url"`
	Interval string `json:"interval,omitempty" yaml:"interval"`
	Attempts int    `json:"attempts,omitempty" yaml:"attempts"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Version: 0,
		Server: Server{
			Addr:            ":8000",
			ShutdownTimeout: "PT30S",
		},
		Database: Database{
			Driver: DriverSQLite,
			DSN:    "reconthing.db",
		},
		Tools: Tools{
			Enumerator: Tool{
				Path:    "subfinder",
				Args:    []string{"-silent"},
				Timeout: "PT30M",
			},
			Resolver: Tool{
				Path:    "dnsx",
				Args:    []string{"-a", "-resp", "-json", "-silent"},
				Timeout: "PT1M",
			},
			Prober: Tool{
				Path:    "httpx",
				Args:    []string{"-silent", "-status-code", "-title", "-content-length", "-tech-detect", "-json"},
				Timeout: "PT1M",
			},
			Concurrency: 1,
		},
		Pipeline: Pipeline{
			ResolveBatchSize: 1000,
			MaxRunning:       0,
		},
		Tasks: Tasks{
			Retention: "P1D",
			Sweep:     Sweep{Cron: "@hourly"},
		},
		Service: Service{
			Log: log.Stderr,
		},
		Client: Client{
			URL:      "http://localhost:8000",
			Interval: "PT30S",
			Attempts: 120,
		},
	}
}

// LoadConfig validates YAML from r against the CUE schema, decodes it
// and fills every unset value from DefaultConfig.
func LoadConfig(r io.Reader) (*Config, error) {
	yamlFile, err := yaml.Extract("reconthing.yaml", r)
	if err != nil {
		return nil, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),
		cue.Concrete(true),
	); err != nil {
		return nil, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return nil, err
	}
	out.fill(DefaultConfig())
	if err := out.check(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Config) fill(d Config) {
	setString(&c.Server.Addr, d.Server.Addr)
	setString(&c.Server.ShutdownTimeout, d.Server.ShutdownTimeout)
	setString(&c.Database.Driver, d.Database.Driver)
	setString(&c.Database.DSN, d.Database.DSN)
	c.Tools.Enumerator.fill(d.Tools.Enumerator)
	c.Tools.Resolver.fill(d.Tools.Resolver)
	c.Tools.Prober.fill(d.Tools.Prober)
	setInt(&c.Tools.Concurrency, d.Tools.Concurrency)
	setInt(&c.Pipeline.ResolveBatchSize, d.Pipeline.ResolveBatchSize)
	setString(&c.Tasks.Retention, d.Tasks.Retention)
	if c.Tasks.Sweep.Cron == "" && c.Tasks.Sweep.Duration == "" {
		c.Tasks.Sweep = d.Tasks.Sweep
	}
	setString(&c.Service.Log, d.Service.Log)
	setString(&c.Client.URL, d.Client.URL)
	setString(&c.Client.Interval, d.Client.Interval)
	setInt(&c.Client.Attempts, d.Client.Attempts)
}

func (t *Tool) fill(d Tool) {
	if t.Path == "" {
		*t = d
		return
	}
	setString(&t.Timeout, d.Timeout)
}

func (c Config) check() error {
	durations := map[string]string{
		"server.shutdown_timeout":  c.Server.ShutdownTimeout,
		"tools.enumerator.timeout": c.Tools.Enumerator.Timeout,
		"tools.resolver.timeout":   c.Tools.Resolver.Timeout,
		"tools.prober.timeout":     c.Tools.Prober.Timeout,
		"tasks.retention":          c.Tasks.Retention,
		"client.interval":          c.Client.Interval,
	}
	if c.Tasks.Sweep.Duration != "" {
		durations["tasks.sweep.duration"] = c.Tasks.Sweep.Duration
	}
	for path, value := range durations {
		if _, err := ParseISODuration(value); err != nil {
			return fmt.Errorf("%s: %q: %w", path, value, err)
		}
	}
	if c.Tasks.Sweep.Cron != "" {
		if _, err := ParseCron(c.Tasks.Sweep.Cron); err != nil {
			return fmt.Errorf("tasks.sweep.cron: %w", err)
		}
	}
	return nil
}

func setString(dst *string, dflt string) {
	if *dst == "" {
		*dst = dflt
	}
}

func setInt(dst *int, dflt int) {
	if *dst == 0 {
		*dst = dflt
	}
}
