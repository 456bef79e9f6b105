// Package tool invokes the external reconnaissance binaries: an enumerator
// printing subdomain names line by line, and a resolver and a prober each
// reading one item on stdin and printing one JSON object.
package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/reconthing/reconthing/internal/log"
	"github.com/reconthing/reconthing/internal/metrics"
	"github.com/reconthing/reconthing/internal/model"
	"github.com/reconthing/reconthing/internal/parallel"
)

// FromConfig turns a configured tool into a Command.
func FromConfig(t model.Tool) (Command, error) {
	cmd := Command{
		Path: t.Path,
		Args: slices.Clone(t.Args),
	}
	if t.Timeout != "" {
		d, err := model.ParseISODuration(t.Timeout)
		if err != nil {
			return Command{}, fmt.Errorf("tool %s: timeout: %w", t.Path, err)
		}
		cmd.Timeout = d
	}
	return cmd, nil
}

// Name is the base name of the binary, used in logs and metrics.
func (c Command) Name() string {
	name := c.Path
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func (c Command) available() error {
	if _, err := exec.LookPath(c.Path); err != nil {
		return fmt.Errorf("%w: %s: %w", model.ErrToolUnavailable, c.Path, err)
	}
	return nil
}

func (c Command) with(args ...string) Command {
	c.Args = append(slices.Clone(c.Args), args...)
	return c
}

type Enumerator struct {
	Runner  Runner
	Command Command
	Metrics *metrics.Metrics
}

// Enumerate returns the distinct, lower-cased names found for domain. Names
// outside of domain or not valid as DNS names are dropped. A failing
// enumerator yields no names and no error.
func (e Enumerator) Enumerate(ctx context.Context, domain string) ([]string, error) {
	ctx = log.ContextAttrs(ctx, slog.String("tool", e.Command.Name()))
	res := e.Runner.Run(ctx, e.Command.with("-d", domain), nil)
	observe(e.Metrics, e.Command, res)
	if res.Err != nil {
		if errors.Is(res.Err, model.ErrToolUnavailable) {
			return nil, res.Err
		}
		if err := context.Cause(ctx); err != nil {
			return nil, err
		}
		slog.WarnContext(ctx, "enumeration failed", "domain", domain, "error", res.Err)
		return nil, nil
	}

	seen := make(map[string]struct{})
	var names []string
	for line := range strings.Lines(res.Stdout.String()) {
		name := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(line), "."))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if _, err := model.NormalizeDomain(name); err != nil || !model.IsSubdomainOf(name, domain) {
			slog.DebugContext(ctx, "dropping name", "name", name)
			continue
		}
		names = append(names, name)
	}
	slog.DebugContext(ctx, "enumerated", "domain", domain, "count", len(names))
	return names, nil
}

type Resolver struct {
	Runner      Runner
	Command     Command
	Concurrency int
	Metrics     *metrics.Metrics
}

// Resolve runs the resolver once per host. Hosts the resolver fails on are
// skipped. The order of the records is unspecified.
func (r Resolver) Resolve(ctx context.Context, hosts []string) ([]model.DNSRecord, error) {
	return perItem[model.DNSRecord](ctx, r.Runner, r.Command, r.Concurrency, r.Metrics, hosts)
}

type Prober struct {
	Runner      Runner
	Command     Command
	Concurrency int
	Metrics     *metrics.Metrics
}

// Probe runs the prober once per target. Targets the prober fails on are
// skipped. The order of the records is unspecified.
func (p Prober) Probe(ctx context.Context, targets []string) ([]model.ProbeRecord, error) {
	return perItem[model.ProbeRecord](ctx, p.Runner, p.Command, p.Concurrency, p.Metrics, targets)
}

func perItem[R any](ctx context.Context, runner Runner, cmd Command, limit int, m *metrics.Metrics, items []string) ([]R, error) {
	ctx = log.ContextAttrs(ctx, slog.String("tool", cmd.Name()))
	if err := cmd.available(); err != nil {
		m.ToolInvoked(cmd.Name(), metrics.OutcomeUnavailable, 0)
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	invoke := func(ctx context.Context, item string) (R, error) {
		var rec R
		res := runner.Run(ctx, cmd, strings.NewReader(item+"\n"))
		if res.Err != nil {
			observe(m, cmd, res)
			return rec, res.Err
		}
		if err := decodeFirst(res.Stdout, &rec); err != nil {
			m.ToolInvoked(cmd.Name(), metrics.OutcomeFailed, res.Stopped.Sub(res.Started))
			return rec, err
		}
		observe(m, cmd, res)
		return rec, nil
	}

	var out []R
	for res := range parallel.NewMap(ctx, limit, invoke).Iter(slices.Values(items)) {
		if res.Err != nil {
			slog.WarnContext(ctx, "skipping item", "item", res.In, "error", res.Err)
			continue
		}
		out = append(out, res.Out)
	}
	if err := context.Cause(ctx); err != nil {
		return out, err
	}
	return out, nil
}

var errNoOutput = errors.New("no output")

func decodeFirst(stdout *bytes.Buffer, v any) error {
	dec := json.NewDecoder(stdout)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errNoOutput
		}
		return fmt.Errorf("decoding output: %w", err)
	}
	return nil
}

func observe(m *metrics.Metrics, cmd Command, res Result) {
	var took time.Duration
	if !res.Started.IsZero() {
		took = res.Stopped.Sub(res.Started)
	}
	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(res.Err, model.ErrToolUnavailable):
		outcome = metrics.OutcomeUnavailable
	case res.Err != nil:
		outcome = metrics.OutcomeFailed
	}
	m.ToolInvoked(cmd.Name(), outcome, took)
}
