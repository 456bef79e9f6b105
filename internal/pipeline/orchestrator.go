package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/reconthing/reconthing/internal/model"
	"github.com/reconthing/reconthing/internal/task"
)

// DefaultBatchSize is the number of subdomains resolved between two
// progress reports.
const DefaultBatchSize = 1000

type Orchestrator struct {
	enumerator Enumerator
	resolver   Resolver
	prober     Prober
	store      Store
	registry   task.Registry
	batchSize  int
	now        func() time.Time
}

func NewOrchestrator(e Enumerator, r Resolver, p Prober, s Store, reg task.Registry, batchSize int) *Orchestrator {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Orchestrator{
		enumerator: e,
		resolver:   r,
		prober:     p,
		store:      s,
		registry:   reg,
		batchSize:  batchSize,
		now:        time.Now,
	}
}

// Run executes the pipeline of t.Kind and records the outcome in the
// registry. The task must already be registered.
func (o *Orchestrator) Run(ctx context.Context, t task.Task) task.Task {
	var err error
	switch t.Kind {
	case task.KindEnumerate:
		t.Subdomains, err = o.runEnumerate(ctx, t.Domain)
	case task.KindResolve:
		t.Resolutions, err = o.runResolve(ctx, t)
	case task.KindProbe:
		t.Probes, err = o.runProbe(ctx, t.Domain)
	case task.KindBasicRecon:
		t.Result, err = o.runBasicRecon(ctx, t.Domain)
	default:
		err = fmt.Errorf("unknown pipeline %q", t.Kind)
	}

	if err != nil {
		slog.ErrorContext(ctx, "pipeline failed", "error", err)
		return o.fail(ctx, t, err.Error())
	}
	t.Status = task.StatusCompleted
	t.Progress = 100
	t.Error = ""
	o.update(ctx, t)
	slog.InfoContext(ctx, "pipeline completed")
	return t
}

func (o *Orchestrator) fail(ctx context.Context, t task.Task, reason string) task.Task {
	t.Status = task.StatusFailed
	t.Error = reason
	o.update(ctx, t)
	return t
}

func (o *Orchestrator) update(ctx context.Context, t task.Task) {
	if err := o.registry.Update(t); err != nil {
		slog.ErrorContext(ctx, "updating task", "error", err)
	}
}

func (o *Orchestrator) runEnumerate(ctx context.Context, domain string) ([]string, error) {
	names, _, err := o.enumerateStage(ctx, domain)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (o *Orchestrator) runResolve(ctx context.Context, t task.Task) ([]model.DNSRecord, error) {
	subs, err := o.store.Subdomains(ctx, t.Domain)
	if err != nil {
		return nil, fmt.Errorf("reading subdomains: %w", err)
	}
	report := func(progress int, resolved []model.DNSRecord) {
		t.Progress = progress
		t.Resolutions = resolved
		o.update(ctx, t)
	}
	resolved, _, err := o.resolveStage(ctx, subs, report)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		resolved = []model.DNSRecord{}
	}
	return resolved, nil
}

func (o *Orchestrator) runProbe(ctx context.Context, domain string) ([]model.ProbeRecord, error) {
	probes, _, err := o.probeStage(ctx, domain)
	if err != nil {
		return nil, err
	}
	if probes == nil {
		probes = []model.ProbeRecord{}
	}
	return probes, nil
}

func (o *Orchestrator) runBasicRecon(ctx context.Context, domain string) (*task.ReconResult, error) {
	start := o.now()

	_, subsAdded, err := o.enumerateStage(ctx, domain)
	if err != nil {
		return nil, err
	}

	// everything known for the domain, including earlier runs
	subs, err := o.store.Subdomains(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("reading subdomains: %w", err)
	}
	_, dnsAdded, err := o.resolveStage(ctx, subs, nil)
	if err != nil {
		return nil, err
	}

	_, httpAdded, err := o.probeStage(ctx, domain)
	if err != nil {
		return nil, err
	}

	return &task.ReconResult{
		SubdomainsAdded:  subsAdded,
		DNSResultsAdded:  dnsAdded,
		HTTPResultsAdded: httpAdded,
		TotalTime:        o.now().Sub(start).String(),
	}, nil
}

// enumerateStage runs the enumerator and persists what it found.
func (o *Orchestrator) enumerateStage(ctx context.Context, domain string) ([]string, int, error) {
	names, err := o.enumerator.Enumerate(ctx, domain)
	if err := absorbUnavailable(ctx, "enumerator", err); err != nil {
		return nil, 0, err
	}
	if len(names) == 0 {
		slog.InfoContext(ctx, "no subdomains enumerated")
		return names, 0, nil
	}
	added, err := o.store.UpsertSubdomains(ctx, domain, names)
	if err != nil {
		return nil, 0, fmt.Errorf("storing subdomains: %w", err)
	}
	slog.InfoContext(ctx, "enumeration done", "found", len(names), "stored", added)
	return names, added, nil
}

// resolveStage resolves subs batch by batch. Each record is stored under
// the subdomain its host names; report, if set, is called after every
// batch with the progress and every record resolved so far.
func (o *Orchestrator) resolveStage(ctx context.Context, subs []model.Subdomain, report func(int, []model.DNSRecord)) ([]model.DNSRecord, int, error) {
	total := len(subs)
	if total == 0 {
		return nil, 0, nil
	}

	var resolved []model.DNSRecord
	added := 0
	processed := 0
	for batch := range slices.Chunk(subs, o.batchSize) {
		hosts := make([]string, len(batch))
		for i, s := range batch {
			hosts[i] = s.Name
		}

		records, err := o.resolver.Resolve(ctx, hosts)
		if errors.Is(err, model.ErrToolUnavailable) {
			slog.WarnContext(ctx, "resolver unavailable, no resolutions", "error", err)
			return resolved, added, nil
		}
		if err != nil {
			return nil, 0, fmt.Errorf("resolving: %w", err)
		}
		resolved = append(resolved, records...)

		byHost := make(map[string][]model.DNSRecord, len(records))
		for _, rec := range records {
			host := model.CanonicalHost(rec.Host)
			byHost[host] = append(byHost[host], rec)
		}
		for _, s := range batch {
			recs := byHost[s.Name]
			if len(recs) == 0 {
				continue
			}
			n, err := o.store.UpsertDNSResolutions(ctx, s.ID, recs)
			if err != nil {
				return nil, 0, fmt.Errorf("storing resolutions of %s: %w", s.Name, err)
			}
			added += n
		}

		processed += len(batch)
		if report != nil {
			report(min(100, processed*100/total), slices.Clone(resolved))
		}
	}
	slog.InfoContext(ctx, "resolution done", "subdomains", total, "resolved", len(resolved), "stored", added)
	return resolved, added, nil
}

// probeStage probes the hosts of the latest resolution of every subdomain
// of domain and persists the results.
func (o *Orchestrator) probeStage(ctx context.Context, domain string) ([]model.ProbeRecord, int, error) {
	latest, err := o.store.LatestResolutions(ctx, domain)
	if err != nil {
		return nil, 0, fmt.Errorf("reading resolutions: %w", err)
	}
	seen := make(map[string]struct{}, len(latest))
	targets := make([]string, 0, len(latest))
	for _, r := range latest {
		if _, ok := seen[r.ResolvedDomain]; ok {
			continue
		}
		seen[r.ResolvedDomain] = struct{}{}
		targets = append(targets, r.ResolvedDomain)
	}
	if len(targets) == 0 {
		slog.WarnContext(ctx, "no resolved hosts to probe")
		return nil, 0, nil
	}

	probes, err := o.prober.Probe(ctx, targets)
	if err := absorbUnavailable(ctx, "prober", err); err != nil {
		return nil, 0, err
	}
	if len(probes) == 0 {
		return probes, 0, nil
	}
	added, err := o.store.UpsertHTTPProbeResults(ctx, domain, probes)
	if err != nil {
		return nil, 0, fmt.Errorf("storing probe results: %w", err)
	}
	slog.InfoContext(ctx, "probing done", "targets", len(targets), "probed", len(probes), "stored", added)
	return probes, added, nil
}

func absorbUnavailable(ctx context.Context, what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrToolUnavailable):
		slog.WarnContext(ctx, what+" unavailable, no results", "error", err)
		return nil
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
