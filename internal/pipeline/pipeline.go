// Package pipeline chains the reconnaissance tools and the result store
// into the enumerate, resolve, probe and basic recon pipelines, and runs
// them in the background on behalf of the task API.
package pipeline

//go:generate go run go.uber.org/mock/mockgen -source=pipeline.go -destination=mocks/mock_pipeline.go -package=mocks

import (
	"context"

	"github.com/reconthing/reconthing/internal/model"
)

type Enumerator interface {
	Enumerate(ctx context.Context, domain string) ([]string, error)
}

type Resolver interface {
	Resolve(ctx context.Context, hosts []string) ([]model.DNSRecord, error)
}

type Prober interface {
	Probe(ctx context.Context, targets []string) ([]model.ProbeRecord, error)
}

// Store is the part of the result store the pipelines write to and read
// back from.
type Store interface {
	UpsertSubdomains(ctx context.Context, domain string, names []string) (int, error)
	UpsertDNSResolutions(ctx context.Context, subdomainID int64, records []model.DNSRecord) (int, error)
	UpsertHTTPProbeResults(ctx context.Context, domain string, records []model.ProbeRecord) (int, error)
	Subdomains(ctx context.Context, domain string) ([]model.Subdomain, error)
	LatestResolutions(ctx context.Context, domain string) ([]model.DNSResolution, error)
}
