// Package task keeps the state of asynchronously executed pipelines in
// memory. State does not survive a restart.
package task

import (
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/reconthing/reconthing/internal/model"
)

var (
	ErrNotFound = errors.New("task not found")
	ErrExists   = errors.New("task already exists")
	ErrFinished = errors.New("task already finished")
)

type Kind string

const (
	KindEnumerate  Kind = "enumerate"
	KindResolve    Kind = "resolve"
	KindProbe      Kind = "probe"
	KindBasicRecon Kind = "basic_recon"
)

func (k Kind) Valid() bool {
	switch k {
	case KindEnumerate, KindResolve, KindProbe, KindBasicRecon:
		return true
	}
	return false
}

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ReconResult is the outcome of a basic recon pipeline.
type ReconResult struct {
	SubdomainsAdded  int    `json:"subdomains_added"`
	DNSResultsAdded  int    `json:"dns_results_added"`
	HTTPResultsAdded int    `json:"http_results_added"`
	TotalTime        string `json:"total_time"`
}

// Task is the observable state of one pipeline execution. Only the payload
// matching Kind is meaningful.
type Task struct {
	ID          string              `json:"task_id"`
	Kind        Kind                `json:"kind"`
	Domain      string              `json:"domain"`
	Status      Status              `json:"status"`
	Progress    int                 `json:"progress"`
	Subdomains  []string            `json:"subdomains"`
	Resolutions []model.DNSRecord   `json:"resolutions"`
	Probes      []model.ProbeRecord `json:"probes"`
	Result      *ReconResult        `json:"result"`
	Error       string              `json:"error"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"timestamp"`
}

// New returns an in-progress task with a fresh identifier.
func New(kind Kind, domain string) Task {
	return Task{
		ID:     uuid.NewString(),
		Kind:   kind,
		Domain: domain,
		Status: StatusInProgress,
	}
}

// MarshalJSON writes the payload field of the task kind only.
func (t Task) MarshalJSON() ([]byte, error) {
	type out struct {
		ID          string               `json:"task_id"`
		Kind        Kind                 `json:"kind"`
		Domain      string               `json:"domain"`
		Status      Status               `json:"status"`
		Progress    int                  `json:"progress"`
		Subdomains  *[]string            `json:"subdomains,omitempty"`
		Resolutions *[]model.DNSRecord   `json:"resolutions,omitempty"`
		Probes      *[]model.ProbeRecord `json:"probes,omitempty"`
		Result      *ReconResult         `json:"result,omitempty"`
		Error       string               `json:"error,omitempty"`
		CreatedAt   time.Time            `json:"created_at"`
		UpdatedAt   time.Time            `json:"timestamp"`
	}
	o := out{
		ID:        t.ID,
		Kind:      t.Kind,
		Domain:    t.Domain,
		Status:    t.Status,
		Progress:  t.Progress,
		Error:     t.Error,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	switch t.Kind {
	case KindEnumerate:
		o.Subdomains = &t.Subdomains
	case KindResolve:
		o.Resolutions = &t.Resolutions
	case KindProbe:
		o.Probes = &t.Probes
	case KindBasicRecon:
		o.Result = t.Result
	}
	return json.Marshal(o)
}

func (t Task) clone() Task {
	t.Subdomains = slices.Clone(t.Subdomains)
	t.Resolutions = slices.Clone(t.Resolutions)
	t.Probes = slices.Clone(t.Probes)
	if t.Result != nil {
		r := *t.Result
		t.Result = &r
	}
	return t
}
