// Package client talks to a running reconthing server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reconthing/reconthing/internal/model"
	"github.com/reconthing/reconthing/internal/task"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrPollTimeout = errors.New("task did not finish in time")
)

type route struct {
	start  string
	status string
}

var routes = map[task.Kind]route{
	task.KindEnumerate:  {"api/v1/enumerate", "api/v1/enumerate/status/"},
	task.KindResolve:    {"api/v1/dns/resolve", "api/v1/dns/resolve/status/"},
	task.KindProbe:      {"api/v1/http/probe", "api/v1/http/probe/status/"},
	task.KindBasicRecon: {"api/v1/automation/basic-recon", "api/v1/automation/task/"},
}

type Client struct {
	base   *url.URL
	client *http.Client
}

// New returns a client of the server at serverURL, which must have a
// scheme and a host and no path.
func New(serverURL string) (*Client, error) {
	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/")
	if parsedURL.Scheme == "" || parsedURL.Host == "" || parsedURL.Path != "" {
		return nil, errors.New("please define the server url with a scheme and without path, e.g. `http://localhost:8000`")
	}
	parsedURL.Path = "/"

	return &Client{
		base:   parsedURL,
		client: &http.Client{Timeout: time.Minute},
	}, nil
}

type StartResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message,omitempty"`
}

// Start asks the server to run the pipeline of kind on domain.
func (c *Client) Start(ctx context.Context, kind task.Kind, domain string) (StartResponse, error) {
	r, ok := routes[kind]
	if !ok {
		return StartResponse{}, fmt.Errorf("unknown pipeline %q", kind)
	}
	body, err := json.Marshal(map[string]string{"domain": domain})
	if err != nil {
		return StartResponse{}, err
	}
	var ret StartResponse
	if err := c.do(ctx, http.MethodPost, r.start, body, &ret); err != nil {
		return StartResponse{}, err
	}
	if ret.TaskID == "" {
		return StartResponse{}, errors.New("received unexpected body: missing task_id")
	}
	return ret, nil
}

func (c *Client) Status(ctx context.Context, kind task.Kind, id string) (task.Task, error) {
	r, ok := routes[kind]
	if !ok {
		return task.Task{}, fmt.Errorf("unknown pipeline %q", kind)
	}
	var t task.Task
	err := c.do(ctx, http.MethodGet, r.status+url.PathEscape(id), nil, &t)
	return t, err
}

// Poll reads the task status every interval until it is terminal, at most
// attempts times. onUpdate, if not nil, sees every status read. Errors other
// than ErrNotFound are logged and retried.
func (c *Client) Poll(ctx context.Context, kind task.Kind, id string, interval time.Duration, attempts int, onUpdate func(task.Task)) (task.Task, error) {
	var last task.Task
	for attempt := range attempts {
		if attempt > 0 {
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return last, ctx.Err()
			case <-timer.C:
			}
		}

		t, err := c.Status(ctx, kind, id)
		switch {
		case errors.Is(err, ErrNotFound):
			return last, err
		case err != nil:
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			slog.WarnContext(ctx, "polling task status failed", "task_id", id, "attempt", attempt+1, "error", err)
			continue
		}
		last = t
		if onUpdate != nil {
			onUpdate(t)
		}
		if t.Status.Terminal() {
			return t, nil
		}
	}
	return last, fmt.Errorf("%w: %d attempts", ErrPollTimeout, attempts)
}

func (c *Client) Subdomains(ctx context.Context, domain string) ([]model.Subdomain, error) {
	var ret []model.Subdomain
	err := c.do(ctx, http.MethodGet, "api/v1/subdomains/"+url.PathEscape(domain), nil, &ret)
	return ret, err
}

// Resolutions returns the stored resolutions of domain grouped by
// subdomain. With all set, subdomains with no resolution are included too.
func (c *Client) Resolutions(ctx context.Context, domain string, all bool) ([]model.SubdomainResolutions, error) {
	if all {
		var ret []model.SubdomainResolutions
		err := c.do(ctx, http.MethodGet, "api/v1/dns/subdomains-with-resolutions/"+url.PathEscape(domain), nil, &ret)
		return ret, err
	}

	var flat []model.DNSResolution
	if err := c.do(ctx, http.MethodGet, "api/v1/dns/resolutions/"+url.PathEscape(domain), nil, &flat); err != nil {
		return nil, err
	}
	var ret []model.SubdomainResolutions
	index := make(map[string]int)
	for _, r := range flat {
		i, ok := index[r.Subdomain]
		if !ok {
			i = len(ret)
			index[r.Subdomain] = i
			ret = append(ret, model.SubdomainResolutions{Subdomain: r.Subdomain})
		}
		ret[i].Resolutions = append(ret[i].Resolutions, r)
	}
	return ret, nil
}

func (c *Client) Probes(ctx context.Context, domain string) ([]model.HTTPProbeResult, error) {
	var ret []model.HTTPProbeResult
	err := c.do(ctx, http.MethodGet, "api/v1/http/probe/results/"+url.PathEscape(domain), nil, &ret)
	return ret, err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	u := c.base.JoinPath(path)
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	contentType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		contentType = ""
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if contentType != "application/json" {
			return fmt.Errorf("expected `application/json` content type, got: %s", contentType)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding json response failed: %w", err)
		}
		return nil
	}

	var problem struct {
		Detail string `json:"detail"`
	}
	if contentType == "application/json" {
		_ = json.NewDecoder(resp.Body).Decode(&problem)
	} else {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		problem.Detail = strings.TrimSpace(string(raw))
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, problem.Detail)
	}
	return fmt.Errorf("status code: %d, detail: %s", resp.StatusCode, problem.Detail)
}
