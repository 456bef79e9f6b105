package model

import (
	"encoding/json"
	"time"
)

// Subdomain is unique per (Domain, Name).
type Subdomain struct {
	ID        int64     `json:"id"`
	Domain    string    `json:"domain"`
	Name      string    `json:"subdomain"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DNSResolution is unique per (SubdomainID, ResolvedDomain). The latest
// resolution of a subdomain is the one with the greatest CreatedAt.
type DNSResolution struct {
	ID             int64           `json:"-"`
	SubdomainID    int64           `json:"-"`
	Subdomain      string          `json:"subdomain"`
	ResolvedDomain string          `json:"resolved_domain"`
	IPAddress      *string         `json:"ip_address"`
	TTL            *int            `json:"ttl"`
	Raw            json.RawMessage `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SubdomainResolutions groups every stored resolution of one subdomain.
type SubdomainResolutions struct {
	Subdomain   string          `json:"subdomain"`
	Resolutions []DNSResolution `json:"resolutions"`
}

// HTTPProbeResult is unique per (SubdomainID, URL).
type HTTPProbeResult struct {
	ID            int64           `json:"-"`
	SubdomainID   int64           `json:"-"`
	Subdomain     string          `json:"subdomain"`
	URL           string          `json:"url"`
	StatusCode    *int            `json:"status_code"`
	Title         *string         `json:"title"`
	ContentLength *int            `json:"content_length"`
	Technologies  []string        `json:"technologies"`
	Webserver     *string         `json:"webserver"`
	CDNName       *string         `json:"cdn_name"`
	CDNType       *string         `json:"cdn_type"`
	IPAddress     *string         `json:"ip_address"`
	ResponseTime  *string         `json:"response_time"`
	Raw           json.RawMessage `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
}

// DNSRecord is one JSON object emitted by the resolver. Host is decoded in
// its canonical form, Raw keeps the object as emitted and is what the record
// marshals back to.
type DNSRecord struct {
	Host string
	A    []string
	TTL  *int
	Raw  json.RawMessage
}

func (r *DNSRecord) UnmarshalJSON(b []byte) error {
	type plain struct {
		Host string   `json:"host"`
		A    []string `json:"a"`
		TTL  *int     `json:"ttl"`
	}
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = DNSRecord{Host: CanonicalHost(p.Host), A: p.A, TTL: p.TTL, Raw: append(json.RawMessage(nil), b...)}
	return nil
}

func (r DNSRecord) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	type plain struct {
		Host string   `json:"host"`
		A    []string `json:"a,omitempty"`
		TTL  *int     `json:"ttl,omitempty"`
	}
	return json.Marshal(plain{Host: r.Host, A: r.A, TTL: r.TTL})
}

// IP returns the first A record, if any.
func (r DNSRecord) IP() *string {
	if len(r.A) == 0 {
		return nil
	}
	ip := r.A[0]
	return &ip
}

// ProbeRecord is one JSON object emitted by the prober. Input is the
// target as written to the prober stdin.
type ProbeRecord struct {
	Input         string
	URL           string
	StatusCode    *int
	Title         *string
	ContentLength *int
	Tech          []string
	Webserver     *string
	Host          *string
	Time          *string
	CDNName       *string
	CDNType       *string
	Raw           json.RawMessage
}

type probeJSON struct {
	Input         string   `json:"input"`
	URL           string   `json:"url"`
	StatusCode    *int     `json:"status_code,omitempty"`
	Title         *string  `json:"title,omitempty"`
	ContentLength *int     `json:"content_length,omitempty"`
	Tech          []string `json:"tech,omitempty"`
	Webserver     *string  `json:"webserver,omitempty"`
	Host          *string  `json:"host,omitempty"`
	Time          *string  `json:"time,omitempty"`
	CDNName       *string  `json:"cdn_name,omitempty"`
	CDNType       *string  `json:"cdn_type,omitempty"`
}

func (r *ProbeRecord) UnmarshalJSON(b []byte) error {
	var p probeJSON
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = ProbeRecord{
		Input:         p.Input,
		URL:           p.URL,
		StatusCode:    p.StatusCode,
		Title:         p.Title,
		ContentLength: p.ContentLength,
		Tech:          p.Tech,
		Webserver:     p.Webserver,
		Host:          p.Host,
		Time:          p.Time,
		CDNName:       p.CDNName,
		CDNType:       p.CDNType,
		Raw:           append(json.RawMessage(nil), b...),
	}
	return nil
}

func (r ProbeRecord) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(probeJSON{
		Input:         r.Input,
		URL:           r.URL,
		StatusCode:    r.StatusCode,
		Title:         r.Title,
		ContentLength: r.ContentLength,
		Tech:          r.Tech,
		Webserver:     r.Webserver,
		Host:          r.Host,
		Time:          r.Time,
		CDNName:       r.CDNName,
		CDNType:       r.CDNType,
	})
}
