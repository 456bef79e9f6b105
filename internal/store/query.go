package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/reconthing/reconthing/internal/model"
)

// Subdomains returns the subdomains stored under domain.
func (s *Store) Subdomains(ctx context.Context, domain string) ([]model.Subdomain, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT id, domain, subdomain, created_at, updated_at
		FROM subdomains
		WHERE domain = ?
		ORDER BY id`), domain)
	if err != nil {
		return nil, fmt.Errorf("executing sql query failed: %w", err)
	}
	defer rows.Close()

	var ret []model.Subdomain
	for rows.Next() {
		var sub model.Subdomain
		if err := rows.Scan(&sub.ID, &sub.Domain, &sub.Name, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, err
		}
		sub.CreatedAt = sub.CreatedAt.UTC()
		sub.UpdatedAt = sub.UpdatedAt.UTC()
		ret = append(ret, sub)
	}
	return ret, rows.Err()
}

const resolutionColumns = `r.id, r.subdomain_id, s.subdomain, r.resolved_domain, r.ip_address, r.ttl, r.raw_data, r.created_at`

// DNSResolutions returns every stored resolution of every subdomain of
// domain.
func (s *Store) DNSResolutions(ctx context.Context, domain string) ([]model.DNSResolution, error) {
	return s.resolutions(ctx,
		`SELECT `+resolutionColumns+`
		FROM dns_resolutions r
		JOIN subdomains s ON s.id = r.subdomain_id
		WHERE s.domain = ?
		ORDER BY s.subdomain, r.resolved_domain`, domain)
}

// LatestResolutions returns, per subdomain of domain, the resolution with
// the greatest creation time.
func (s *Store) LatestResolutions(ctx context.Context, domain string) ([]model.DNSResolution, error) {
	return s.resolutions(ctx,
		`SELECT `+resolutionColumns+`
		FROM dns_resolutions r
		JOIN (
			SELECT subdomain_id, MAX(created_at) AS latest
			FROM dns_resolutions
			GROUP BY subdomain_id
		) l ON l.subdomain_id = r.subdomain_id AND l.latest = r.created_at
		JOIN subdomains s ON s.id = r.subdomain_id
		WHERE s.domain = ?
		ORDER BY s.subdomain, r.resolved_domain`, domain)
}

func (s *Store) resolutions(ctx context.Context, query string, args ...any) ([]model.DNSResolution, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("executing sql query failed: %w", err)
	}
	defer rows.Close()

	var ret []model.DNSResolution
	for rows.Next() {
		var r model.DNSResolution
		var raw []byte
		if err := rows.Scan(&r.ID, &r.SubdomainID, &r.Subdomain, &r.ResolvedDomain, &r.IPAddress, &r.TTL, &raw, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Raw = raw
		r.CreatedAt = r.CreatedAt.UTC()
		ret = append(ret, r)
	}
	return ret, rows.Err()
}

// SubdomainsWithResolutions returns every subdomain of domain together with
// its resolutions, read with a single query.
func (s *Store) SubdomainsWithResolutions(ctx context.Context, domain string) ([]model.SubdomainResolutions, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT s.id, s.subdomain, r.id, r.resolved_domain, r.ip_address, r.ttl, r.created_at
		FROM subdomains s
		LEFT JOIN dns_resolutions r ON r.subdomain_id = s.id
		WHERE s.domain = ?
		ORDER BY s.id, r.resolved_domain`), domain)
	if err != nil {
		return nil, fmt.Errorf("executing sql query failed: %w", err)
	}
	defer rows.Close()

	var ret []model.SubdomainResolutions
	lastID := int64(-1)
	for rows.Next() {
		var (
			subID      int64
			name       string
			resID      sql.NullInt64
			resolved   sql.NullString
			ip         *string
			ttl        *int
			resCreated sql.NullTime
		)
		if err := rows.Scan(&subID, &name, &resID, &resolved, &ip, &ttl, &resCreated); err != nil {
			return nil, err
		}
		if subID != lastID {
			ret = append(ret, model.SubdomainResolutions{Subdomain: name, Resolutions: []model.DNSResolution{}})
			lastID = subID
		}
		if !resID.Valid {
			continue
		}
		cur := &ret[len(ret)-1]
		cur.Resolutions = append(cur.Resolutions, model.DNSResolution{
			ID:             resID.Int64,
			SubdomainID:    subID,
			Subdomain:      name,
			ResolvedDomain: resolved.String,
			IPAddress:      ip,
			TTL:            ttl,
			CreatedAt:      resCreated.Time.UTC(),
		})
	}
	return ret, rows.Err()
}

// HTTPProbeResults returns the probe results of domain. The address is the
// one of the subdomain's resolution, or the prober reported host when the
// subdomain has not been resolved.
func (s *Store) HTTPProbeResults(ctx context.Context, domain string) ([]model.HTTPProbeResult, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT p.id, p.subdomain_id, s.subdomain, p.url, p.status_code, p.title, p.content_length,
			p.technologies, p.webserver, p.cdn_name, p.cdn_type,
			COALESCE(r.ip_address, p.ip_address), p.response_time, p.raw_data, p.created_at
		FROM http_probe_results p
		JOIN subdomains s ON s.id = p.subdomain_id
		LEFT JOIN dns_resolutions r ON r.subdomain_id = s.id AND r.resolved_domain = s.subdomain
		WHERE s.domain = ?
		ORDER BY s.subdomain, p.url`), domain)
	if err != nil {
		return nil, fmt.Errorf("executing sql query failed: %w", err)
	}
	defer rows.Close()

	var ret []model.HTTPProbeResult
	for rows.Next() {
		var p model.HTTPProbeResult
		var tech, raw []byte
		var created time.Time
		if err := rows.Scan(
			&p.ID, &p.SubdomainID, &p.Subdomain, &p.URL, &p.StatusCode, &p.Title, &p.ContentLength,
			&tech, &p.Webserver, &p.CDNName, &p.CDNType,
			&p.IPAddress, &p.ResponseTime, &raw, &created,
		); err != nil {
			return nil, err
		}
		if len(tech) > 0 {
			if err := json.Unmarshal(tech, &p.Technologies); err != nil {
				return nil, fmt.Errorf("decoding technologies of %s: %w", p.URL, err)
			}
		}
		p.Raw = raw
		p.CreatedAt = created.UTC()
		ret = append(ret, p)
	}
	return ret, rows.Err()
}
