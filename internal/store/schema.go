package store

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/reconthing/reconthing/internal/model"
)

type dialect struct {
	driver string
	schema []string
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS subdomains (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL,
		subdomain TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		CONSTRAINT uix_domain_subdomain UNIQUE (domain, subdomain)
	)`,
	`CREATE TABLE IF NOT EXISTS dns_resolutions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subdomain_id INTEGER NOT NULL REFERENCES subdomains (id),
		resolved_domain TEXT NOT NULL,
		ip_address TEXT,
		ttl INTEGER,
		raw_data TEXT,
		created_at TIMESTAMP NOT NULL,
		CONSTRAINT uix_subdomain_resolved_domain UNIQUE (subdomain_id, resolved_domain)
	)`,
	`CREATE TABLE IF NOT EXISTS http_probe_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subdomain_id INTEGER NOT NULL REFERENCES subdomains (id),
		url TEXT NOT NULL,
		status_code INTEGER,
		title TEXT,
		content_length INTEGER,
		technologies TEXT,
		webserver TEXT,
		cdn_name TEXT,
		cdn_type TEXT,
		ip_address TEXT,
		response_time TEXT,
		raw_data TEXT,
		created_at TIMESTAMP NOT NULL,
		CONSTRAINT uix_subdomain_url UNIQUE (subdomain_id, url)
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS subdomains (
		id BIGSERIAL PRIMARY KEY,
		domain TEXT NOT NULL,
		subdomain TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT uix_domain_subdomain UNIQUE (domain, subdomain)
	)`,
	`CREATE TABLE IF NOT EXISTS dns_resolutions (
		id BIGSERIAL PRIMARY KEY,
		subdomain_id BIGINT NOT NULL REFERENCES subdomains (id),
		resolved_domain TEXT NOT NULL,
		ip_address TEXT,
		ttl INTEGER,
		raw_data JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT uix_subdomain_resolved_domain UNIQUE (subdomain_id, resolved_domain)
	)`,
	`CREATE TABLE IF NOT EXISTS http_probe_results (
		id BIGSERIAL PRIMARY KEY,
		subdomain_id BIGINT NOT NULL REFERENCES subdomains (id),
		url TEXT NOT NULL,
		status_code INTEGER,
		title TEXT,
		content_length BIGINT,
		technologies JSONB,
		webserver TEXT,
		cdn_name TEXT,
		cdn_type TEXT,
		ip_address TEXT,
		response_time TEXT,
		raw_data JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT uix_subdomain_url UNIQUE (subdomain_id, url)
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS ix_subdomains_domain ON subdomains (domain)`,
	`CREATE INDEX IF NOT EXISTS ix_dns_resolutions_latest ON dns_resolutions (subdomain_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS ix_http_probe_results_subdomain ON http_probe_results (subdomain_id)`,
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case model.DriverSQLite:
		return dialect{driver: driver, schema: slices.Concat(sqliteSchema, indexes)}, nil
	case model.DriverPostgres:
		return dialect{driver: driver, schema: slices.Concat(postgresSchema, indexes)}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// rebind turns ? placeholders into $1, $2 ... for PostgreSQL. Queries
// never carry a literal question mark.
func (d dialect) rebind(query string) string {
	if d.driver != model.DriverPostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
