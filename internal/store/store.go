// Package store persists subdomains, DNS resolutions and HTTP probe results.
// Every write is an idempotent upsert keyed on the natural unique
// constraints of the tables, so re-running a pipeline never duplicates rows.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/reconthing/reconthing/internal/model"
)

// chunk is the number of subdomain rows inserted by one statement.
const chunk = 500

type Store struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

type Option func(*Store)

// WithClock replaces the clock the store takes timestamps from.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open connects to the database and creates the schema if needed.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if driver == model.DriverSQLite {
		dsn = sqliteDSN(dsn)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	if driver == model.DriverSQLite {
		// one writer, and :memory: databases are per connection
		db.SetMaxOpenConns(1)
	}

	s := &Store{
		db:      db,
		dialect: d,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// UpsertSubdomains inserts the names under domain, refreshing updated_at of
// names already known. It returns the number of rows inserted or updated.
// A constraint violation is logged and reported as zero rows.
func (s *Store) UpsertSubdomains(ctx context.Context, domain string, names []string) (int, error) {
	names = distinct(names)
	if len(names) == 0 {
		return 0, nil
	}
	now := s.timestamp()

	var affected int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for batch := range slices.Chunk(names, chunk) {
			query := `INSERT INTO subdomains (domain, subdomain, created_at, updated_at) VALUES ` +
				strings.TrimSuffix(strings.Repeat("(?, ?, ?, ?), ", len(batch)), ", ") +
				` ON CONFLICT (domain, subdomain) DO UPDATE SET updated_at = excluded.updated_at`
			args := make([]any, 0, 4*len(batch))
			for _, name := range batch {
				args = append(args, domain, name, now, now)
			}
			n, err := s.exec(ctx, tx, query, args...)
			if err != nil {
				return err
			}
			affected += n
		}
		return nil
	})
	if err != nil {
		return s.absorb(ctx, "upserting subdomains", err, slog.String("domain", domain))
	}
	slog.InfoContext(ctx, "upserted subdomains", "domain", domain, "count", affected)
	return int(affected), nil
}

// UpsertDNSResolutions stores the resolver records of one subdomain. The
// resolved domain is the record host; on conflict the address, TTL, raw
// record and timestamp are overwritten.
func (s *Store) UpsertDNSResolutions(ctx context.Context, subdomainID int64, records []model.DNSRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	now := s.timestamp()

	var affected int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range records {
			n, err := s.exec(ctx, tx,
				`INSERT INTO dns_resolutions (subdomain_id, resolved_domain, ip_address, ttl, raw_data, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT (subdomain_id, resolved_domain) DO UPDATE SET
					ip_address = excluded.ip_address,
					ttl = excluded.ttl,
					raw_data = excluded.raw_data,
					created_at = excluded.created_at`,
				subdomainID, model.CanonicalHost(rec.Host), rec.IP(), rec.TTL, rawArg(rec.Raw), now,
			)
			if err != nil {
				return err
			}
			affected += n
		}
		return nil
	})
	if err != nil {
		return s.absorb(ctx, "upserting dns resolutions", err, slog.Int64("subdomain_id", subdomainID))
	}
	slog.DebugContext(ctx, "upserted dns resolutions", "subdomain_id", subdomainID, "count", affected)
	return int(affected), nil
}

// UpsertHTTPProbeResults stores prober records under domain. Each record is
// attached to the subdomain named by its input; records with an unknown
// input are skipped.
func (s *Store) UpsertHTTPProbeResults(ctx context.Context, domain string, records []model.ProbeRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	now := s.timestamp()

	var affected int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		ids, err := s.subdomainIDs(ctx, tx, domain)
		if err != nil {
			return err
		}
		for _, rec := range records {
			id, ok := ids[model.CanonicalHost(rec.Input)]
			if !ok {
				slog.WarnContext(ctx, "subdomain not found, skipping probe result", "input", rec.Input, "domain", domain)
				continue
			}
			tech, err := jsonArg(rec.Tech)
			if err != nil {
				return err
			}
			n, err := s.exec(ctx, tx,
				`INSERT INTO http_probe_results (subdomain_id, url, status_code, title, content_length, technologies,
					webserver, cdn_name, cdn_type, ip_address, response_time, raw_data, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (subdomain_id, url) DO UPDATE SET
					status_code = excluded.status_code,
					title = excluded.title,
					content_length = excluded.content_length,
					technologies = excluded.technologies,
					webserver = excluded.webserver,
					cdn_name = excluded.cdn_name,
					cdn_type = excluded.cdn_type,
					ip_address = excluded.ip_address,
					response_time = excluded.response_time,
					raw_data = excluded.raw_data,
					created_at = excluded.created_at`,
				id, rec.URL, rec.StatusCode, rec.Title, rec.ContentLength, tech,
				rec.Webserver, rec.CDNName, rec.CDNType, rec.Host, rec.Time, rawArg(rec.Raw), now,
			)
			if err != nil {
				return err
			}
			affected += n
		}
		return nil
	})
	if err != nil {
		return s.absorb(ctx, "upserting http probe results", err, slog.String("domain", domain))
	}
	slog.InfoContext(ctx, "upserted http probe results", "domain", domain, "count", affected)
	return int(affected), nil
}

func (s *Store) subdomainIDs(ctx context.Context, tx *sql.Tx, domain string) (map[string]int64, error) {
	rows, err := tx.QueryContext(ctx, s.dialect.rebind(`SELECT id, subdomain FROM subdomains WHERE domain = ?`), domain)
	if err != nil {
		return nil, fmt.Errorf("executing sql query failed: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		ids[name] = id
	}
	return ids, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(ctx context.Context) {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "Calling `tx.Rollback()` failed.", "error", err)
		}
	}(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction failed: %w", err)
	}
	return nil
}

func (s *Store) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("executing sql insert failed: %w", err)
	}
	return res.RowsAffected()
}

// absorb logs a constraint violation and reports it as zero rows. Any other
// error is returned.
func (s *Store) absorb(ctx context.Context, what string, err error, attrs ...any) (int, error) {
	if !isConstraint(err) {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	slog.ErrorContext(ctx, "constraint violation", append(attrs, "op", what, "error", err)...)
	return 0, nil
}

func isConstraint(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23"
	}
	return false
}

func distinct(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok || n == "" {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func rawArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func jsonArg(v []string) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
