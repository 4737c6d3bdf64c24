// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/harvest/internal/observability"
	"github.com/pdiddy/harvest/pkg/types"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore keeps everything in one local database file.
type SQLiteStore struct {
	db      *sql.DB
	q       builder
	log     zerolog.Logger
	now     func() time.Time
	Metrics *observability.Metrics
}

// OpenSQLite opens or creates the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string, log zerolog.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	file, _, _ := strings.Cut(strings.TrimPrefix(path, "file:"), "?")
	if dir := filepath.Dir(file); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	dsn := sqliteDSN(path, "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")

	// golang-migrate closes the handle it is given, so migrations run on
	// their own connection.
	mdb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	m, err := NewSQLiteMigrator(mdb, log)
	if err != nil {
		// NewSQLiteMigrator has closed mdb.
		return nil, err
	}
	upErr := m.Up()
	if err := m.Close(); err != nil && upErr == nil {
		upErr = err
	}
	if upErr != nil {
		return nil, upErr
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", path, classifySQLite(err))
	}
	return &SQLiteStore{
		db:  db,
		q:   newBuilder(sq.Question),
		log: log.With().Str("store", "sqlite").Logger(),
		now: time.Now,
	}, nil
}

// sqliteDSN appends driver params to a path or DSN that may already carry
// a query string.
func sqliteDSN(path, params string) string {
	if params == "" {
		return path
	}
	if !strings.Contains(path, "?") {
		return path + "?" + params
	}
	if strings.HasSuffix(path, "?") || strings.HasSuffix(path, "&") {
		return path + params
	}
	return path + "&" + params
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertDisclosure(ctx context.Context, d types.Disclosure) (err error) {
	defer func() { s.Metrics.RecordStoreOp("upsert_disclosure", errorClass(err)) }()

	query, args, err := s.q.upsertDisclosure(d, s.now().UTC())
	if err != nil {
		return fmt.Errorf("building disclosure upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting disclosure %s: %w", d.DisclosureID, classifySQLite(err))
	}
	return nil
}

func (s *SQLiteStore) GetDisclosure(ctx context.Context, id string) (d types.Disclosure, err error) {
	defer func() { s.Metrics.RecordStoreOp("get_disclosure", errorClass(err)) }()

	query, args, err := s.q.getDisclosure(id)
	if err != nil {
		return types.Disclosure{}, fmt.Errorf("building disclosure query: %w", err)
	}
	d, err = scanDisclosure(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Disclosure{}, fmt.Errorf("disclosure %s: %w", id, ErrNotFound)
		}
		return types.Disclosure{}, fmt.Errorf("getting disclosure %s: %w", id, classifySQLite(err))
	}
	return d, nil
}

func (s *SQLiteStore) ListDisclosures(ctx context.Context, opts ListOptions) (out []types.Disclosure, err error) {
	defer func() { s.Metrics.RecordStoreOp("list_disclosures", errorClass(err)) }()

	query, args, err := s.q.listDisclosures(opts)
	if err != nil {
		return nil, fmt.Errorf("building disclosure list: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing disclosures: %w", classifySQLite(err))
	}
	defer rows.Close()

	out = []types.Disclosure{}
	for rows.Next() {
		d, err := scanDisclosure(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning disclosure: %w", classifySQLite(err))
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating disclosures: %w", classifySQLite(err))
	}
	return out, nil
}

func (s *SQLiteStore) DeleteDisclosure(ctx context.Context, id string) (err error) {
	defer func() { s.Metrics.RecordStoreOp("delete_disclosure", errorClass(err)) }()

	query, args, err := s.q.deleteDisclosure(id)
	if err != nil {
		return fmt.Errorf("building disclosure delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting disclosure %s: %w", id, classifySQLite(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting disclosure %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("disclosure %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) UpsertSentiment(ctx context.Context, row SentimentRow) (err error) {
	defer func() { s.Metrics.RecordStoreOp("upsert_sentiment", errorClass(err)) }()

	now := s.now().UTC()
	query, args, err := s.q.upsertSentiment(row, now)
	if err != nil {
		return fmt.Errorf("building sentiment upsert: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", classifySQLite(err))
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting sentiment for %s: %w", row.Company, classifySQLite(err))
	}
	if row.DisclosureID != "" {
		query, args, err := s.q.attachSentiment(row.DisclosureID, row.Verdict, now)
		if err != nil {
			return fmt.Errorf("building sentiment attach: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("attaching sentiment to %s: %w", row.DisclosureID, classifySQLite(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sentiment: %w", classifySQLite(err))
	}
	return nil
}

func (s *SQLiteStore) UpsertArticles(ctx context.Context, rs types.ResultSet) (n int, err error) {
	defer func() { s.Metrics.RecordStoreOp("upsert_articles", errorClass(err)) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", classifySQLite(err))
	}
	defer tx.Rollback()

	now := s.now().UTC()
	for _, r := range rs.Records {
		if !r.Valid() {
			continue
		}
		query, args, err := s.q.upsertArticle(r, now)
		if err != nil {
			return 0, fmt.Errorf("building article upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("upserting article %q: %w", r.Title, classifySQLite(err))
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing articles: %w", classifySQLite(err))
	}
	s.log.Debug().Int("articles", n).Str("query", rs.Query).Msg("articles stored")
	return n, nil
}

// classifySQLite marks busy and locked databases as unavailable.
func classifySQLite(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked) {
		return unavailable(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return unavailable(err)
	}
	return err
}
