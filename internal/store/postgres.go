// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/pdiddy/harvest/internal/observability"
	"github.com/pdiddy/harvest/pkg/types"
)

var _ Store = (*PostgresStore)(nil)

// DBTX is satisfied by *pgxpool.Pool and by pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgreSQL error codes treated as retryable.
var retryableCodes = map[string]bool{
	"53300": true, // too_many_connections
	"57P01": true, // admin_shutdown
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"23505": true, // unique_violation from concurrent upserts
}

// PostgresStore runs against a pgx connection pool.
type PostgresStore struct {
	db      DBTX
	pool    *pgxpool.Pool
	q       builder
	log     zerolog.Logger
	timeout time.Duration
	now     func() time.Time
	Metrics *observability.Metrics
}

// OpenPostgres connects a pool to cfg.DSN and applies pending migrations.
func OpenPostgres(ctx context.Context, cfg types.StoreConfig, log zerolog.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", classifyPostgres(err))
	}

	m, err := NewPostgresMigrator(pool, log)
	if err != nil {
		pool.Close()
		return nil, err
	}
	upErr := m.Up()
	if err := m.Close(); err != nil && upErr == nil {
		upErr = err
	}
	if upErr != nil {
		pool.Close()
		return nil, upErr
	}

	s := NewPostgresStore(pool, cfg.AcquireTimeout, log)
	s.pool = pool
	return s, nil
}

// NewPostgresStore wraps an existing connection. timeout bounds each store
// operation, including the wait for a pooled connection; zero disables it.
func NewPostgresStore(db DBTX, timeout time.Duration, log zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		db:      db,
		q:       newBuilder(sq.Dollar),
		log:     log.With().Str("store", "postgres").Logger(),
		timeout: timeout,
		now:     time.Now,
	}
}

// Close closes the pool when the store owns one.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *PostgresStore) UpsertDisclosure(ctx context.Context, d types.Disclosure) (err error) {
	defer func() { s.Metrics.RecordStoreOp("upsert_disclosure", errorClass(err)) }()
	ctx, cancel := s.bound(ctx)
	defer cancel()

	query, args, err := s.q.upsertDisclosure(d, s.now().UTC())
	if err != nil {
		return fmt.Errorf("building disclosure upsert: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting disclosure %s: %w", d.DisclosureID, classifyPostgres(err))
	}
	return nil
}

func (s *PostgresStore) GetDisclosure(ctx context.Context, id string) (d types.Disclosure, err error) {
	defer func() { s.Metrics.RecordStoreOp("get_disclosure", errorClass(err)) }()
	ctx, cancel := s.bound(ctx)
	defer cancel()

	query, args, err := s.q.getDisclosure(id)
	if err != nil {
		return types.Disclosure{}, fmt.Errorf("building disclosure query: %w", err)
	}
	d, err = scanDisclosure(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Disclosure{}, fmt.Errorf("disclosure %s: %w", id, ErrNotFound)
		}
		return types.Disclosure{}, fmt.Errorf("getting disclosure %s: %w", id, classifyPostgres(err))
	}
	return d, nil
}

func (s *PostgresStore) ListDisclosures(ctx context.Context, opts ListOptions) (out []types.Disclosure, err error) {
	defer func() { s.Metrics.RecordStoreOp("list_disclosures", errorClass(err)) }()
	ctx, cancel := s.bound(ctx)
	defer cancel()

	query, args, err := s.q.listDisclosures(opts)
	if err != nil {
		return nil, fmt.Errorf("building disclosure list: %w", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing disclosures: %w", classifyPostgres(err))
	}
	defer rows.Close()

	out = []types.Disclosure{}
	for rows.Next() {
		d, err := scanDisclosure(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning disclosure: %w", classifyPostgres(err))
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating disclosures: %w", classifyPostgres(err))
	}
	return out, nil
}

func (s *PostgresStore) DeleteDisclosure(ctx context.Context, id string) (err error) {
	defer func() { s.Metrics.RecordStoreOp("delete_disclosure", errorClass(err)) }()
	ctx, cancel := s.bound(ctx)
	defer cancel()

	query, args, err := s.q.deleteDisclosure(id)
	if err != nil {
		return fmt.Errorf("building disclosure delete: %w", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting disclosure %s: %w", id, classifyPostgres(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("disclosure %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) UpsertSentiment(ctx context.Context, row SentimentRow) (err error) {
	defer func() { s.Metrics.RecordStoreOp("upsert_sentiment", errorClass(err)) }()
	ctx, cancel := s.bound(ctx)
	defer cancel()

	now := s.now().UTC()
	query, args, err := s.q.upsertSentiment(row, now)
	if err != nil {
		return fmt.Errorf("building sentiment upsert: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", classifyPostgres(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting sentiment for %s: %w", row.Company, classifyPostgres(err))
	}
	if row.DisclosureID != "" {
		query, args, err := s.q.attachSentiment(row.DisclosureID, row.Verdict, now)
		if err != nil {
			return fmt.Errorf("building sentiment attach: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("attaching sentiment to %s: %w", row.DisclosureID, classifyPostgres(err))
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing sentiment: %w", classifyPostgres(err))
	}
	return nil
}

func (s *PostgresStore) UpsertArticles(ctx context.Context, rs types.ResultSet) (n int, err error) {
	defer func() { s.Metrics.RecordStoreOp("upsert_articles", errorClass(err)) }()
	ctx, cancel := s.bound(ctx)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", classifyPostgres(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := s.now().UTC()
	for _, r := range rs.Records {
		if !r.Valid() {
			continue
		}
		query, args, err := s.q.upsertArticle(r, now)
		if err != nil {
			return 0, fmt.Errorf("building article upsert: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("upserting article %q: %w", r.Title, classifyPostgres(err))
		}
		n++
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing articles: %w", classifyPostgres(err))
	}
	s.log.Debug().Int("articles", n).Str("query", rs.Query).Msg("articles stored")
	return n, nil
}

// classifyPostgres marks connection loss, pool exhaustion and retryable
// server errors as unavailable.
func classifyPostgres(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if retryableCodes[pgErr.Code] {
			return unavailable(err)
		}
		return err
	}
	var connErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.As(err, &connErr), errors.As(err, &netErr):
		return unavailable(err)
	case errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err):
		return unavailable(err)
	}
	return err
}
