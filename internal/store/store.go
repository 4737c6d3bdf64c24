// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists disclosures, sentiment verdicts and search results
// in SQLite (local runs) or PostgreSQL (shared deployments). Both backends
// share the same squirrel-built statements and differ only in placeholder
// style and driver.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/harvest/internal/observability"
	"github.com/pdiddy/harvest/pkg/types"
)

var (
	// ErrNotFound is returned when a lookup or delete matches no row.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks retryable failures: lost connections, pool
	// exhaustion, serialization conflicts and locked databases.
	ErrUnavailable = errors.New("store unavailable")
)

// Pagination defaults for ListDisclosures.
const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Store is the persistence boundary used by the scraper, the CLI and the
// HTTP API. Every write is an upsert.
type Store interface {
	// UpsertDisclosure inserts d or replaces the row with the same
	// DisclosureID. A nil d.Sentiment keeps the stored verdict.
	UpsertDisclosure(ctx context.Context, d types.Disclosure) error

	GetDisclosure(ctx context.Context, id string) (types.Disclosure, error)
	ListDisclosures(ctx context.Context, opts ListOptions) ([]types.Disclosure, error)
	DeleteDisclosure(ctx context.Context, id string) error

	// UpsertSentiment stores one verdict per (company, date, analysis type)
	// and attaches it to the disclosure named by row.DisclosureID.
	UpsertSentiment(ctx context.Context, row SentimentRow) error

	// UpsertArticles stores every valid record of rs keyed by its dedup
	// key and returns how many rows were written.
	UpsertArticles(ctx context.Context, rs types.ResultSet) (int, error)

	Close() error
}

// ListOptions filters and pages ListDisclosures. Zero values mean no filter.
type ListOptions struct {
	Company string
	Since   time.Time
	Until   time.Time
	Limit   int
	Offset  int
}

func (o ListOptions) normalized() ListOptions {
	if o.Limit <= 0 {
		o.Limit = defaultListLimit
	}
	if o.Limit > maxListLimit {
		o.Limit = maxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// SentimentRow is one persisted verdict. Date is truncated to the day in
// UTC; AnalysisType defaults to the verdict's strategy.
type SentimentRow struct {
	Company      string
	Date         time.Time
	AnalysisType string
	DisclosureID string
	Verdict      types.SentimentVerdict
}

func (r SentimentRow) day() string {
	return r.Date.UTC().Format(time.DateOnly)
}

func (r SentimentRow) analysisType() string {
	if r.AnalysisType != "" {
		return r.AnalysisType
	}
	if r.Verdict.Strategy != "" {
		return string(r.Verdict.Strategy)
	}
	return string(types.StrategyKeyword)
}

// Open connects to the backend named by cfg.Driver and applies pending
// migrations.
func Open(ctx context.Context, cfg types.StoreConfig, log zerolog.Logger, m *observability.Metrics) (Store, error) {
	switch cfg.Driver {
	case types.DriverSQLite, "":
		s, err := OpenSQLite(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		s.Metrics = m
		return s, nil
	case types.DriverPostgres:
		s, err := OpenPostgres(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		s.Metrics = m
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// unavailable wraps err so that errors.Is(err, ErrUnavailable) holds.
func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// errorClass labels err for the store operation metric.
func errorClass(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
