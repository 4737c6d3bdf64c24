// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries academic APIs and returns unified, deduplicated
// result sets. Each upstream is wrapped in a Provider; Run is the boundary
// that turns a provider failure into an empty contribution, and Aggregator
// combines providers in first-success or merge-all mode.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/harvest/internal/observability"
	"github.com/pdiddy/harvest/pkg/types"
)

// DefaultMaxResults applies when a query leaves MaxResults unset.
const DefaultMaxResults = 20

var (
	// ErrEmptyQuery rejects a search whose text is blank before any work starts.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrNoProviders reports an aggregator with nothing to query.
	ErrNoProviders = errors.New("no search providers configured")

	// ErrNoMatch is returned by single-work lookups that find nothing.
	ErrNoMatch = errors.New("no matching work")
)

// Query holds the search parameters passed to every provider.
type Query struct {
	Text       string
	MaxResults int
	// YearMin and YearMax bound the publication year; 0 means unbounded.
	YearMin int
	YearMax int
}

// Normalize validates q and fills defaults.
func (q Query) Normalize() (Query, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return q, ErrEmptyQuery
	}
	if q.MaxResults <= 0 {
		q.MaxResults = DefaultMaxResults
	}
	if q.YearMin > 0 && q.YearMax > 0 && q.YearMin > q.YearMax {
		q.YearMin, q.YearMax = q.YearMax, q.YearMin
	}
	return q, nil
}

// InYears reports whether year lies within the query bounds. An unknown
// year (0) is kept.
func (q Query) InYears(year int) bool {
	if year == 0 {
		return true
	}
	if q.YearMin > 0 && year < q.YearMin {
		return false
	}
	if q.YearMax > 0 && year > q.YearMax {
		return false
	}
	return true
}

// Page is one provider's answer to a query.
type Page struct {
	Records []types.Record
	// Total is the upstream hit count when the API reports one.
	Total int
}

// Provider searches a single upstream source. Implementations issue one or
// more HTTP calls, skip records they cannot map, and return an error for
// transport, status, or decoding failures. They never retry.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) (Page, error)
}

// Run calls p and converts any failure, including a panic, into an empty
// ResultSet carrying a SourceFailure. It never returns an error.
func Run(ctx context.Context, p Provider, q Query, log zerolog.Logger) types.ResultSet {
	return run(ctx, p, q, log, nil)
}

func run(ctx context.Context, p Provider, q Query, log zerolog.Logger, m *observability.Metrics) types.ResultSet {
	name := p.Name()
	rs := types.ResultSet{Query: q.Text, SourcesQueried: []string{name}}

	start := time.Now()
	page, err := safeSearch(ctx, p, q)
	elapsed := time.Since(start)

	if err != nil {
		log.Warn().Str("source", name).Err(err).Dur("elapsed", elapsed).Msg("provider contributed no results")
		rs.Failures = []types.SourceFailure{{Source: name, Reason: err.Error()}}
		m.RecordProviderCall(name, 0, elapsed.Seconds(), true)
		return rs
	}

	for _, r := range page.Records {
		if !r.Valid() {
			continue
		}
		if r.Source == "" {
			r.Source = name
		}
		rs.Records = append(rs.Records, r)
	}
	if len(rs.Records) > q.MaxResults && q.MaxResults > 0 {
		rs.Records = rs.Records[:q.MaxResults]
	}
	rs.TotalFoundUpstream = page.Total
	if rs.TotalFoundUpstream < len(rs.Records) {
		rs.TotalFoundUpstream = len(rs.Records)
	}

	log.Debug().Str("source", name).Int("records", len(rs.Records)).Dur("elapsed", elapsed).Msg("provider returned")
	m.RecordProviderCall(name, len(rs.Records), elapsed.Seconds(), false)
	return rs
}

func safeSearch(ctx context.Context, p Provider, q Query) (page Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panicked: %v", r)
		}
	}()
	return p.Search(ctx, q)
}
