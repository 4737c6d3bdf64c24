// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/harvest/internal/observability"
	"github.com/pdiddy/harvest/pkg/types"
)

// DefaultWorkers bounds concurrent provider calls in merge-all mode.
const DefaultWorkers = 5

// NoSources is the SourcesQueried marker of a first-success search in which
// every provider came back empty.
const NoSources = "none"

// Aggregator runs a list of providers in priority order and combines their
// result sets.
type Aggregator struct {
	Providers []Provider
	Workers   int
	Log       zerolog.Logger
	Metrics   *observability.Metrics
}

// Search dispatches to FirstSuccess or MergeAll. An unknown mode is an error.
func (a *Aggregator) Search(ctx context.Context, q Query, mode types.SearchMode) (types.ResultSet, error) {
	switch mode {
	case types.ModeFirstSuccess:
		return a.FirstSuccess(ctx, q)
	case types.ModeMergeAll, "":
		return a.MergeAll(ctx, q)
	default:
		return types.ResultSet{}, fmt.Errorf("unknown search mode %q", mode)
	}
}

// FirstSuccess tries providers strictly sequentially and returns the first
// result set with at least one record. Failures of providers tried before
// the winner are carried along. When every provider is empty the result
// has no records and SourcesQueried is ["none"].
func (a *Aggregator) FirstSuccess(ctx context.Context, q Query) (types.ResultSet, error) {
	q, err := a.prepare(q)
	if err != nil {
		return types.ResultSet{}, err
	}

	var failures []types.SourceFailure
	for _, p := range a.Providers {
		rs := run(ctx, p, q, a.Log, a.Metrics)
		failures = append(failures, rs.Failures...)

		records, removed := Deduplicate(rs.Records)
		a.Metrics.RecordDuplicates(removed)
		if len(records) == 0 {
			continue
		}
		if len(records) > q.MaxResults {
			records = records[:q.MaxResults]
		}
		out := rs.WithRecords(records)
		out.Failures = failures
		return out, nil
	}

	a.Log.Info().Str("query", q.Text).Int("providers", len(a.Providers)).Msg("no provider returned results")
	return types.ResultSet{
		Query:          q.Text,
		SourcesQueried: []string{NoSources},
		Failures:       failures,
	}, nil
}

// MergeAll queries every provider through a bounded pool, concatenates the
// records in provider priority order, keeps the first occurrence of each
// duplicate, sorts newest first, and truncates to q.MaxResults. A failing
// provider never cancels its siblings.
func (a *Aggregator) MergeAll(ctx context.Context, q Query) (types.ResultSet, error) {
	q, err := a.prepare(q)
	if err != nil {
		return types.ResultSet{}, err
	}

	workers := a.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make([]types.ResultSet, len(a.Providers))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, p := range a.Providers {
		g.Go(func() error {
			results[i] = run(ctx, p, q, a.Log, a.Metrics)
			return nil
		})
	}
	_ = g.Wait()

	out := types.ResultSet{Query: q.Text}
	var all []types.Record
	for i, rs := range results {
		out.SourcesQueried = append(out.SourcesQueried, a.Providers[i].Name())
		out.TotalFoundUpstream += rs.TotalFoundUpstream
		out.Failures = append(out.Failures, rs.Failures...)
		all = append(all, rs.Records...)
	}

	records, removed := Deduplicate(all)
	a.Metrics.RecordDuplicates(removed)
	SortByPublished(records)
	if len(records) > q.MaxResults {
		records = records[:q.MaxResults]
	}
	out.Records = records

	a.Log.Debug().
		Str("query", q.Text).
		Int("collected", len(all)).
		Int("duplicates", removed).
		Int("returned", len(records)).
		Msg("merged provider results")
	return out, nil
}

func (a *Aggregator) prepare(q Query) (Query, error) {
	q, err := q.Normalize()
	if err != nil {
		return q, err
	}
	if len(a.Providers) == 0 {
		return q, ErrNoProviders
	}
	return q, nil
}
