// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich fills missing record bodies (abstracts, disclosure text)
// from secondary sources after the primary search.
package enrich

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/harvest/internal/observability"
	"github.com/pdiddy/harvest/pkg/types"
)

// DefaultWorkers bounds concurrent records in parallel mode.
const DefaultWorkers = 5

// Enricher looks up the body of one record in one secondary source. It
// never mutates r and reports false when nothing was found, including when
// the upstream failed.
type Enricher interface {
	Name() string
	FindBody(ctx context.Context, r types.Record) (string, bool)
}

// Stats summarises one Enrich call.
type Stats struct {
	// Attempted counts records that lacked a body.
	Attempted int
	// Filled counts records that gained a body.
	Filled int
	// Skipped counts records that already had a body.
	Skipped int
}

// Orchestrator tries each enricher in order for every record lacking a body.
type Orchestrator struct {
	Enrichers []Enricher
	Parallel  bool
	Workers   int
	Log       zerolog.Logger
	Metrics   *observability.Metrics
}

// Enrich returns a new ResultSet in which records without a body carry the
// first non-empty body any enricher found. Records that already have a body
// are left untouched and cost no lookups. Record order is preserved.
func (o *Orchestrator) Enrich(ctx context.Context, rs types.ResultSet) (types.ResultSet, Stats) {
	out := make([]types.Record, len(rs.Records))
	copy(out, rs.Records)

	var pending []int
	var stats Stats
	for i, r := range out {
		if strings.TrimSpace(r.Body) != "" {
			stats.Skipped++
			continue
		}
		pending = append(pending, i)
	}
	stats.Attempted = len(pending)
	if len(pending) == 0 || len(o.Enrichers) == 0 {
		return rs.WithRecords(out), stats
	}

	filled := make([]bool, len(out))
	if o.Parallel {
		workers := o.Workers
		if workers <= 0 {
			workers = DefaultWorkers
		}
		var g errgroup.Group
		g.SetLimit(workers)
		for _, i := range pending {
			g.Go(func() error {
				// Each worker owns index i of out and filled.
				out[i], filled[i] = o.enrichOne(ctx, out[i])
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, i := range pending {
			out[i], filled[i] = o.enrichOne(ctx, out[i])
		}
	}

	for _, f := range filled {
		if f {
			stats.Filled++
		}
	}
	o.Log.Info().
		Int("attempted", stats.Attempted).
		Int("filled", stats.Filled).
		Int("skipped", stats.Skipped).
		Msg("enrichment complete")
	return rs.WithRecords(out), stats
}

func (o *Orchestrator) enrichOne(ctx context.Context, r types.Record) (types.Record, bool) {
	for _, e := range o.Enrichers {
		if ctx.Err() != nil {
			return r, false
		}
		body, ok := e.FindBody(ctx, r)
		body = strings.TrimSpace(body)
		found := ok && body != ""
		o.Metrics.RecordEnrichAttempt(e.Name(), found)
		if found {
			o.Log.Debug().Str("enricher", e.Name()).Str("title", r.Title).Msg("body found")
			return r.WithBody(body), true
		}
	}
	return r, false
}
