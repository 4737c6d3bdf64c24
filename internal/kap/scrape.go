// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package kap

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/harvest/internal/sentiment"
	"github.com/pdiddy/harvest/internal/store"
	"github.com/pdiddy/harvest/pkg/types"
)

// DefaultWorkers bounds concurrent disclosure processing.
const DefaultWorkers = 5

// Sink receives scraped disclosures and their verdicts. store.Store
// satisfies it.
type Sink interface {
	UpsertDisclosure(ctx context.Context, d types.Disclosure) error
	UpsertSentiment(ctx context.Context, row store.SentimentRow) error
}

// Summary counts what one Scrape call did.
type Summary struct {
	Listed   int
	Detailed int
	Tagged   int
	Stored   int
	Failed   int
}

// Scraper runs list, detail, sentiment and persistence for one window.
// Details, Tagger and Sink are optional; a nil stage is skipped.
type Scraper struct {
	Client  *Client
	Details *DetailEnricher
	Tagger  *sentiment.Tagger
	Sink    Sink
	Workers int
	Log     zerolog.Logger
}

type outcome struct {
	detailed, tagged, stored, failed bool
}

// Scrape lists disclosures in w and processes each one. It fails only when
// the list call fails; per-disclosure problems are logged and counted.
func (s *Scraper) Scrape(ctx context.Context, w Window, f ListFilter) ([]types.Disclosure, Summary, error) {
	listed, err := s.Client.List(ctx, w, f)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("listing disclosures: %w", err)
	}
	s.Log.Info().
		Time("from", w.From).Time("to", w.To).
		Int("listed", len(listed)).
		Msg("disclosures listed")

	workers := s.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	out := make([]types.Disclosure, len(listed))
	outcomes := make([]outcome, len(listed))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, d := range listed {
		g.Go(func() error {
			out[i], outcomes[i] = s.process(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{Listed: len(listed)}
	for _, o := range outcomes {
		if o.detailed {
			sum.Detailed++
		}
		if o.tagged {
			sum.Tagged++
		}
		if o.stored {
			sum.Stored++
		}
		if o.failed {
			sum.Failed++
		}
	}
	s.Log.Info().
		Int("detailed", sum.Detailed).
		Int("tagged", sum.Tagged).
		Int("stored", sum.Stored).
		Int("failed", sum.Failed).
		Msg("scrape complete")
	return out, sum, ctx.Err()
}

func (s *Scraper) process(ctx context.Context, d types.Disclosure) (types.Disclosure, outcome) {
	var o outcome
	if ctx.Err() != nil {
		return d, o
	}
	log := s.Log.With().Str("disclosure", d.DisclosureID).Logger()

	if s.Details != nil && strings.TrimSpace(d.Content) == "" {
		if filled, ok := s.Details.Fill(ctx, d); ok {
			d = filled
			o.detailed = true
		} else {
			d.Attachments = filled.Attachments
		}
	}

	if s.Tagger != nil {
		if v, ok := s.Tagger.Tag(ctx, d.DisclosureID, taggableText(d)); ok {
			d.Sentiment = &v
			o.tagged = true
		}
	}

	if s.Sink == nil {
		return d, o
	}
	if err := s.Sink.UpsertDisclosure(ctx, d); err != nil {
		log.Warn().Err(err).Msg("storing disclosure failed")
		o.failed = true
		return d, o
	}
	if d.Sentiment != nil {
		row := store.SentimentRow{
			Company:      d.Company,
			Date:         d.PublishedAt,
			DisclosureID: d.DisclosureID,
			Verdict:      *d.Sentiment,
		}
		if err := s.Sink.UpsertSentiment(ctx, row); err != nil {
			log.Warn().Err(err).Msg("storing sentiment failed")
			o.failed = true
			return d, o
		}
	}
	o.stored = true
	return d, o
}

// taggableText is the disclosure body, or subject and summary when the body
// could not be fetched.
func taggableText(d types.Disclosure) string {
	if strings.TrimSpace(d.Content) != "" {
		return d.Content
	}
	return strings.TrimSpace(d.Subject + ". " + d.Summary)
}
