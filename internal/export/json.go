// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/harvest/pkg/types"
)

// Document is the JSON export envelope.
type Document struct {
	Articles []Article `json:"articles"`
	Metadata Metadata  `json:"metadata"`
}

// Article is one record in a JSON export. List fields render as [] and
// string fields as "" when empty.
type Article struct {
	Title       string                  `json:"title"`
	Authors     []string                `json:"authors"`
	PublishedAt string                  `json:"published_at"`
	Identifier  string                  `json:"identifier"`
	Source      string                  `json:"source"`
	URL         string                  `json:"url"`
	Keywords    []string                `json:"keywords"`
	Body        string                  `json:"body"`
	Venue       string                  `json:"venue"`
	Extra       map[string]any          `json:"extra,omitempty"`
	Sentiment   *types.SentimentVerdict `json:"sentiment,omitempty"`
}

// Metadata describes the search that produced the articles.
type Metadata struct {
	Query              string                `json:"query"`
	TotalFoundUpstream int                   `json:"total_found_upstream"`
	SourcesQueried     []string              `json:"sources_queried"`
	Failures           []types.SourceFailure `json:"failures,omitempty"`
	ExportedAt         time.Time             `json:"exported_at"`
	Count              int                   `json:"count"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ToJSON renders rs as an indented JSON Document.
func ToJSON(rs types.ResultSet, opts Options) (string, error) {
	doc := Document{
		Articles: make([]Article, 0, len(rs.Records)),
		Metadata: Metadata{
			Query:              rs.Query,
			TotalFoundUpstream: rs.TotalFoundUpstream,
			SourcesQueried:     nonNil(rs.SourcesQueried),
			Failures:           rs.Failures,
			ExportedAt:         opts.exportedAt(),
			Count:              len(rs.Records),
		},
	}
	for _, r := range rs.Records {
		a := Article{
			Title:       r.Title,
			Authors:     nonNil(r.Authors),
			PublishedAt: r.PublishedAt,
			Identifier:  r.Identifier,
			Source:      r.Source,
			URL:         r.URL,
			Keywords:    nonNil(r.Keywords),
			Body:        r.Body,
			Venue:       venue(r),
			Extra:       r.Extra,
		}
		if v, ok := opts.verdict(r); ok {
			a.Sentiment = &v
		}
		doc.Articles = append(doc.Articles, a)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return string(data) + "\n", nil
}

// ReadJSON parses a JSON export back into a ResultSet and the verdicts it
// carried.
func ReadJSON(r io.Reader) (types.ResultSet, map[string]types.SentimentVerdict, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return types.ResultSet{}, nil, fmt.Errorf("decoding JSON export: %w", err)
	}
	rs := types.ResultSet{
		Query:              doc.Metadata.Query,
		TotalFoundUpstream: doc.Metadata.TotalFoundUpstream,
		SourcesQueried:     doc.Metadata.SourcesQueried,
		Failures:           doc.Metadata.Failures,
		Records:            make([]types.Record, 0, len(doc.Articles)),
	}
	verdicts := make(map[string]types.SentimentVerdict)
	for _, a := range doc.Articles {
		rec := types.Record{
			Title:       a.Title,
			Identifier:  a.Identifier,
			Body:        a.Body,
			PublishedAt: a.PublishedAt,
			Source:      a.Source,
			Authors:     a.Authors,
			URL:         a.URL,
			Keywords:    a.Keywords,
			Extra:       a.Extra,
		}
		rs.Records = append(rs.Records, rec)
		if a.Sentiment != nil {
			key := a.Identifier
			if key == "" {
				key = a.Title
			}
			verdicts[key] = *a.Sentiment
		}
	}
	return rs, verdicts, nil
}
