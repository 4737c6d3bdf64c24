// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/harvest/pkg/types"
)

// DefaultColumns is the CSV column set used when Options.Columns is nil.
var DefaultColumns = []string{"title", "authors", "published_at", "identifier", "source", "url", "keywords", "body", "venue"}

var csvColumns = map[string]func(types.Record, Options) string{
	"title":        func(r types.Record, _ Options) string { return r.Title },
	"authors":      func(r types.Record, _ Options) string { return strings.Join(r.Authors, types.ListSeparator) },
	"published_at": func(r types.Record, _ Options) string { return r.PublishedAt },
	"year":         func(r types.Record, _ Options) string { return year(r) },
	"identifier":   func(r types.Record, _ Options) string { return r.Identifier },
	"doi":          func(r types.Record, _ Options) string { return doi(r) },
	"source":       func(r types.Record, _ Options) string { return r.Source },
	"url":          func(r types.Record, _ Options) string { return r.URL },
	"keywords":     func(r types.Record, _ Options) string { return strings.Join(r.Keywords, types.ListSeparator) },
	"body":         func(r types.Record, _ Options) string { return r.Body },
	"venue":        func(r types.Record, _ Options) string { return venue(r) },
	"sentiment": func(r types.Record, o Options) string {
		v, _ := o.verdict(r)
		return string(v.Label)
	},
	"sentiment_confidence": func(r types.Record, o Options) string {
		v, ok := o.verdict(r)
		if !ok {
			return ""
		}
		return strconv.FormatFloat(v.Confidence, 'f', 2, 64)
	},
	"risk_flags": func(r types.Record, o Options) string {
		v, _ := o.verdict(r)
		return strings.Join(v.RiskFlags, types.ListSeparator)
	},
}

// ToCSV renders rs with a header row and the selected columns. List fields
// are joined with "; ".
func ToCSV(rs types.ResultSet, opts Options) (string, error) {
	cols := opts.Columns
	if cols == nil {
		cols = DefaultColumns
	}
	getters := make([]func(types.Record, Options) string, len(cols))
	for i, c := range cols {
		g, ok := csvColumns[strings.ToLower(strings.TrimSpace(c))]
		if !ok {
			return "", fmt.Errorf("unknown CSV column %q", c)
		}
		getters[i] = g
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(cols); err != nil {
		return "", fmt.Errorf("writing CSV header: %w", err)
	}
	row := make([]string, len(cols))
	for _, r := range rs.Records {
		for i, g := range getters {
			row[i] = g(r, opts)
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing CSV: %w", err)
	}
	return b.String(), nil
}
