// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"slices"
	"strings"
	"time"

	"github.com/pdiddy/harvest/pkg/types"
)

var publishedLayouts = []string{
	"2006-01-02",
	"2006",
	"2006-01",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02.01.2006",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"2 Jan 2006",
	"2 January 2006",
	"January 2006",
	"Jan 2006",
	"2006/01/02",
}

// ParsePublished interprets the free-form PublishedAt of a record. It
// reports false for empty or unrecognised values.
func ParsePublished(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// PublishedYear returns the year of s, or 0.
func PublishedYear(s string) int {
	t, ok := ParsePublished(s)
	if !ok {
		return 0
	}
	return t.Year()
}

// SortByPublished orders records newest first. The sort is stable, and
// records whose date is missing or unparseable sort after all dated ones.
func SortByPublished(records []types.Record) {
	type keyed struct {
		r  types.Record
		t  time.Time
		ok bool
	}
	ks := make([]keyed, len(records))
	for i, r := range records {
		t, ok := ParsePublished(r.PublishedAt)
		ks[i] = keyed{r: r, t: t, ok: ok}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		switch {
		case a.ok && !b.ok:
			return -1
		case !a.ok && b.ok:
			return 1
		case !a.ok && !b.ok:
			return 0
		}
		return b.t.Compare(a.t)
	})
	for i := range ks {
		records[i] = ks[i].r
	}
}
