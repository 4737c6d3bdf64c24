// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"testing"
	"time"

	"github.com/pdiddy/harvest/pkg/types"
)

func TestParsePublished(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2021", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"2021-05", time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"2021-05-17", time.Date(2021, 5, 17, 0, 0, 0, 0, time.UTC), true},
		{"2021-05-17T08:30:00Z", time.Date(2021, 5, 17, 8, 30, 0, 0, time.UTC), true},
		{"17.05.2021", time.Date(2021, 5, 17, 0, 0, 0, 0, time.UTC), true},
		{"17.05.2021 18:45:10", time.Date(2021, 5, 17, 18, 45, 10, 0, time.UTC), true},
		{"7 Mar 2019", time.Date(2019, 3, 7, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"n.d.", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := ParsePublished(tt.in)
		if ok != tt.ok {
			t.Errorf("ParsePublished(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("ParsePublished(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSortByPublished_StableWithMissingLast(t *testing.T) {
	records := []types.Record{
		{Title: "u1"},
		{Title: "a", PublishedAt: "2020"},
		{Title: "u2", PublishedAt: "bad"},
		{Title: "b", PublishedAt: "2022-01-01"},
		{Title: "c", PublishedAt: "2020-01-01"},
	}
	SortByPublished(records)
	want := []string{"b", "a", "c", "u1", "u2"}
	for i, w := range want {
		if records[i].Title != w {
			t.Errorf("records[%d] = %q, want %q", i, records[i].Title, w)
		}
	}
}
