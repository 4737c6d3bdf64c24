// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/harvest/pkg/types"
)

func TestFormatTable(t *testing.T) {
	rs := types.ResultSet{
		Records: []types.Record{
			{Title: "Battery Storage Review", Authors: []string{"Ayşe Yılmaz", "B"}, PublishedAt: "2021-02-03", Source: "openalex", Identifier: "10.1/x"},
		},
		TotalFoundUpstream: 40,
		Failures:           []types.SourceFailure{{Source: "scopus", Reason: "API key not configured"}},
	}
	var buf bytes.Buffer
	if err := FormatTable(rs, &buf); err != nil {
		t.Fatalf("FormatTable: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Battery Storage Review", "2021", "openalex", "1 results (40 found upstream)", "warning: scopus contributed nothing"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := FormatTable(types.ResultSet{}, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No results found.") {
		t.Errorf("got %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("şşşşşşşşşş", 6); got != "şşş..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
}

func TestQueryFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.yaml")
	q := Query{Text: "battery storage", MaxResults: 10, YearMin: 2020}
	rs := types.ResultSet{
		Query:          "battery storage",
		SourcesQueried: []string{"openalex"},
		Records:        []types.Record{{Title: "A", Identifier: "10.1/x", Keywords: []string{"x", "y"}}},
	}
	qf := NewQueryFile(q, types.ModeMergeAll, []Provider{&stubProvider{name: "openalex"}}, true, rs)
	if err := WriteQueryFile(path, qf); err != nil {
		t.Fatalf("WriteQueryFile: %v", err)
	}

	got, err := ReadQueryFile(path)
	if err != nil {
		t.Fatalf("ReadQueryFile: %v", err)
	}
	if got.Query.ToQuery() != q {
		t.Errorf("query = %+v, want %+v", got.Query.ToQuery(), q)
	}
	if got.Mode != types.ModeMergeAll || !got.Enriched || len(got.Providers) != 1 {
		t.Errorf("meta = %+v", got)
	}
	if got.Results.Len() != 1 || got.Results.Records[0].Identifier != "10.1/x" || len(got.Results.Records[0].Keywords) != 2 {
		t.Errorf("results = %+v", got.Results)
	}
}
