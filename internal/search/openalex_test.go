// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name  string
		index map[string][]int
		want  string
	}{
		{"nil map", nil, ""},
		{"single word", map[string][]int{"hello": {0}}, "hello"},
		{
			"repeated word",
			map[string][]int{"the": {0, 4}, "cat": {1}, "sat": {2}, "on": {3}, "mat": {5}},
			"the cat sat on the mat",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReconstructAbstract(tt.index); got != tt.want {
				t.Errorf("ReconstructAbstract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenAlexYearFilter(t *testing.T) {
	tests := []struct {
		min, max int
		want     string
	}{
		{2020, 2023, "publication_year:2020-2023"},
		{2020, 0, "publication_year:>2019"},
		{0, 2023, "publication_year:<2024"},
		{0, 0, ""},
	}
	for _, tt := range tests {
		if got := openAlexYearFilter(tt.min, tt.max); got != tt.want {
			t.Errorf("openAlexYearFilter(%d, %d) = %q, want %q", tt.min, tt.max, got, tt.want)
		}
	}
}

const sampleOpenAlexJSON = `{
  "meta": {"count": 812, "per_page": 20, "page": 1},
  "results": [
    {
      "id": "https://openalex.org/W1",
      "title": "Grid-Scale Battery Storage",
      "doi": "https://doi.org/10.1016/J.EST.2021.1",
      "publication_date": "2021-04-02",
      "publication_year": 2021,
      "cited_by_count": 14,
      "authorships": [
        {"author": {"id": "A1", "display_name": "Ayşe Yılmaz"}},
        {"author": {"id": "A2", "display_name": "John Smith"}}
      ],
      "abstract_inverted_index": {"Batteries": [0], "store": [1], "energy": [2]},
      "primary_location": {"source": {"display_name": "Journal of Energy Storage"}},
      "biblio": {"volume": "38", "issue": "2", "first_page": "10", "last_page": "20"},
      "keywords": [{"display_name": "Energy storage"}]
    },
    {
      "id": "https://openalex.org/W2",
      "title": "",
      "publication_year": 2020
    },
    {
      "id": "https://openalex.org/W3",
      "title": "No DOI Work",
      "publication_year": 2019
    }
  ]
}`

func TestOpenAlexProvider_Search(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if ua := r.Header.Get("User-Agent"); ua != "harvest-test" {
			t.Errorf("User-Agent = %q", ua)
		}
		fmt.Fprint(w, sampleOpenAlexJSON)
	}))
	defer ts.Close()

	old := OpenAlexWorksBase
	OpenAlexWorksBase = ts.URL
	defer func() { OpenAlexWorksBase = old }()

	p := &OpenAlexProvider{Transport: Transport{Client: ts.Client(), UserAgent: "harvest-test"}, Email: "me@example.org"}
	page, err := p.Search(context.Background(), Query{Text: "battery storage", MaxResults: 20, YearMin: 2019, YearMax: 2022})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	for _, want := range []string{"search=battery+storage", "mailto=me%40example.org", "publication_year%3A2019-2022"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
	if page.Total != 812 {
		t.Errorf("Total = %d, want 812", page.Total)
	}
	if len(page.Records) != 2 {
		t.Fatalf("records = %d, want 2 (untitled work skipped)", len(page.Records))
	}

	r := page.Records[0]
	if r.Identifier != "10.1016/j.est.2021.1" {
		t.Errorf("Identifier = %q", r.Identifier)
	}
	if r.Body != "Batteries store energy" {
		t.Errorf("Body = %q", r.Body)
	}
	if r.PublishedAt != "2021-04-02" {
		t.Errorf("PublishedAt = %q", r.PublishedAt)
	}
	if len(r.Authors) != 2 || r.Authors[0] != "Ayşe Yılmaz" {
		t.Errorf("Authors = %v", r.Authors)
	}
	if r.ExtraString("venue") != "Journal of Energy Storage" || r.ExtraString("pages") != "10-20" {
		t.Errorf("Extra = %v", r.Extra)
	}
	if page.Records[1].Identifier != "https://openalex.org/W3" || page.Records[1].PublishedAt != "2019" {
		t.Errorf("fallback record = %+v", page.Records[1])
	}
}

func TestOpenAlexProvider_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	old := OpenAlexWorksBase
	OpenAlexWorksBase = ts.URL
	defer func() { OpenAlexWorksBase = old }()

	p := &OpenAlexProvider{Transport: Transport{Client: ts.Client()}}
	if _, err := p.Search(context.Background(), Query{Text: "x", MaxResults: 5}); err == nil {
		t.Fatal("expected error for 503")
	}
}

func TestOpenAlexProvider_LookupDOI(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/https://doi.org/10.1/x") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"id":"W9","title":"T","doi":"https://doi.org/10.1/x","abstract_inverted_index":{"hi":[0]}}`)
	}))
	defer ts.Close()

	old := OpenAlexWorksBase
	OpenAlexWorksBase = ts.URL
	defer func() { OpenAlexWorksBase = old }()

	p := &OpenAlexProvider{Transport: Transport{Client: ts.Client()}}
	r, err := p.LookupDOI(context.Background(), "DOI:10.1/X")
	if err != nil {
		t.Fatalf("LookupDOI: %v", err)
	}
	if r.Body != "hi" {
		t.Errorf("Body = %q", r.Body)
	}
	if _, err := p.LookupDOI(context.Background(), "10.2/missing"); err == nil {
		t.Error("expected error for unknown DOI")
	}
}
