// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestScopusQuery(t *testing.T) {
	tests := []struct {
		q    Query
		want string
	}{
		{Query{Text: "battery"}, "TITLE-ABS-KEY(battery)"},
		{Query{Text: "battery", YearMin: 2020, YearMax: 2022}, "TITLE-ABS-KEY(battery) AND PUBYEAR > 2019 AND PUBYEAR < 2023"},
		{Query{Text: "battery", YearMax: 2022}, "TITLE-ABS-KEY(battery) AND PUBYEAR < 2023"},
	}
	for _, tt := range tests {
		if got := ScopusQuery(tt.q); got != tt.want {
			t.Errorf("ScopusQuery(%+v) = %q, want %q", tt.q, got, tt.want)
		}
	}
}

func TestScopusProvider_RequiresKey(t *testing.T) {
	p := &ScopusProvider{}
	if _, err := p.Search(context.Background(), Query{Text: "x", MaxResults: 5}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestScopusProvider_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-ELS-APIKey") != "secret" {
			t.Errorf("missing API key header")
		}
		fmt.Fprint(w, `{"search-results":{"opensearch:totalResults":"2","entry":[
			{"eid":"2-s2.0-1","prism:doi":"10.9/ABC","dc:title":"Sodium Batteries","dc:description":"Abstract here",
			 "prism:coverDate":"2022-08-01","prism:publicationName":"Energy","citedby-count":"7",
			 "authkeywords":"sodium | battery","author":[{"authname":"Kaya A."}],
			 "link":[{"@ref":"scopus","@href":"https://www.scopus.com/1"}]},
			{"eid":"2-s2.0-2","dc:title":"No DOI","dc:creator":"Lee B.","prism:coverDate":"2021-01-01"}
		]}}`)
	}))
	defer ts.Close()

	old := ScopusSearchBase
	ScopusSearchBase = ts.URL
	defer func() { ScopusSearchBase = old }()

	p := &ScopusProvider{Transport: Transport{Client: ts.Client()}, APIKey: "secret"}
	page, err := p.Search(context.Background(), Query{Text: "sodium", MaxResults: 25})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Records) != 2 || page.Total != 2 {
		t.Fatalf("records = %d total = %d", len(page.Records), page.Total)
	}
	r := page.Records[0]
	if r.Identifier != "10.9/abc" || r.URL != "https://www.scopus.com/1" {
		t.Errorf("record = %+v", r)
	}
	if len(r.Keywords) != 2 || r.Keywords[1] != "battery" {
		t.Errorf("Keywords = %v", r.Keywords)
	}
	if r.Extra["cited_by"] != 7 {
		t.Errorf("cited_by = %v", r.Extra["cited_by"])
	}
	second := page.Records[1]
	if second.Identifier != "2-s2.0-2" || len(second.Authors) != 1 || second.Authors[0] != "Lee B." {
		t.Errorf("second = %+v", second)
	}
}

func TestScopusProvider_EmptyResultEntry(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"search-results":{"opensearch:totalResults":"0","entry":[{"@_fa":"true","error":"Result set was empty"}]}}`)
	}))
	defer ts.Close()

	old := ScopusSearchBase
	ScopusSearchBase = ts.URL
	defer func() { ScopusSearchBase = old }()

	p := &ScopusProvider{Transport: Transport{Client: ts.Client()}, APIKey: "k"}
	page, err := p.Search(context.Background(), Query{Text: "zzz", MaxResults: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Records) != 0 {
		t.Errorf("records = %d, want 0", len(page.Records))
	}
}
