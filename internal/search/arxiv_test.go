// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleArxivAtom = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title>arXiv Query</title>
  <opensearch:totalResults>42</opensearch:totalResults>
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <published>2023-01-17T18:00:00Z</published>
    <title>Solid-State Battery
      Interfaces</title>
    <summary>  We study interfaces.  </summary>
    <author><name>Alice Kaya</name></author>
    <author><name>Bob Lee</name></author>
    <arxiv:doi>10.1000/ssb.1</arxiv:doi>
    <category term="cond-mat.mtrl-sci"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1501.00001v1</id>
    <published>2015-01-01T00:00:00Z</published>
    <title>Old Paper</title>
    <summary>Old.</summary>
  </entry>
  <entry>
    <id>http://example.com/not-arxiv</id>
    <title>No ID</title>
  </entry>
</feed>`

func TestBuildArxivQuery(t *testing.T) {
	if got := BuildArxivQuery("battery  storage"); got != "all:battery AND all:storage" {
		t.Errorf("BuildArxivQuery() = %q", got)
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := map[string]string{
		"http://arxiv.org/abs/2301.07041v1":  "2301.07041",
		"http://arxiv.org/abs/hep-th/9901001": "hep-th/9901001",
		"http://example.com/x":                "",
	}
	for in, want := range tests {
		if got := ExtractArxivID(in); got != want {
			t.Errorf("ExtractArxivID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestArxivProvider_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("search_query"); q != "all:solid AND all:battery" {
			t.Errorf("search_query = %q", q)
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, sampleArxivAtom)
	}))
	defer ts.Close()

	old := ArxivAPIBase
	ArxivAPIBase = ts.URL
	defer func() { ArxivAPIBase = old }()

	p := &ArxivProvider{Transport: Transport{Client: ts.Client()}}
	page, err := p.Search(context.Background(), Query{Text: "solid battery", MaxResults: 10, YearMin: 2020})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Records) != 1 {
		t.Fatalf("records = %d, want 1 (old entry filtered, id-less entry skipped)", len(page.Records))
	}
	r := page.Records[0]
	if r.Identifier != "arxiv:2301.07041" {
		t.Errorf("Identifier = %q", r.Identifier)
	}
	if r.Title != "Solid-State Battery Interfaces" {
		t.Errorf("Title = %q", r.Title)
	}
	if r.Body != "We study interfaces." {
		t.Errorf("Body = %q", r.Body)
	}
	if r.PublishedAt != "2023-01-17" {
		t.Errorf("PublishedAt = %q", r.PublishedAt)
	}
	if len(r.Authors) != 2 {
		t.Errorf("Authors = %v", r.Authors)
	}
	if r.ExtraString("doi") != "10.1000/ssb.1" {
		t.Errorf("doi = %q", r.ExtraString("doi"))
	}
}

func TestArxivProvider_LookupID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id_list") != "2301.07041" {
			t.Errorf("id_list = %q", r.URL.Query().Get("id_list"))
		}
		fmt.Fprint(w, sampleArxivAtom)
	}))
	defer ts.Close()

	old := ArxivAPIBase
	ArxivAPIBase = ts.URL
	defer func() { ArxivAPIBase = old }()

	p := &ArxivProvider{Transport: Transport{Client: ts.Client()}}
	r, err := p.LookupID(context.Background(), "arXiv:2301.07041")
	if err != nil {
		t.Fatalf("LookupID: %v", err)
	}
	if r.Body != "We study interfaces." {
		t.Errorf("Body = %q", r.Body)
	}
}
