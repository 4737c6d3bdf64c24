// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

const sampleScholarHTML = `<html><body>
<div class="gs_r gs_or gs_scl"><div class="gs_ri">
  <h3 class="gs_rt"><span class="gs_ctg2">[PDF]</span> <a href="https://example.org/a.pdf">Flow Batteries for Grid Storage</a></h3>
  <div class="gs_a">A Smith, B Jones… - Journal of Power Sources, 2020 - Elsevier</div>
  <div class="gs_rs">Flow batteries offer long duration storage.</div>
  <div class="gs_fl"><a href="#">Save</a><a href="/scholar?cites=1">Cited by 154</a></div>
</div></div>
<div class="gs_r gs_or gs_scl"><div class="gs_ri">
  <h3 class="gs_rt"></h3>
</div></div>
</body></html>`

func TestParseScholarHTML(t *testing.T) {
	records, err := ParseScholarHTML(strings.NewReader(sampleScholarHTML))
	if err != nil {
		t.Fatalf("ParseScholarHTML: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	r := records[0]
	if r.Title != "Flow Batteries for Grid Storage" {
		t.Errorf("Title = %q", r.Title)
	}
	if r.URL != "https://example.org/a.pdf" || r.PublishedAt != "2020" {
		t.Errorf("URL/date = %q %q", r.URL, r.PublishedAt)
	}
	if len(r.Authors) != 2 || r.Authors[1] != "B Jones" {
		t.Errorf("Authors = %v", r.Authors)
	}
	if r.ExtraString("venue") != "Journal of Power Sources" {
		t.Errorf("venue = %q", r.ExtraString("venue"))
	}
	if r.Extra["cited_by"] != 154 {
		t.Errorf("cited_by = %v", r.Extra["cited_by"])
	}
}

func TestSplitScholarByline(t *testing.T) {
	authors, venue := SplitScholarByline("J Doe - arXiv preprint arXiv:2101.1, 2021 - arxiv.org")
	if len(authors) != 1 || authors[0] != "J Doe" {
		t.Errorf("authors = %v", authors)
	}
	if venue != "arXiv preprint arXiv:2101.1" {
		t.Errorf("venue = %q", venue)
	}
	if a, v := SplitScholarByline(""); a != nil || v != "" {
		t.Errorf("empty byline = %v, %q", a, v)
	}
}

func TestScholarProvider_UsesProxy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "pk" {
			t.Error("missing api_key")
		}
		target, err := url.Parse(r.URL.Query().Get("url"))
		if err != nil {
			t.Fatalf("bad target url: %v", err)
		}
		if target.Query().Get("as_ylo") != "2019" || target.Query().Get("q") != "flow battery" {
			t.Errorf("target = %s", target)
		}
		fmt.Fprint(w, sampleScholarHTML)
	}))
	defer ts.Close()

	p := &ScholarProvider{Transport: Transport{Client: ts.Client()}, ProxyURL: ts.URL, ProxyKey: "pk"}
	page, err := p.Search(context.Background(), Query{Text: "flow battery", MaxResults: 5, YearMin: 2019})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Records) != 1 {
		t.Errorf("records = %d, want 1", len(page.Records))
	}
}

func TestScholarProvider_RequiresProxy(t *testing.T) {
	p := &ScholarProvider{}
	if _, err := p.Search(context.Background(), Query{Text: "x", MaxResults: 1}); err == nil {
		t.Error("expected error without proxy URL")
	}
}
