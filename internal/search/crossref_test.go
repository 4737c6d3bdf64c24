// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
)

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"<jats:title>Abstract</jats:title><jats:p>Lithium &amp; sodium cells.</jats:p>", "Lithium & sodium cells."},
		{"<p>One</p><p>Two</p>", "One Two"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := StripMarkup(tt.in); got != tt.want {
			t.Errorf("StripMarkup(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func crossRefPage(offset, n, total int) string {
	items := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			items += ","
		}
		idx := offset + i
		items += fmt.Sprintf(`{"DOI":"10.5/%d","title":["Work %d"],"author":[{"given":"Ali","family":"Demir"}],
			"published":{"date-parts":[[2020,%d]]},"container-title":["Energy"],"abstract":"<jats:p>Body %d</jats:p>"}`,
			idx, idx, (idx%12)+1, idx)
	}
	return fmt.Sprintf(`{"status":"ok","message":{"total-results":%d,"items":[%s]}}`, total, items)
}

func TestCrossRefProvider_Paginates(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		if q.Get("query.bibliographic") != "battery" {
			t.Errorf("query = %q", q.Get("query.bibliographic"))
		}
		if q.Get("filter") != "from-pub-date:2019-01-01,until-pub-date:2021-12-31" {
			t.Errorf("filter = %q", q.Get("filter"))
		}
		offset, _ := strconv.Atoi(q.Get("offset"))
		rows, _ := strconv.Atoi(q.Get("rows"))
		fmt.Fprint(w, crossRefPage(offset, rows, 1000))
	}))
	defer ts.Close()

	old := CrossRefWorksBase
	CrossRefWorksBase = ts.URL
	defer func() { CrossRefWorksBase = old }()

	p := &CrossRefProvider{Transport: Transport{Client: ts.Client()}}
	page, err := p.Search(context.Background(), Query{Text: "battery", MaxResults: 70, YearMin: 2019, YearMax: 2021})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Records) != 70 {
		t.Errorf("records = %d, want 70", len(page.Records))
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 pages", calls.Load())
	}
	r := page.Records[0]
	if r.Identifier != "10.5/0" || r.Body != "Body 0" || r.PublishedAt != "2020-01" {
		t.Errorf("record = %+v", r)
	}
	if len(r.Authors) != 1 || r.Authors[0] != "Ali Demir" {
		t.Errorf("Authors = %v", r.Authors)
	}
	if page.Total != 1000 {
		t.Errorf("Total = %d", page.Total)
	}
}

func TestCrossRefProvider_StopsWhenExhausted(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if offset > 0 {
			t.Error("requested a page past total-results")
		}
		fmt.Fprint(w, crossRefPage(0, 3, 3))
	}))
	defer ts.Close()

	old := CrossRefWorksBase
	CrossRefWorksBase = ts.URL
	defer func() { CrossRefWorksBase = old }()

	p := &CrossRefProvider{Transport: Transport{Client: ts.Client()}}
	page, err := p.Search(context.Background(), Query{Text: "x", MaxResults: 20})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Records) != 3 {
		t.Errorf("records = %d, want 3", len(page.Records))
	}
}

func TestCrossRefDateString(t *testing.T) {
	tests := []struct {
		parts [][]int
		want  string
	}{
		{nil, ""},
		{[][]int{{2021}}, "2021"},
		{[][]int{{2021, 3}}, "2021-03"},
		{[][]int{{2021, 3, 9}}, "2021-03-09"},
	}
	for _, tt := range tests {
		if got := (crossRefDate{DateParts: tt.parts}).String(); got != tt.want {
			t.Errorf("String(%v) = %q, want %q", tt.parts, got, tt.want)
		}
	}
}
