// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWOSQuery(t *testing.T) {
	tests := []struct {
		q    Query
		want string
	}{
		{Query{Text: "battery"}, "TS=(battery)"},
		{Query{Text: "battery", YearMin: 2018, YearMax: 2020}, "TS=(battery) AND PY=2018-2020"},
	}
	for _, tt := range tests {
		if got := WOSQuery(tt.q); got != tt.want {
			t.Errorf("WOSQuery(%+v) = %q, want %q", tt.q, got, tt.want)
		}
	}
}

func TestWOSProvider_Search(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-ApiKey") != "wk" {
			t.Error("missing X-ApiKey")
		}
		if r.URL.Query().Get("q") != "TS=(battery) AND PY=2018-2020" {
			t.Errorf("q = %q", r.URL.Query().Get("q"))
		}
		fmt.Fprint(w, `{"metadata":{"total":1,"page":1,"limit":10},"hits":[{
			"uid":"WOS:000123","title":"Battery Recycling",
			"source":{"sourceTitle":"Waste Management","publishYear":2019,"publishMonth":"MAR","volume":"5","pages":{"range":"1-9"}},
			"names":{"authors":[{"displayName":"Yildiz, M"}]},
			"links":{"record":"https://www.webofscience.com/wos/woscc/full-record/WOS:000123"},
			"citations":[{"db":"WOS","count":12}],
			"identifiers":{"doi":"10.7/REC"},
			"keywords":{"authorKeywords":["recycling"]}}]}`)
	}))
	defer ts.Close()

	old := WOSStarterBase
	WOSStarterBase = ts.URL
	defer func() { WOSStarterBase = old }()

	p := &WOSProvider{Transport: Transport{Client: ts.Client()}, APIKey: "wk"}
	page, err := p.Search(context.Background(), Query{Text: "battery", MaxResults: 10, YearMin: 2018, YearMax: 2020})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(page.Records))
	}
	r := page.Records[0]
	if r.Identifier != "10.7/rec" || r.PublishedAt != "2019-03" || r.Body != "" {
		t.Errorf("record = %+v", r)
	}
	if r.Extra["cited_by"] != 12 || r.ExtraString("pages") != "1-9" {
		t.Errorf("Extra = %v", r.Extra)
	}
}
