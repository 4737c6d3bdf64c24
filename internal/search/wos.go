// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/harvest/pkg/types"
)

// WOSStarterBase is the Web of Science Starter documents endpoint. Declared
// as a var so tests can substitute an httptest server.
var WOSStarterBase = "https://api.clarivate.com/apis/wos-starter/v1/documents"

const wosPageSize = 50

var wosMonths = map[string]string{
	"JAN": "01", "FEB": "02", "MAR": "03", "APR": "04", "MAY": "05", "JUN": "06",
	"JUL": "07", "AUG": "08", "SEP": "09", "OCT": "10", "NOV": "11", "DEC": "12",
}

// WOSProvider queries the Web of Science Starter API. The Starter API
// returns no abstracts; records rely on enrichment for a body.
type WOSProvider struct {
	Transport
	APIKey string
	// Database is the WoS collection (default "WOS").
	Database string
}

// Name returns the provider identifier.
func (p *WOSProvider) Name() string { return "wos" }

// Search pages through WoS documents 50 at a time.
func (p *WOSProvider) Search(ctx context.Context, q Query) (Page, error) {
	if p.APIKey == "" {
		return Page{}, fmt.Errorf("wos: %w", ErrMissingAPIKey)
	}
	header := http.Header{}
	header.Set("X-ApiKey", p.APIKey)
	header.Set("Accept", "application/json")

	db := p.Database
	if db == "" {
		db = "WOS"
	}

	// The page size stays fixed because WoS pages are numbered, not offset.
	limit := min(q.MaxResults, wosPageSize)
	fetched := 0

	var page Page
	for pageNo := 1; len(page.Records) < q.MaxResults; pageNo++ {
		params := url.Values{
			"q":     {WOSQuery(q)},
			"db":    {db},
			"limit": {strconv.Itoa(limit)},
			"page":  {strconv.Itoa(pageNo)},
		}
		var wr wosResponse
		if err := p.getJSON(ctx, WOSStarterBase+"?"+params.Encode(), header, &wr); err != nil {
			if pageNo > 1 {
				break
			}
			return Page{}, fmt.Errorf("WoS API request: %w", err)
		}
		page.Total = wr.Metadata.Total
		for _, hit := range wr.Hits {
			if r, ok := hit.record(); ok {
				page.Records = append(page.Records, r)
			}
		}
		fetched += len(wr.Hits)
		if len(wr.Hits) == 0 || fetched >= wr.Metadata.Total {
			break
		}
	}
	return page, nil
}

// WOSQuery builds the advanced query for q (e.g. "TS=(battery) AND PY=2020-2024").
func WOSQuery(q Query) string {
	expr := fmt.Sprintf("TS=(%s)", q.Text)
	switch {
	case q.YearMin > 0 && q.YearMax > 0:
		expr += fmt.Sprintf(" AND PY=%d-%d", q.YearMin, q.YearMax)
	case q.YearMin > 0:
		expr += fmt.Sprintf(" AND PY=%d-9999", q.YearMin)
	case q.YearMax > 0:
		expr += fmt.Sprintf(" AND PY=1000-%d", q.YearMax)
	}
	return expr
}

func (h wosHit) record() (types.Record, bool) {
	title := strings.TrimSpace(h.Title)
	if title == "" {
		return types.Record{}, false
	}
	r := types.Record{
		Title:      title,
		Identifier: NormalizeIdentifier(h.Identifiers.DOI),
		Source:     "wos",
		URL:        h.Links.Record,
		Keywords:   h.Keywords.AuthorKeywords,
		Extra:      map[string]any{"wos_uid": h.UID},
	}
	if r.Identifier == "" {
		r.Identifier = h.UID
	}
	for _, a := range h.Names.Authors {
		if a.DisplayName != "" {
			r.Authors = append(r.Authors, a.DisplayName)
		}
	}
	if h.Source.PublishYear > 0 {
		r.PublishedAt = strconv.Itoa(h.Source.PublishYear)
		if m, ok := wosMonths[strings.ToUpper(strings.TrimSpace(h.Source.PublishMonth))]; ok {
			r.PublishedAt += "-" + m
		}
	}
	if h.Source.SourceTitle != "" {
		r.Extra["venue"] = h.Source.SourceTitle
	}
	if h.Source.Volume != "" {
		r.Extra["volume"] = h.Source.Volume
	}
	if h.Source.Issue != "" {
		r.Extra["issue"] = h.Source.Issue
	}
	if h.Source.Pages.Range != "" {
		r.Extra["pages"] = h.Source.Pages.Range
	}
	for _, c := range h.Citations {
		if c.DB == "WOS" {
			r.Extra["cited_by"] = c.Count
		}
	}
	return r, true
}

// WoS Starter API JSON structures.
type wosResponse struct {
	Metadata struct {
		Total int `json:"total"`
		Page  int `json:"page"`
		Limit int `json:"limit"`
	} `json:"metadata"`
	Hits []wosHit `json:"hits"`
}

type wosHit struct {
	UID    string `json:"uid"`
	Title  string `json:"title"`
	Source struct {
		SourceTitle  string `json:"sourceTitle"`
		PublishYear  int    `json:"publishYear"`
		PublishMonth string `json:"publishMonth"`
		Volume       string `json:"volume"`
		Issue        string `json:"issue"`
		Pages        struct {
			Range string `json:"range"`
		} `json:"pages"`
	} `json:"source"`
	Names struct {
		Authors []struct {
			DisplayName string `json:"displayName"`
		} `json:"authors"`
	} `json:"names"`
	Links struct {
		Record string `json:"record"`
	} `json:"links"`
	Citations []struct {
		DB    string `json:"db"`
		Count int    `json:"count"`
	} `json:"citations"`
	Identifiers struct {
		DOI string `json:"doi"`
	} `json:"identifiers"`
	Keywords struct {
		AuthorKeywords []string `json:"authorKeywords"`
	} `json:"keywords"`
}
