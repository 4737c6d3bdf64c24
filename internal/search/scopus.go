// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/harvest/pkg/types"
)

// ScopusSearchBase is the Scopus Search API endpoint. Declared as a var so
// tests can substitute an httptest server.
var ScopusSearchBase = "https://api.elsevier.com/content/search/scopus"

// scopusPageSize is the largest count the COMPLETE view allows.
const scopusPageSize = 25

// ErrMissingAPIKey reports a provider that requires a key it was not given.
var ErrMissingAPIKey = errors.New("API key not configured")

// ScopusProvider queries Elsevier's Scopus Search API.
type ScopusProvider struct {
	Transport
	APIKey string
}

// Name returns the provider identifier.
func (p *ScopusProvider) Name() string { return "scopus" }

// Search pages through Scopus results 25 at a time.
func (p *ScopusProvider) Search(ctx context.Context, q Query) (Page, error) {
	if p.APIKey == "" {
		return Page{}, fmt.Errorf("scopus: %w", ErrMissingAPIKey)
	}
	header := http.Header{}
	header.Set("X-ELS-APIKey", p.APIKey)
	header.Set("Accept", "application/json")

	var page Page
	for start := 0; len(page.Records) < q.MaxResults; {
		count := min(q.MaxResults-len(page.Records), scopusPageSize)
		var sr scopusResponse
		if err := p.getJSON(ctx, ScopusSearchBase+"?"+scopusParams(q, count, start).Encode(), header, &sr); err != nil {
			if start > 0 {
				break
			}
			return Page{}, fmt.Errorf("Scopus API request: %w", err)
		}
		total, _ := strconv.Atoi(sr.SearchResults.TotalResults)
		page.Total = total
		entries := sr.SearchResults.Entries
		for _, e := range entries {
			if r, ok := e.record(); ok {
				page.Records = append(page.Records, r)
			}
		}
		start += len(entries)
		if len(entries) == 0 || start >= total {
			break
		}
	}
	return page, nil
}

// ScopusQuery builds the advanced-search expression for q.
func ScopusQuery(q Query) string {
	parts := []string{fmt.Sprintf("TITLE-ABS-KEY(%s)", q.Text)}
	if q.YearMin > 0 {
		parts = append(parts, fmt.Sprintf("PUBYEAR > %d", q.YearMin-1))
	}
	if q.YearMax > 0 {
		parts = append(parts, fmt.Sprintf("PUBYEAR < %d", q.YearMax+1))
	}
	return strings.Join(parts, " AND ")
}

func scopusParams(q Query, count, start int) url.Values {
	v := url.Values{
		"query": {ScopusQuery(q)},
		"view":  {"COMPLETE"},
		"count": {strconv.Itoa(count)},
	}
	if start > 0 {
		v.Set("start", strconv.Itoa(start))
	}
	return v
}

func (e scopusEntry) record() (types.Record, bool) {
	title := strings.TrimSpace(e.Title)
	if title == "" || e.Error != "" {
		return types.Record{}, false
	}
	r := types.Record{
		Title:       title,
		Identifier:  NormalizeIdentifier(e.DOI),
		Body:        strings.TrimSpace(e.Description),
		PublishedAt: e.CoverDate,
		Source:      "scopus",
		Extra: map[string]any{
			"eid": e.EID,
		},
	}
	if r.Identifier == "" {
		r.Identifier = e.EID
	}
	for _, a := range e.Authors {
		if a.Name != "" {
			r.Authors = append(r.Authors, a.Name)
		}
	}
	if len(r.Authors) == 0 && e.Creator != "" {
		r.Authors = []string{e.Creator}
	}
	for _, kw := range strings.Split(e.AuthKeywords, "|") {
		if kw = strings.TrimSpace(kw); kw != "" {
			r.Keywords = append(r.Keywords, kw)
		}
	}
	for _, l := range e.Links {
		if l.Ref == "scopus" {
			r.URL = l.Href
		}
	}
	if r.URL == "" && e.DOI != "" {
		r.URL = "https://doi.org/" + e.DOI
	}
	if e.PublicationName != "" {
		r.Extra["venue"] = e.PublicationName
	}
	if e.Volume != "" {
		r.Extra["volume"] = e.Volume
	}
	if e.IssueID != "" {
		r.Extra["issue"] = e.IssueID
	}
	if e.PageRange != "" {
		r.Extra["pages"] = e.PageRange
	}
	if n, err := strconv.Atoi(e.CitedByCount); err == nil {
		r.Extra["cited_by"] = n
	}
	return r, true
}

// Scopus Search API JSON structures.
type scopusResponse struct {
	SearchResults scopusResults `json:"search-results"`
}

type scopusResults struct {
	TotalResults string        `json:"opensearch:totalResults"`
	Entries      []scopusEntry `json:"entry"`
}

type scopusEntry struct {
	Error           string         `json:"error"`
	EID             string         `json:"eid"`
	DOI             string         `json:"prism:doi"`
	Title           string         `json:"dc:title"`
	Creator         string         `json:"dc:creator"`
	Description     string         `json:"dc:description"`
	PublicationName string         `json:"prism:publicationName"`
	Volume          string         `json:"prism:volume"`
	IssueID         string         `json:"prism:issueIdentifier"`
	PageRange       string         `json:"prism:pageRange"`
	CoverDate       string         `json:"prism:coverDate"`
	CitedByCount    string         `json:"citedby-count"`
	AuthKeywords    string         `json:"authkeywords"`
	Authors         []scopusAuthor `json:"author"`
	Links           []scopusLink   `json:"link"`
}

type scopusAuthor struct {
	Name string `json:"authname"`
}

type scopusLink struct {
	Ref  string `json:"@ref"`
	Href string `json:"@href"`
}
