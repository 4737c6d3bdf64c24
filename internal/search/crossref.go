// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/harvest/pkg/types"
)

// CrossRefWorksBase is the CrossRef works endpoint. Declared as a var so
// tests can substitute an httptest server.
var CrossRefWorksBase = "https://api.crossref.org/works"

// crossRefPageSize is the rows requested per page.
const crossRefPageSize = 50

// CrossRefProvider queries the CrossRef REST API, paging with rows/offset.
type CrossRefProvider struct {
	Transport
	// Email is sent as mailto for the polite pool.
	Email string
}

// Name returns the provider identifier.
func (p *CrossRefProvider) Name() string { return "crossref" }

// Search pages through CrossRef until MaxResults records are collected or
// the upstream runs out.
func (p *CrossRefProvider) Search(ctx context.Context, q Query) (Page, error) {
	var page Page
	for offset := 0; len(page.Records) < q.MaxResults; {
		rows := min(q.MaxResults-len(page.Records), crossRefPageSize)
		var cr crossRefResponse
		if err := p.getJSON(ctx, p.pageURL(q, rows, offset), nil, &cr); err != nil {
			if offset > 0 {
				// Keep what earlier pages produced.
				break
			}
			return Page{}, fmt.Errorf("CrossRef API request: %w", err)
		}
		page.Total = cr.Message.TotalResults
		for _, item := range cr.Message.Items {
			if r, ok := item.record(); ok {
				page.Records = append(page.Records, r)
			}
		}
		offset += len(cr.Message.Items)
		if len(cr.Message.Items) == 0 || offset >= cr.Message.TotalResults {
			break
		}
	}
	return page, nil
}

func (p *CrossRefProvider) pageURL(q Query, rows, offset int) string {
	params := url.Values{
		"query.bibliographic": {q.Text},
		"rows":                {strconv.Itoa(rows)},
		"offset":              {strconv.Itoa(offset)},
	}
	var filters []string
	if q.YearMin > 0 {
		filters = append(filters, fmt.Sprintf("from-pub-date:%d-01-01", q.YearMin))
	}
	if q.YearMax > 0 {
		filters = append(filters, fmt.Sprintf("until-pub-date:%d-12-31", q.YearMax))
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}
	if p.Email != "" {
		params.Set("mailto", p.Email)
	}
	return CrossRefWorksBase + "?" + params.Encode()
}

func (it crossRefItem) record() (types.Record, bool) {
	title := ""
	if len(it.Title) > 0 {
		title = strings.Join(strings.Fields(it.Title[0]), " ")
	}
	if title == "" {
		return types.Record{}, false
	}
	r := types.Record{
		Title:      title,
		Identifier: NormalizeIdentifier(it.DOI),
		Body:       StripMarkup(it.Abstract),
		Source:     "crossref",
		URL:        it.URL,
		Keywords:   it.Subject,
		Extra: map[string]any{
			"cited_by": it.ReferencedBy,
		},
	}
	for _, a := range it.Author {
		if name := a.fullName(); name != "" {
			r.Authors = append(r.Authors, name)
		}
	}
	r.PublishedAt = it.Published.String()
	if r.PublishedAt == "" {
		r.PublishedAt = it.Issued.String()
	}
	if len(it.ContainerTitle) > 0 {
		r.Extra["venue"] = it.ContainerTitle[0]
	}
	if it.Volume != "" {
		r.Extra["volume"] = it.Volume
	}
	if it.Issue != "" {
		r.Extra["issue"] = it.Issue
	}
	if it.Page != "" {
		r.Extra["pages"] = it.Page
	}
	if it.Publisher != "" {
		r.Extra["publisher"] = it.Publisher
	}
	return r, true
}

// CrossRef API JSON structures.
type crossRefResponse struct {
	Status  string          `json:"status"`
	Message crossRefMessage `json:"message"`
}

type crossRefMessage struct {
	TotalResults int            `json:"total-results"`
	Items        []crossRefItem `json:"items"`
}

// crossRefWorkResponse wraps a single work lookup (/works/{doi}).
type crossRefWorkResponse struct {
	Message crossRefItem `json:"message"`
}

type crossRefItem struct {
	DOI            string           `json:"DOI"`
	Title          []string         `json:"title"`
	Abstract       string           `json:"abstract"`
	Author         []crossRefAuthor `json:"author"`
	Published      crossRefDate     `json:"published"`
	Issued         crossRefDate     `json:"issued"`
	ContainerTitle []string         `json:"container-title"`
	Volume         string           `json:"volume"`
	Issue          string           `json:"issue"`
	Page           string           `json:"page"`
	Publisher      string           `json:"publisher"`
	Subject        []string         `json:"subject"`
	URL            string           `json:"URL"`
	ReferencedBy   int              `json:"is-referenced-by-count"`
}

type crossRefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

func (a crossRefAuthor) fullName() string {
	if a.Name != "" {
		return strings.TrimSpace(a.Name)
	}
	return strings.TrimSpace(a.Given + " " + a.Family)
}

type crossRefDate struct {
	DateParts [][]int `json:"date-parts"`
}

// String renders date-parts as YYYY, YYYY-MM or YYYY-MM-DD.
func (d crossRefDate) String() string {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 || d.DateParts[0][0] == 0 {
		return ""
	}
	p := d.DateParts[0]
	switch len(p) {
	case 1:
		return fmt.Sprintf("%04d", p[0])
	case 2:
		return fmt.Sprintf("%04d-%02d", p[0], p[1])
	default:
		return fmt.Sprintf("%04d-%02d-%02d", p[0], p[1], p[2])
	}
}

// LookupDOI fetches a single work by DOI.
func (p *CrossRefProvider) LookupDOI(ctx context.Context, doi string) (types.Record, error) {
	doi = NormalizeIdentifier(doi)
	if doi == "" {
		return types.Record{}, ErrNoMatch
	}
	rawURL := CrossRefWorksBase + "/" + url.PathEscape(doi)
	if p.Email != "" {
		rawURL += "?" + url.Values{"mailto": {p.Email}}.Encode()
	}
	var wr crossRefWorkResponse
	if err := p.getJSON(ctx, rawURL, nil, &wr); err != nil {
		return types.Record{}, fmt.Errorf("CrossRef work lookup: %w", err)
	}
	r, ok := wr.Message.record()
	if !ok {
		return types.Record{}, ErrNoMatch
	}
	return r, nil
}
