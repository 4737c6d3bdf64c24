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

// SemanticScholarBase is the Semantic Scholar Graph API root. Declared as a
// var so tests can substitute an httptest server.
var SemanticScholarBase = "https://api.semanticscholar.org/graph/v1"

// SemanticScholarFields lists the paper fields requested from the Graph API.
const SemanticScholarFields = "title,abstract,authors,externalIds,year,publicationDate,venue,url,citationCount,fieldsOfStudy"

const semanticMaxLimit = 100

// SemanticScholarProvider queries the Semantic Scholar API.
type SemanticScholarProvider struct {
	Transport
	APIKey string
}

// Name returns the provider identifier.
func (p *SemanticScholarProvider) Name() string { return "semantic_scholar" }

// Search queries the paper search endpoint.
func (p *SemanticScholarProvider) Search(ctx context.Context, q Query) (Page, error) {
	params := url.Values{
		"query":  {q.Text},
		"limit":  {strconv.Itoa(min(max(q.MaxResults, 1), semanticMaxLimit))},
		"fields": {SemanticScholarFields},
	}
	if yr := semanticYearRange(q.YearMin, q.YearMax); yr != "" {
		params.Set("year", yr)
	}

	var sr semanticResponse
	if err := p.getJSON(ctx, SemanticScholarBase+"/paper/search?"+params.Encode(), p.header(), &sr); err != nil {
		return Page{}, fmt.Errorf("Semantic Scholar API request: %w", err)
	}

	page := Page{Total: sr.Total}
	for _, paper := range sr.Data {
		if r, ok := paper.record(); ok {
			page.Records = append(page.Records, r)
		}
	}
	return page, nil
}

func (p *SemanticScholarProvider) header() http.Header {
	h := http.Header{}
	if p.APIKey != "" {
		h.Set("x-api-key", p.APIKey)
	}
	return h
}

// semanticYearRange returns a year filter string (e.g. "2020-2023", "2020-").
func semanticYearRange(minYear, maxYear int) string {
	switch {
	case minYear > 0 && maxYear > 0:
		return fmt.Sprintf("%d-%d", minYear, maxYear)
	case minYear > 0:
		return fmt.Sprintf("%d-", minYear)
	case maxYear > 0:
		return fmt.Sprintf("-%d", maxYear)
	default:
		return ""
	}
}

func (p semanticPaper) record() (types.Record, bool) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return types.Record{}, false
	}
	r := types.Record{
		Title:    title,
		Body:     strings.TrimSpace(p.Abstract),
		Source:   "semantic_scholar",
		URL:      p.URL,
		Keywords: p.FieldsOfStudy,
		Extra: map[string]any{
			"s2_paper_id": p.PaperID,
			"cited_by":    p.CitationCount,
		},
	}
	for _, a := range p.Authors {
		if a.Name != "" {
			r.Authors = append(r.Authors, a.Name)
		}
	}
	switch {
	case p.PublicationDate != "":
		r.PublishedAt = p.PublicationDate
	case p.Year > 0:
		r.PublishedAt = strconv.Itoa(p.Year)
	}
	if p.Venue != "" {
		r.Extra["venue"] = p.Venue
	}

	// DOI first so records dedup against DOI-centric sources.
	switch {
	case p.ExternalIDs.DOI != "":
		r.Identifier = NormalizeIdentifier(p.ExternalIDs.DOI)
	case p.ExternalIDs.ArXiv != "":
		r.Identifier = "arxiv:" + p.ExternalIDs.ArXiv
	default:
		r.Identifier = p.PaperID
	}
	if p.ExternalIDs.ArXiv != "" {
		r.Extra["arxiv_id"] = p.ExternalIDs.ArXiv
	}
	return r, true
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Year            int                 `json:"year"`
	PublicationDate string              `json:"publicationDate"`
	Venue           string              `json:"venue"`
	URL             string              `json:"url"`
	CitationCount   int                 `json:"citationCount"`
	FieldsOfStudy   []string            `json:"fieldsOfStudy"`
	Authors         []semanticAuthor    `json:"authors"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI      string `json:"DOI"`
	ArXiv    string `json:"ArXiv"`
	CorpusID int    `json:"CorpusId"`
}

// LookupDOI fetches a single paper by DOI.
func (p *SemanticScholarProvider) LookupDOI(ctx context.Context, doi string) (types.Record, error) {
	doi = NormalizeIdentifier(doi)
	if doi == "" {
		return types.Record{}, ErrNoMatch
	}
	rawURL := SemanticScholarBase + "/paper/DOI:" + url.PathEscape(doi) + "?" + url.Values{"fields": {SemanticScholarFields}}.Encode()
	var paper semanticPaper
	if err := p.getJSON(ctx, rawURL, p.header(), &paper); err != nil {
		return types.Record{}, fmt.Errorf("Semantic Scholar paper lookup: %w", err)
	}
	r, ok := paper.record()
	if !ok {
		return types.Record{}, ErrNoMatch
	}
	return r, nil
}

// LookupTitle asks the title-match endpoint for the closest paper. The
// match is accepted only when its normalized title equals title's.
func (p *SemanticScholarProvider) LookupTitle(ctx context.Context, title string) (types.Record, error) {
	want := NormalizeTitle(title)
	if want == "" {
		return types.Record{}, ErrNoMatch
	}
	params := url.Values{"query": {title}, "fields": {SemanticScholarFields}}
	var sr semanticResponse
	if err := p.getJSON(ctx, SemanticScholarBase+"/paper/search/match?"+params.Encode(), p.header(), &sr); err != nil {
		return types.Record{}, fmt.Errorf("Semantic Scholar title match: %w", err)
	}
	for _, paper := range sr.Data {
		r, ok := paper.record()
		if ok && NormalizeTitle(r.Title) == want {
			return r, nil
		}
	}
	return types.Record{}, ErrNoMatch
}
