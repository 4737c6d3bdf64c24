// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/harvest/pkg/types"
)

// OpenAlexWorksBase is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var OpenAlexWorksBase = "https://api.openalex.org/works"

// openAlexMaxPerPage is the API's page size ceiling.
const openAlexMaxPerPage = 200

// OpenAlexProvider queries the OpenAlex API.
type OpenAlexProvider struct {
	Transport
	// Email is sent as mailto parameter for polite pool access.
	Email string
}

// Name returns the provider identifier.
func (p *OpenAlexProvider) Name() string { return "openalex" }

// Search queries the OpenAlex API and returns one page of results.
func (p *OpenAlexProvider) Search(ctx context.Context, q Query) (Page, error) {
	perPage := min(max(q.MaxResults, 1), openAlexMaxPerPage)

	params := url.Values{
		"search":   {q.Text},
		"per_page": {strconv.Itoa(perPage)},
		"page":     {"1"},
	}
	if f := openAlexYearFilter(q.YearMin, q.YearMax); f != "" {
		params.Set("filter", f)
	}
	if p.Email != "" {
		params.Set("mailto", p.Email)
	}

	var oar openAlexResponse
	if err := p.getJSON(ctx, OpenAlexWorksBase+"?"+params.Encode(), nil, &oar); err != nil {
		return Page{}, fmt.Errorf("OpenAlex API request: %w", err)
	}

	page := Page{Total: oar.Meta.Count}
	for _, work := range oar.Results {
		if r, ok := work.record(); ok {
			page.Records = append(page.Records, r)
		}
	}
	return page, nil
}

// openAlexYearFilter returns a publication_year filter expression.
func openAlexYearFilter(minYear, maxYear int) string {
	switch {
	case minYear > 0 && maxYear > 0:
		return fmt.Sprintf("publication_year:%d-%d", minYear, maxYear)
	case minYear > 0:
		return fmt.Sprintf("publication_year:>%d", minYear-1)
	case maxYear > 0:
		return fmt.Sprintf("publication_year:<%d", maxYear+1)
	default:
		return ""
	}
}

func (w openAlexWork) record() (types.Record, bool) {
	title := strings.TrimSpace(w.Title)
	if title == "" {
		title = strings.TrimSpace(w.DisplayName)
	}
	if title == "" {
		return types.Record{}, false
	}

	r := types.Record{
		Title:  title,
		Body:   ReconstructAbstract(w.AbstractInvertedIndex),
		Source: "openalex",
		Extra:  map[string]any{},
	}

	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			r.Authors = append(r.Authors, a.Author.DisplayName)
		}
	}
	for _, k := range w.Keywords {
		if k.DisplayName != "" {
			r.Keywords = append(r.Keywords, k.DisplayName)
		}
	}

	switch {
	case w.PublicationDate != "":
		r.PublishedAt = w.PublicationDate
	case w.PublicationYear > 0:
		r.PublishedAt = strconv.Itoa(w.PublicationYear)
	}

	// OpenAlex is DOI-centric; the bare DOI is the identifier.
	if w.DOI != "" {
		r.Identifier = NormalizeIdentifier(w.DOI)
		r.URL = w.DOI
	} else {
		r.Identifier = w.ID
		r.URL = w.ID
	}

	r.Extra["openalex_id"] = w.ID
	if w.PrimaryLocation.Source.DisplayName != "" {
		r.Extra["venue"] = w.PrimaryLocation.Source.DisplayName
	}
	if w.Biblio.Volume != "" {
		r.Extra["volume"] = w.Biblio.Volume
	}
	if w.Biblio.Issue != "" {
		r.Extra["issue"] = w.Biblio.Issue
	}
	if pages := pageRange(w.Biblio.FirstPage, w.Biblio.LastPage); pages != "" {
		r.Extra["pages"] = pages
	}
	r.Extra["cited_by"] = w.CitedByCount
	if w.OpenAccess.OAURL != "" {
		r.Extra["oa_url"] = w.OpenAccess.OAURL
	}
	return r, true
}

func pageRange(first, last string) string {
	switch {
	case first != "" && last != "" && first != last:
		return first + "-" + last
	case first != "":
		return first
	default:
		return last
	}
}

// ReconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to the positions where it
// appears.
func ReconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DisplayName           string               `json:"display_name"`
	DOI                   string               `json:"doi"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	CitedByCount          int                  `json:"cited_by_count"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	OpenAccess            openAlexOpenAccess   `json:"open_access"`
	PrimaryLocation       openAlexLocation     `json:"primary_location"`
	Biblio                openAlexBiblio       `json:"biblio"`
	Keywords              []openAlexKeyword    `json:"keywords"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexOpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAStatus string `json:"oa_status"`
	OAURL    string `json:"oa_url"`
}

type openAlexLocation struct {
	Source struct {
		DisplayName string `json:"display_name"`
	} `json:"source"`
}

type openAlexBiblio struct {
	Volume    string `json:"volume"`
	Issue     string `json:"issue"`
	FirstPage string `json:"first_page"`
	LastPage  string `json:"last_page"`
}

type openAlexKeyword struct {
	DisplayName string `json:"display_name"`
}

// LookupDOI fetches a single work by DOI.
func (p *OpenAlexProvider) LookupDOI(ctx context.Context, doi string) (types.Record, error) {
	doi = NormalizeIdentifier(doi)
	if doi == "" {
		return types.Record{}, ErrNoMatch
	}
	rawURL := OpenAlexWorksBase + "/https://doi.org/" + doi
	if p.Email != "" {
		rawURL += "?" + url.Values{"mailto": {p.Email}}.Encode()
	}
	var work openAlexWork
	if err := p.getJSON(ctx, rawURL, nil, &work); err != nil {
		return types.Record{}, fmt.Errorf("OpenAlex work lookup: %w", err)
	}
	r, ok := work.record()
	if !ok {
		return types.Record{}, ErrNoMatch
	}
	return r, nil
}
