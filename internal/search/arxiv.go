// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pdiddy/harvest/pkg/types"
)

// ArxivAPIBase is the arXiv search endpoint. Declared as a var so tests can
// substitute an httptest server.
var ArxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivProvider queries the arXiv Atom API. Year bounds are applied client
// side because the API has no year filter.
type ArxivProvider struct {
	Transport
}

// Name returns the provider identifier.
func (p *ArxivProvider) Name() string { return "arxiv" }

// Search queries the arXiv API and returns matching entries.
func (p *ArxivProvider) Search(ctx context.Context, q Query) (Page, error) {
	params := url.Values{
		"search_query": {BuildArxivQuery(q.Text)},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(max(q.MaxResults, 1))},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}
	feed, err := p.FetchFeed(ctx, ArxivAPIBase+"?"+params.Encode())
	if err != nil {
		return Page{}, err
	}

	var page Page
	for _, item := range feed.Items {
		r, ok := ArxivRecord(item)
		if !ok || !q.InYears(PublishedYear(r.PublishedAt)) {
			continue
		}
		page.Records = append(page.Records, r)
	}
	page.Total = arxivTotal(feed, len(page.Records))
	return page, nil
}

// FetchFeed retrieves and parses an arXiv Atom feed. The arXiv enricher
// reuses it for id_list and title lookups.
func (p *ArxivProvider) FetchFeed(ctx context.Context, rawURL string) (*gofeed.Feed, error) {
	resp, err := p.get(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}
	return feed, nil
}

// BuildArxivQuery turns free text into an arXiv search_query expression
// requiring every term (e.g. "all:battery AND all:storage").
func BuildArxivQuery(text string) string {
	terms := strings.Fields(text)
	for i, t := range terms {
		terms[i] = "all:" + t
	}
	return strings.Join(terms, " AND ")
}

// ArxivRecord maps one Atom entry into a Record. Entries without an arXiv
// ID or title are rejected.
func ArxivRecord(item *gofeed.Item) (types.Record, bool) {
	if item == nil {
		return types.Record{}, false
	}
	id := ExtractArxivID(item.GUID)
	if id == "" {
		id = ExtractArxivID(item.Link)
	}
	title := strings.Join(strings.Fields(item.Title), " ")
	if id == "" || title == "" {
		return types.Record{}, false
	}

	r := types.Record{
		Title:      title,
		Identifier: "arxiv:" + id,
		Body:       strings.Join(strings.Fields(item.Description), " "),
		Source:     "arxiv",
		URL:        "https://arxiv.org/abs/" + id,
		Keywords:   item.Categories,
		Extra:      map[string]any{"arxiv_id": id},
	}
	for _, a := range item.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			r.Authors = append(r.Authors, strings.TrimSpace(a.Name))
		}
	}
	if item.PublishedParsed != nil {
		r.PublishedAt = item.PublishedParsed.UTC().Format(time.DateOnly)
	}
	if doi := arxivExtension(item, "doi"); doi != "" {
		r.Extra["doi"] = doi
	}
	if journal := arxivExtension(item, "journal_ref"); journal != "" {
		r.Extra["venue"] = journal
	}
	return r, true
}

func arxivExtension(item *gofeed.Item, name string) string {
	ext, ok := item.Extensions["arxiv"]
	if !ok {
		return ""
	}
	if vals := ext[name]; len(vals) > 0 {
		return strings.TrimSpace(vals[0].Value)
	}
	return ""
}

// arxivTotal reads opensearch:totalResults when gofeed kept it.
func arxivTotal(feed *gofeed.Feed, fallback int) int {
	if ext, ok := feed.Extensions["opensearch"]; ok {
		if vals := ext["totalResults"]; len(vals) > 0 {
			if n, err := strconv.Atoi(strings.TrimSpace(vals[0].Value)); err == nil {
				return n
			}
		}
	}
	return fallback
}

// ExtractArxivID pulls the arXiv ID from an entry URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" gives "2301.07041").
func ExtractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

// LookupID fetches a single entry by arXiv ID.
func (p *ArxivProvider) LookupID(ctx context.Context, id string) (types.Record, error) {
	id = NormalizeIdentifier(id)
	if id == "" {
		return types.Record{}, ErrNoMatch
	}
	feed, err := p.FetchFeed(ctx, ArxivAPIBase+"?"+url.Values{"id_list": {id}}.Encode())
	if err != nil {
		return types.Record{}, err
	}
	for _, item := range feed.Items {
		if r, ok := ArxivRecord(item); ok {
			return r, nil
		}
	}
	return types.Record{}, ErrNoMatch
}

// LookupTitle searches titles and accepts an entry whose normalized title
// equals title's.
func (p *ArxivProvider) LookupTitle(ctx context.Context, title string) (types.Record, error) {
	want := NormalizeTitle(title)
	if want == "" {
		return types.Record{}, ErrNoMatch
	}
	params := url.Values{
		"search_query": {`ti:"` + strings.Join(strings.Fields(want), " ") + `"`},
		"max_results":  {"5"},
	}
	feed, err := p.FetchFeed(ctx, ArxivAPIBase+"?"+params.Encode())
	if err != nil {
		return types.Record{}, err
	}
	for _, item := range feed.Items {
		if r, ok := ArxivRecord(item); ok && NormalizeTitle(r.Title) == want {
			return r, nil
		}
	}
	return types.Record{}, ErrNoMatch
}
