// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/harvest/pkg/types"
)

// ScholarBase is the Google Scholar results page fetched through the proxy.
var ScholarBase = "https://scholar.google.com/scholar"

const scholarPageSize = 10

var (
	yearPattern    = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	citedByPattern = regexp.MustCompile(`(\d+)`)
)

// ScholarProvider scrapes Google Scholar result pages through a scraping
// proxy that takes api_key and url parameters.
type ScholarProvider struct {
	Transport
	ProxyURL string
	ProxyKey string
}

// Name returns the provider identifier.
func (p *ScholarProvider) Name() string { return "scholar" }

// Search fetches result pages of ten until MaxResults records are collected.
func (p *ScholarProvider) Search(ctx context.Context, q Query) (Page, error) {
	if p.ProxyURL == "" {
		return Page{}, errors.New("scholar: proxy URL not configured")
	}

	var page Page
	for start := 0; len(page.Records) < q.MaxResults; start += scholarPageSize {
		records, err := p.fetchPage(ctx, q, start)
		if err != nil {
			if start > 0 {
				break
			}
			return Page{}, err
		}
		page.Records = append(page.Records, records...)
		if len(records) < scholarPageSize {
			break
		}
	}
	return page, nil
}

func (p *ScholarProvider) fetchPage(ctx context.Context, q Query, start int) ([]types.Record, error) {
	target := url.Values{
		"q":     {q.Text},
		"hl":    {"en"},
		"start": {strconv.Itoa(start)},
		"num":   {strconv.Itoa(scholarPageSize)},
	}
	if q.YearMin > 0 {
		target.Set("as_ylo", strconv.Itoa(q.YearMin))
	}
	if q.YearMax > 0 {
		target.Set("as_yhi", strconv.Itoa(q.YearMax))
	}
	proxy := url.Values{
		"api_key": {p.ProxyKey},
		"url":     {ScholarBase + "?" + target.Encode()},
	}

	resp, err := p.get(ctx, p.ProxyURL+"?"+proxy.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("Scholar proxy request: %w", err)
	}
	defer resp.Body.Close()
	return ParseScholarHTML(io.LimitReader(resp.Body, maxResponseBytes))
}

// ParseScholarHTML extracts records from a Scholar results page.
func ParseScholarHTML(r io.Reader) ([]types.Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing Scholar HTML: %w", err)
	}

	var records []types.Record
	doc.Find(".gs_r .gs_ri").Each(func(_ int, s *goquery.Selection) {
		heading := s.Find("h3.gs_rt")
		heading.Find("span.gs_ctc, span.gs_ctg, span.gs_ctg2").Remove()
		title := strings.Join(strings.Fields(heading.Text()), " ")
		if title == "" {
			return
		}
		rec := types.Record{
			Title:  title,
			Body:   strings.Join(strings.Fields(s.Find(".gs_rs").Text()), " "),
			Source: "scholar",
			Extra:  map[string]any{},
		}
		if href, ok := heading.Find("a").Attr("href"); ok {
			rec.URL = href
		}

		byline := strings.Join(strings.Fields(s.Find(".gs_a").Text()), " ")
		authors, venue := SplitScholarByline(byline)
		rec.Authors = authors
		if venue != "" {
			rec.Extra["venue"] = venue
		}
		if y := yearPattern.FindString(byline); y != "" {
			rec.PublishedAt = y
		}

		s.Find(".gs_fl a").Each(func(_ int, a *goquery.Selection) {
			text := a.Text()
			if strings.HasPrefix(text, "Cited by") {
				if m := citedByPattern.FindString(text); m != "" {
					n, _ := strconv.Atoi(m)
					rec.Extra["cited_by"] = n
				}
			}
		})
		records = append(records, rec)
	})
	return records, nil
}

// SplitScholarByline splits a ".gs_a" line such as
// "J Smith, A Doe - Nature Energy, 2021 - nature.com" into author names and
// the venue. Truncation markers are dropped.
func SplitScholarByline(line string) ([]string, string) {
	parts := strings.Split(line, " - ")
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return nil, ""
	}
	var authors []string
	for _, a := range strings.Split(parts[0], ",") {
		a = strings.TrimSpace(strings.Trim(a, "…"))
		if a != "" {
			authors = append(authors, a)
		}
	}
	venue := ""
	if len(parts) > 1 {
		venue = strings.TrimSpace(yearPattern.ReplaceAllString(parts[1], ""))
		venue = strings.TrimSpace(strings.Trim(venue, ",… "))
	}
	return authors, venue
}
