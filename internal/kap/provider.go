// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package kap

import (
	"context"
	"strings"
	"time"

	"github.com/pdiddy/harvest/internal/search"
	"github.com/pdiddy/harvest/pkg/types"
)

// ProviderName is the source name KAP records carry.
const ProviderName = "kap"

var _ search.Provider = (*Provider)(nil)

// Provider exposes the disclosure list as a search source. The query text
// is matched against subject, company, summary and stock codes; "*" matches
// every disclosure in the window.
type Provider struct {
	Client       *Client
	LookbackDays int
	Filter       ListFilter
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewProvider builds a Provider from cfg.
func NewProvider(c *Client, cfg types.KAPConfig) *Provider {
	return &Provider{Client: c, LookbackDays: cfg.LookbackDays}
}

func (p *Provider) Name() string { return ProviderName }

func (p *Provider) Search(ctx context.Context, q search.Query) (search.Page, error) {
	disclosures, err := p.Client.List(ctx, p.window(q), p.Filter)
	if err != nil {
		return search.Page{}, err
	}
	tokens := queryTokens(q.Text)
	var page search.Page
	for _, d := range disclosures {
		if !matches(d, tokens) {
			continue
		}
		page.Total++
		if q.MaxResults > 0 && len(page.Records) >= q.MaxResults {
			continue
		}
		page.Records = append(page.Records, d.Record())
	}
	return page, nil
}

// window derives the date range from the query year bounds, falling back to
// the lookback window. The end never lies in the future.
func (p *Provider) window(q search.Query) Window {
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}
	if q.YearMin == 0 && q.YearMax == 0 {
		return LookbackWindow(now, p.LookbackDays)
	}
	w := LookbackWindow(now, p.LookbackDays)
	if q.YearMin > 0 {
		w.From = time.Date(q.YearMin, time.January, 1, 0, 0, 0, 0, Istanbul)
	}
	if q.YearMax > 0 {
		end := time.Date(q.YearMax, time.December, 31, 23, 59, 59, 0, Istanbul)
		if end.Before(now) {
			w.To = end
		}
	}
	if w.From.After(w.To) {
		w.From = w.To
	}
	return w
}

func queryTokens(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" || text == "*" {
		return nil
	}
	return strings.Fields(foldTR(text))
}

// matches reports whether every token occurs in the disclosure's folded
// searchable text.
func matches(d types.Disclosure, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	hay := foldTR(strings.Join([]string{
		d.Subject, d.Company, d.Summary, strings.Join(d.StockCodes, " "),
	}, " "))
	for _, t := range tokens {
		if !strings.Contains(hay, t) {
			return false
		}
	}
	return true
}
