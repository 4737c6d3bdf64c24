// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/pdiddy/harvest/internal/httputil"
	"github.com/pdiddy/harvest/pkg/types"
)

// ProviderNames lists the built-in academic providers.
var ProviderNames = []string{"scopus", "openalex", "semantic_scholar", "arxiv", "crossref", "scholar", "wos"}

// Build constructs providers from names in priority order. Names that are
// not built in are matched against the Name of each extra provider, which
// is how callers plug in sources living in other packages. Duplicate names
// are ignored after the first.
func Build(names []string, cfg types.SearchConfig, client *http.Client, extra ...Provider) ([]Provider, error) {
	if client == nil {
		client = httputil.NewClient(cfg.HTTPConfig)
	}
	var out []Provider
	var seen []string
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || slices.Contains(seen, name) {
			continue
		}
		seen = append(seen, name)

		// Each provider paces its own pages.
		t := Transport{
			Client:    client,
			UserAgent: cfg.UserAgent,
			Limiter:   httputil.NewLimiter(cfg.RequestsPerSecond, 1),
		}
		p, err := builtin(name, t, cfg)
		if err != nil {
			return nil, err
		}
		if p == nil {
			idx := slices.IndexFunc(extra, func(e Provider) bool { return e.Name() == name })
			if idx < 0 {
				return nil, fmt.Errorf("unknown provider %q (known: %s)", raw, strings.Join(ProviderNames, ", "))
			}
			p = extra[idx]
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, ErrNoProviders
	}
	return out, nil
}

func builtin(name string, t Transport, cfg types.SearchConfig) (Provider, error) {
	switch name {
	case "scopus":
		return &ScopusProvider{Transport: t, APIKey: cfg.ScopusAPIKey}, nil
	case "openalex":
		return &OpenAlexProvider{Transport: t, Email: cfg.OpenAlexEmail}, nil
	case "semantic_scholar", "semanticscholar", "s2":
		return &SemanticScholarProvider{Transport: t, APIKey: cfg.SemanticScholarAPIKey}, nil
	case "arxiv":
		return &ArxivProvider{Transport: t}, nil
	case "crossref":
		return &CrossRefProvider{Transport: t, Email: cfg.OpenAlexEmail}, nil
	case "scholar", "google_scholar":
		return &ScholarProvider{Transport: t, ProxyURL: cfg.ScholarProxyURL, ProxyKey: cfg.ScholarProxyKey}, nil
	case "wos", "web_of_science":
		return &WOSProvider{Transport: t, APIKey: cfg.WOSAPIKey}, nil
	}
	return nil, nil
}
