// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/harvest/internal/httputil"
	"github.com/pdiddy/harvest/internal/search"
	"github.com/pdiddy/harvest/pkg/types"
)

// lookupFunc is a single-work lookup returning a record or an error.
type lookupFunc func(ctx context.Context, key string) (types.Record, error)

// logMiss logs lookup failures. Misses (no match, 404) are expected and
// logged at debug; anything else is an upstream problem worth a warning.
func logMiss(log zerolog.Logger, enricher string, r types.Record, err error) {
	var se *httputil.StatusError
	if errors.Is(err, search.ErrNoMatch) || (errors.As(err, &se) && se.StatusCode == http.StatusNotFound) {
		log.Debug().Str("enricher", enricher).Str("title", r.Title).Msg("no body found")
		return
	}
	log.Warn().Str("enricher", enricher).Str("title", r.Title).Err(err).Msg("lookup failed")
}

// firstBody runs lookups in order and returns the first non-empty body.
func firstBody(ctx context.Context, log zerolog.Logger, name string, r types.Record, steps ...func() (lookupFunc, string)) (string, bool) {
	for _, step := range steps {
		lookup, key := step()
		if lookup == nil || key == "" {
			continue
		}
		found, err := lookup(ctx, key)
		if err != nil {
			logMiss(log, name, r, err)
			continue
		}
		if body := strings.TrimSpace(found.Body); body != "" {
			return body, true
		}
	}
	return "", false
}

// DOI returns the record's DOI, if its identifier or Extra carries one.
func DOI(r types.Record) string {
	if id := search.NormalizeIdentifier(r.Identifier); strings.HasPrefix(id, "10.") {
		return id
	}
	if doi := search.NormalizeIdentifier(r.ExtraString("doi")); strings.HasPrefix(doi, "10.") {
		return doi
	}
	return ""
}

// ArxivID returns the record's arXiv ID, if it has one.
func ArxivID(r types.Record) string {
	if id := r.ExtraString("arxiv_id"); id != "" {
		return id
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.Identifier)), "arxiv:") {
		return search.NormalizeIdentifier(r.Identifier)
	}
	return ""
}

// SemanticScholarEnricher looks records up by DOI, then by exact title.
type SemanticScholarEnricher struct {
	Provider *search.SemanticScholarProvider
	Log      zerolog.Logger
}

func (e *SemanticScholarEnricher) Name() string { return "semantic_scholar" }

func (e *SemanticScholarEnricher) FindBody(ctx context.Context, r types.Record) (string, bool) {
	return firstBody(ctx, e.Log, e.Name(), r,
		func() (lookupFunc, string) { return e.Provider.LookupDOI, DOI(r) },
		func() (lookupFunc, string) { return e.Provider.LookupTitle, r.Title },
	)
}

// OpenAlexEnricher looks records up by DOI and rebuilds the inverted abstract.
type OpenAlexEnricher struct {
	Provider *search.OpenAlexProvider
	Log      zerolog.Logger
}

func (e *OpenAlexEnricher) Name() string { return "openalex" }

func (e *OpenAlexEnricher) FindBody(ctx context.Context, r types.Record) (string, bool) {
	return firstBody(ctx, e.Log, e.Name(), r,
		func() (lookupFunc, string) { return e.Provider.LookupDOI, DOI(r) },
	)
}

// CrossRefEnricher looks records up by DOI; JATS markup is stripped by the
// provider.
type CrossRefEnricher struct {
	Provider *search.CrossRefProvider
	Log      zerolog.Logger
}

func (e *CrossRefEnricher) Name() string { return "crossref" }

func (e *CrossRefEnricher) FindBody(ctx context.Context, r types.Record) (string, bool) {
	return firstBody(ctx, e.Log, e.Name(), r,
		func() (lookupFunc, string) { return e.Provider.LookupDOI, DOI(r) },
	)
}

// ArxivEnricher looks records up by arXiv ID, then by exact title.
type ArxivEnricher struct {
	Provider *search.ArxivProvider
	Log      zerolog.Logger
}

func (e *ArxivEnricher) Name() string { return "arxiv" }

func (e *ArxivEnricher) FindBody(ctx context.Context, r types.Record) (string, bool) {
	return firstBody(ctx, e.Log, e.Name(), r,
		func() (lookupFunc, string) { return e.Provider.LookupID, ArxivID(r) },
		func() (lookupFunc, string) { return e.Provider.LookupTitle, r.Title },
	)
}

// EnricherNames lists the built-in academic enrichers.
var EnricherNames = []string{"semantic_scholar", "openalex", "crossref", "arxiv"}

// Build constructs enrichers from names in order, sharing the provider
// settings in cfg. Names that are not built in are matched against extra.
func Build(names []string, cfg types.SearchConfig, client *http.Client, log zerolog.Logger, extra ...Enricher) ([]Enricher, error) {
	if client == nil {
		client = httputil.NewClient(cfg.HTTPConfig)
	}
	t := search.Transport{
		Client:    client,
		UserAgent: cfg.UserAgent,
		Limiter:   httputil.NewLimiter(cfg.RequestsPerSecond, 1),
	}
	var out []Enricher
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case "":
			continue
		case "semantic_scholar":
			out = append(out, &SemanticScholarEnricher{Provider: &search.SemanticScholarProvider{Transport: t, APIKey: cfg.SemanticScholarAPIKey}, Log: log})
		case "openalex":
			out = append(out, &OpenAlexEnricher{Provider: &search.OpenAlexProvider{Transport: t, Email: cfg.OpenAlexEmail}, Log: log})
		case "crossref":
			out = append(out, &CrossRefEnricher{Provider: &search.CrossRefProvider{Transport: t, Email: cfg.OpenAlexEmail}, Log: log})
		case "arxiv":
			out = append(out, &ArxivEnricher{Provider: &search.ArxivProvider{Transport: t}, Log: log})
		default:
			found := false
			for _, e := range extra {
				if e.Name() == name {
					out = append(out, e)
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("unknown enricher %q (known: %s)", raw, strings.Join(EnricherNames, ", "))
			}
		}
	}
	return out, nil
}
