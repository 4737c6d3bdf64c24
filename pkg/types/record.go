// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the harvest pipeline:
// bibliographic and disclosure records, result sets, sentiment verdicts,
// and per-stage configuration.
package types

import "slices"

// Record is a single bibliographic article or financial disclosure as
// produced by a provider. Records are values: stages that need a changed
// record build a new one (see WithBody) instead of mutating shared state.
type Record struct {
	// Title is the article title or disclosure subject. Required.
	Title string `json:"title" yaml:"title"`

	// Identifier is the DOI, arXiv ID, or disclosure index. Used as the
	// dedup key when present.
	Identifier string `json:"identifier" yaml:"identifier"`

	// Body is the abstract or disclosure text. May be filled by enrichment.
	Body string `json:"body" yaml:"body"`

	// PublishedAt is a year or date in whatever form the source returned.
	PublishedAt string `json:"published_at" yaml:"published_at"`

	// Source names the provider that produced the record (e.g. "openalex").
	Source string `json:"source" yaml:"source"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// URL is a landing page or disclosure page link.
	URL string `json:"url" yaml:"url"`

	// Keywords lists subject keywords reported by the source.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// Extra keeps provider-specific fields (venue, volume, company, ...)
	// so exporters can carry them.
	Extra map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Valid reports whether the record carries the one required field.
func (r Record) Valid() bool {
	return r.Title != ""
}

// WithBody returns a copy of r with Body replaced.
func (r Record) WithBody(body string) Record {
	c := r.clone()
	c.Body = body
	return c
}

// ExtraString returns Extra[key] rendered as a string, or "" when absent.
func (r Record) ExtraString(key string) string {
	v, ok := r.Extra[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return joinList(t)
	default:
		return toString(t)
	}
}

func (r Record) clone() Record {
	c := r
	c.Authors = slices.Clone(r.Authors)
	c.Keywords = slices.Clone(r.Keywords)
	if r.Extra != nil {
		c.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// SourceFailure records why a source contributed nothing to a ResultSet.
type SourceFailure struct {
	Source string `json:"source" yaml:"source"`
	Reason string `json:"reason" yaml:"reason"`
}

// ResultSet is the ordered output of one search or scrape call plus the
// metadata exporters need. Helpers that change the record list return a new
// ResultSet and never alias the receiver's slices.
type ResultSet struct {
	Records            []Record        `json:"records" yaml:"records"`
	Query              string          `json:"query" yaml:"query"`
	TotalFoundUpstream int             `json:"total_found_upstream" yaml:"total_found_upstream"`
	SourcesQueried     []string        `json:"sources_queried" yaml:"sources_queried"`
	Failures           []SourceFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Len returns the number of records.
func (rs ResultSet) Len() int { return len(rs.Records) }

// WithRecords returns a copy of rs holding records instead of rs.Records.
func (rs ResultSet) WithRecords(records []Record) ResultSet {
	out := rs.copyMeta()
	out.Records = slices.Clone(records)
	return out
}

// Filter returns a new ResultSet containing the records for which keep
// returns true.
func (rs ResultSet) Filter(keep func(Record) bool) ResultSet {
	out := rs.copyMeta()
	for _, r := range rs.Records {
		if keep(r) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// FailedSources returns the names of sources recorded in Failures.
func (rs ResultSet) FailedSources() []string {
	names := make([]string, 0, len(rs.Failures))
	for _, f := range rs.Failures {
		names = append(names, f.Source)
	}
	return names
}

func (rs ResultSet) copyMeta() ResultSet {
	return ResultSet{
		Query:              rs.Query,
		TotalFoundUpstream: rs.TotalFoundUpstream,
		SourcesQueried:     slices.Clone(rs.SourcesQueried),
		Failures:           slices.Clone(rs.Failures),
	}
}
