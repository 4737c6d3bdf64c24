// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"strings"
	"unicode"

	"github.com/pdiddy/harvest/pkg/types"
)

// TitleKeyLength is the number of runes of a normalized title used as a
// dedup key for records without an identifier.
const TitleKeyLength = 60

var identifierPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi:",
	"https://arxiv.org/abs/",
	"http://arxiv.org/abs/",
	"arxiv:",
}

// NormalizeIdentifier lowercases id and strips a DOI or arXiv scheme prefix.
func NormalizeIdentifier(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range identifierPrefixes {
		if strings.HasPrefix(id, p) {
			id = strings.TrimSpace(id[len(p):])
			break
		}
	}
	return id
}

// NormalizeTitle returns a lowercased, punctuation-stripped version of the
// title with whitespace collapsed, truncated to TitleKeyLength runes.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	s := strings.Join(strings.Fields(b.String()), " ")
	if runes := []rune(s); len(runes) > TitleKeyLength {
		s = strings.TrimSpace(string(runes[:TitleKeyLength]))
	}
	return s
}

// DedupKey returns the sameness key of r: its normalized identifier when it
// has one, otherwise its normalized title. A title with no letters or digits
// normalizes to nothing, so it is keyed verbatim, and a record with neither
// falls back to its URL.
func DedupKey(r types.Record) string {
	if id := NormalizeIdentifier(r.Identifier); id != "" {
		return "id:" + id
	}
	if t := NormalizeTitle(r.Title); t != "" {
		return "title:" + t
	}
	if t := strings.TrimSpace(r.Title); t != "" {
		return "raw:" + t
	}
	return "url:" + strings.TrimSpace(r.URL)
}

// Deduplicate keeps the first record for each DedupKey and discards later
// ones without merging their fields. It returns the kept records in input
// order and the number removed.
func Deduplicate(records []types.Record) ([]types.Record, int) {
	seen := make(map[string]struct{}, len(records))
	out := make([]types.Record, 0, len(records))
	for _, r := range records {
		key := DedupKey(r)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out, len(records) - len(out)
}
