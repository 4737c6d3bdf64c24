// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/harvest/internal/search"
	"github.com/pdiddy/harvest/pkg/types"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Volume         string    `yaml:"volume,omitempty"`
	Issue          string    `yaml:"issue,omitempty"`
	Page           string    `yaml:"page,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	Keyword        string    `yaml:"keyword,omitempty"`
	Source         string    `yaml:"source,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// ToCSL renders rs as a CSL-YAML list.
func ToCSL(rs types.ResultSet, _ Options) (string, error) {
	items := make([]CSLItem, len(rs.Records))
	for i, r := range rs.Records {
		items[i] = toCSLItem(r)
	}
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	if err := enc.Encode(items); err != nil {
		return "", fmt.Errorf("encoding CSL-YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding CSL-YAML: %w", err)
	}
	return b.String(), nil
}

func toCSLItem(r types.Record) CSLItem {
	item := CSLItem{
		ID:             BibTeXKey(r),
		Type:           "article-journal",
		Title:          r.Title,
		Abstract:       r.Body,
		ContainerTitle: venue(r),
		Volume:         r.ExtraString("volume"),
		Issue:          r.ExtraString("issue"),
		Page:           r.ExtraString("pages"),
		DOI:            doi(r),
		URL:            r.URL,
		Keyword:        strings.Join(r.Keywords, ", "),
		Source:         r.Source,
	}
	switch {
	case r.Source == "kap":
		item.Type = "report"
	case strings.HasPrefix(strings.ToLower(r.Identifier), "arxiv:"):
		item.Type = "article"
	}

	for _, a := range r.Authors {
		if n := parseAuthorName(a); n != (CSLName{}) {
			item.Author = append(item.Author, n)
		}
	}

	if t, ok := search.ParsePublished(r.PublishedAt); ok {
		parts := []int{t.Year()}
		// A bare year must not claim January 1st.
		if len(strings.TrimSpace(r.PublishedAt)) > 4 {
			parts = append(parts, int(t.Month()), t.Day())
		}
		item.Issued = &CSLDate{DateParts: [][]int{parts}}
	}
	return item
}

// parseAuthorName splits a full name string into CSL family/given parts.
// "Family, Given" is honoured; otherwise it splits on the last space:
// everything before is given, the last token is family. Single-token names
// use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	if family, given, ok := strings.Cut(name, ","); ok {
		return CSLName{Family: strings.TrimSpace(family), Given: strings.TrimSpace(given)}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}
