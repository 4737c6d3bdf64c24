// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/harvest/pkg/types"
)

// QueryFile is the on-disk representation of a search and its results. A
// saved search can be re-exported later without querying any API.
type QueryFile struct {
	Query     QueryParams      `yaml:"query"`
	Mode      types.SearchMode `yaml:"mode"`
	Providers []string         `yaml:"providers"`
	Enriched  bool             `yaml:"enriched"`
	Results   types.ResultSet  `yaml:"results"`
	SavedAt   time.Time        `yaml:"saved_at"`
}

// QueryParams stores the query parameters in a serializable form.
type QueryParams struct {
	Text       string `yaml:"text"`
	MaxResults int    `yaml:"max_results"`
	YearMin    int    `yaml:"year_min,omitempty"`
	YearMax    int    `yaml:"year_max,omitempty"`
}

// NewQueryFile captures q and its results.
func NewQueryFile(q Query, mode types.SearchMode, providers []Provider, enriched bool, rs types.ResultSet) QueryFile {
	qf := QueryFile{
		Query: QueryParams{
			Text:       q.Text,
			MaxResults: q.MaxResults,
			YearMin:    q.YearMin,
			YearMax:    q.YearMax,
		},
		Mode:     mode,
		Enriched: enriched,
		Results:  rs,
		SavedAt:  time.Now().UTC(),
	}
	for _, p := range providers {
		qf.Providers = append(qf.Providers, p.Name())
	}
	return qf
}

// WriteQueryFile saves a query file as YAML.
func WriteQueryFile(path string, qf QueryFile) error {
	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// ToQuery converts stored QueryParams back into a Query.
func (p QueryParams) ToQuery() Query {
	return Query{
		Text:       p.Text,
		MaxResults: p.MaxResults,
		YearMin:    p.YearMin,
		YearMax:    p.YearMax,
	}
}
