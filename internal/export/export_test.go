// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/harvest/pkg/types"
)

var exportedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleSet() types.ResultSet {
	return types.ResultSet{
		Query:              "battery storage",
		TotalFoundUpstream: 120,
		SourcesQueried:     []string{"openalex", "arxiv"},
		Records: []types.Record{
			{
				Title:       "Grid-Scale Battery Storage: A Review",
				Identifier:  "10.1000/ABC.1",
				Body:        "We review 50% of {all} storage & costs.",
				PublishedAt: "2024-05-17",
				Source:      "openalex",
				Authors:     []string{"Ada Lovelace", "Turing, Alan"},
				URL:         "https://doi.org/10.1000/abc.1",
				Keywords:    []string{"x", "y"},
				Extra:       map[string]any{"venue": "Energy Journal", "volume": "12", "issue": "3", "pages": "100-120"},
			},
			{
				Title:       "Sodium Ion Cells",
				Identifier:  "arxiv:2401.00001",
				PublishedAt: "2023",
				Source:      "arxiv",
				Authors:     []string{"Grace Hopper"},
				Extra:       map[string]any{"arxiv_id": "2401.00001"},
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"JSON": FormatJSON, "md": FormatMarkdown, "bib": FormatBibTeX, "ris": FormatRIS, "yaml": FormatCSL, "csv": FormatCSV} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("docx")
	assert.Error(t, err)
	assert.Equal(t, ".bib", FormatBibTeX.Extension())
	assert.Equal(t, ".json", FormatJSON.Extension())
}

func TestJSONRoundTrip(t *testing.T) {
	rs := sampleSet()
	verdicts := map[string]types.SentimentVerdict{
		"10.1000/ABC.1": {Label: types.SentimentPositive, Confidence: 0.6, RiskFlags: []string{}, Strategy: types.StrategyKeyword},
	}
	out, err := ToJSON(rs, Options{ExportedAt: exportedAt, Verdicts: verdicts})
	require.NoError(t, err)

	back, gotVerdicts, err := ReadJSON(strings.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, rs.Len(), back.Len())
	assert.Equal(t, rs.Query, back.Query)
	assert.Equal(t, rs.TotalFoundUpstream, back.TotalFoundUpstream)
	assert.Equal(t, rs.SourcesQueried, back.SourcesQueried)
	for i := range rs.Records {
		want, got := rs.Records[i], back.Records[i]
		assert.Equal(t, want.Title, got.Title)
		assert.Equal(t, want.Identifier, got.Identifier)
		assert.Equal(t, want.Body, got.Body)
		assert.Equal(t, want.PublishedAt, got.PublishedAt)
		assert.Equal(t, want.Source, got.Source)
		assert.Equal(t, want.Authors, got.Authors)
		assert.Equal(t, want.URL, got.URL)
		assert.Equal(t, want.ExtraString("venue"), got.ExtraString("venue"))
	}
	assert.Equal(t, verdicts, gotVerdicts)
}

func TestJSONEmptyFieldsRenderEmpty(t *testing.T) {
	out, err := ToJSON(types.ResultSet{Records: []types.Record{{Title: "T"}}}, Options{ExportedAt: exportedAt})
	require.NoError(t, err)
	assert.Contains(t, out, `"body": ""`)
	assert.Contains(t, out, `"authors": []`)
	assert.Contains(t, out, `"sources_queried": []`)
	assert.Contains(t, out, `"count": 1`)
	assert.Contains(t, out, `"exported_at": "2026-03-01T12:00:00Z"`)
	assert.NotContains(t, out, `"sentiment"`)
}

func TestCSVJoinsLists(t *testing.T) {
	rs := types.ResultSet{Records: []types.Record{{Title: "T", Keywords: []string{"x", "y"}}}}
	out, err := ToCSV(rs, Options{Columns: []string{"title", "keywords"}})
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"title", "keywords"}, rows[0])
	assert.Equal(t, "x; y", rows[1][1])
}

func TestCSVDefaultColumnsAndSentiment(t *testing.T) {
	rs := sampleSet()
	out, err := ToCSV(rs, Options{})
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, DefaultColumns, rows[0])
	assert.Equal(t, "Ada Lovelace; Turing, Alan", rows[1][1])
	assert.Equal(t, "Energy Journal", rows[1][8])

	out, err = ToCSV(rs, Options{
		Columns:  []string{"identifier", "sentiment", "sentiment_confidence"},
		Verdicts: map[string]types.SentimentVerdict{"arxiv:2401.00001": {Label: types.SentimentNegative, Confidence: 0.6}},
	})
	require.NoError(t, err)
	rows, err = csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.1000/ABC.1", "", ""}, rows[1])
	assert.Equal(t, []string{"arxiv:2401.00001", "negative", "0.60"}, rows[2])

	_, err = ToCSV(rs, Options{Columns: []string{"nope"}})
	assert.Error(t, err)
}

func TestMarkdown(t *testing.T) {
	rs := sampleSet()
	rs.Records[0].Body = strings.Repeat("word ", 40)
	out, err := ToMarkdown(rs, Options{TableOfContents: true, AbstractLimit: 20, ExportedAt: exportedAt})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Search results: battery storage\n"))
	assert.Contains(t, out, "- **Records:** 2 (upstream total 120)")
	assert.Contains(t, out, "## Contents")
	assert.Contains(t, out, "1. [Grid-Scale Battery Storage: A Review](#record-1)")
	assert.Contains(t, out, "## 2. Sodium Ion Cells")
	assert.Contains(t, out, "**Venue:** Energy Journal")
	assert.Contains(t, out, "> word word word word…")
	assert.NotContains(t, out, strings.Repeat("word ", 10))
}

func TestBibTeX(t *testing.T) {
	out, err := ToBibTeX(sampleSet(), Options{})
	require.NoError(t, err)

	assert.Contains(t, out, "@article{lovelace2024gridscale,\n")
	assert.Contains(t, out, "  author = {Ada Lovelace and Turing, Alan},\n")
	assert.Contains(t, out, `  abstract = {We review 50\% of \{all\} storage \& costs.},`)
	assert.Contains(t, out, "  pages = {100--120},\n")
	assert.Contains(t, out, "  doi = {10.1000/abc.1},\n")
	assert.Contains(t, out, "@article{hopper2023sodium,\n")
	assert.Contains(t, out, "  eprint = {2401.00001},\n")
}

func TestBibTeXKeyCollisions(t *testing.T) {
	r := types.Record{Title: "Same Title", Authors: []string{"A Smith"}, PublishedAt: "2020"}
	out, err := ToBibTeX(types.ResultSet{Records: []types.Record{r, r, r}}, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "{smith2020same,")
	assert.Contains(t, out, "{smith2020samea,")
	assert.Contains(t, out, "{smith2020sameb,")
}

func TestEscapeBibTeX(t *testing.T) {
	assert.Equal(t, `a\_b \# \$1 \textbackslash{}x`, EscapeBibTeX(`a_b # $1 \x`))
}

func TestRIS(t *testing.T) {
	out, err := ToRIS(sampleSet(), Options{})
	require.NoError(t, err)

	blocks := strings.Split(strings.TrimSpace(out), "\n\n")
	require.Len(t, blocks, 2)
	first := blocks[0]
	assert.True(t, strings.HasPrefix(first, "TY  - JOUR\n"))
	assert.Contains(t, first, "AU  - Ada Lovelace\nAU  - Turing, Alan\n")
	assert.Contains(t, first, "DA  - 2024/05/17\n")
	assert.Contains(t, first, "SP  - 100\nEP  - 120\n")
	assert.Contains(t, first, "KW  - x\nKW  - y\n")
	assert.True(t, strings.HasSuffix(first, "ER  - "))
	assert.NotContains(t, blocks[1], "DA  - ")
}

func TestCSL(t *testing.T) {
	out, err := ToCSL(sampleSet(), Options{})
	require.NoError(t, err)

	var items []CSLItem
	require.NoError(t, yaml.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "article-journal", items[0].Type)
	assert.Equal(t, []CSLName{{Given: "Ada", Family: "Lovelace"}, {Family: "Turing", Given: "Alan"}}, items[0].Author)
	assert.Equal(t, [][]int{{2024, 5, 17}}, items[0].Issued.DateParts)
	assert.Equal(t, "10.1000/abc.1", items[0].DOI)
	assert.Equal(t, "article", items[1].Type)
	assert.Equal(t, [][]int{{2023}}, items[1].Issued.DateParts)
}

func TestParseAuthorName(t *testing.T) {
	assert.Equal(t, CSLName{Literal: "Plato"}, parseAuthorName("Plato"))
	assert.Equal(t, CSLName{Given: "John von", Family: "Neumann"}, parseAuthorName("John von Neumann"))
	assert.Equal(t, CSLName{}, parseAuthorName("  "))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "results.json")
	require.NoError(t, WriteFile(path, sampleSet(), FormatJSON, Options{ExportedAt: exportedAt}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	back, _, err := ReadJSON(f)
	require.NoError(t, err)
	assert.Equal(t, 2, back.Len())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}
