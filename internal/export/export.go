// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export renders a ResultSet in the formats reference managers and
// spreadsheets consume. Every To* function is pure; WriteFile adds an atomic
// file write on top.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/harvest/internal/search"
	"github.com/pdiddy/harvest/pkg/types"
)

// Format names an export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatBibTeX   Format = "bibtex"
	FormatRIS      Format = "ris"
	FormatCSL      Format = "csl"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatCSV, FormatMarkdown, FormatBibTeX, FormatRIS, FormatCSL}

// ParseFormat accepts a format name or a common alias ("md", "bib", "yaml").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "bibtex", "bib":
		return FormatBibTeX, nil
	case "ris":
		return FormatRIS, nil
	case "csl", "yaml", "csl-yaml":
		return FormatCSL, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Extension returns the conventional file extension, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatBibTeX:
		return ".bib"
	case FormatCSL:
		return ".yaml"
	}
	return "." + string(f)
}

// DefaultAbstractLimit truncates abstracts in Markdown output.
const DefaultAbstractLimit = 500

// Options tunes the exporters. The zero value is usable.
type Options struct {
	// Columns selects CSV columns in order; nil means DefaultColumns.
	Columns []string
	// Title heads the Markdown document.
	Title string
	// TableOfContents adds a linked index to Markdown output.
	TableOfContents bool
	// AbstractLimit caps Markdown abstracts in runes; 0 means the default,
	// negative means no limit.
	AbstractLimit int
	// ExportedAt stamps JSON and Markdown output; zero means now.
	ExportedAt time.Time
	// Verdicts carries sentiment keyed by record identifier (or title when
	// the identifier is empty).
	Verdicts map[string]types.SentimentVerdict
}

func (o Options) exportedAt() time.Time {
	if o.ExportedAt.IsZero() {
		return time.Now().UTC()
	}
	return o.ExportedAt
}

func (o Options) verdict(r types.Record) (types.SentimentVerdict, bool) {
	key := r.Identifier
	if key == "" {
		key = r.Title
	}
	v, ok := o.Verdicts[key]
	return v, ok
}

// Render dispatches to the formatter for f.
func Render(rs types.ResultSet, f Format, opts Options) (string, error) {
	switch f {
	case FormatJSON:
		return ToJSON(rs, opts)
	case FormatCSV:
		return ToCSV(rs, opts)
	case FormatMarkdown:
		return ToMarkdown(rs, opts)
	case FormatBibTeX:
		return ToBibTeX(rs, opts)
	case FormatRIS:
		return ToRIS(rs, opts)
	case FormatCSL:
		return ToCSL(rs, opts)
	}
	return "", fmt.Errorf("unknown export format %q", f)
}

// Write renders rs and writes it to w.
func Write(w io.Writer, rs types.ResultSet, f Format, opts Options) error {
	s, err := Render(rs, f, opts)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s)
	return err
}

// WriteFile renders rs and writes it to path through a temp file and
// rename, so readers never see a partial export.
func WriteFile(path string, rs types.ResultSet, f Format, opts Options) error {
	s, err := Render(rs, f, opts)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", f, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := io.WriteString(tmp, s)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing export: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// year returns the four-digit year of r, or "".
func year(r types.Record) string {
	if y := search.PublishedYear(r.PublishedAt); y > 0 {
		return fmt.Sprintf("%04d", y)
	}
	return ""
}

// doi returns the record's DOI when it has one.
func doi(r types.Record) string {
	if id := search.NormalizeIdentifier(r.Identifier); strings.HasPrefix(id, "10.") {
		return id
	}
	if d := search.NormalizeIdentifier(r.ExtraString("doi")); strings.HasPrefix(d, "10.") {
		return d
	}
	return ""
}

// venue returns the journal, conference or, for disclosures, company name.
func venue(r types.Record) string {
	if v := r.ExtraString("venue"); v != "" {
		return v
	}
	return r.ExtraString("company")
}
