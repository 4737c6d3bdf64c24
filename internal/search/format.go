// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pdiddy/harvest/pkg/types"
)

// FormatTable writes a result set as a human-readable table to w, followed
// by a summary line naming sources that contributed nothing.
func FormatTable(rs types.ResultSet, w io.Writer) error {
	if len(rs.Records) == 0 {
		fmt.Fprintln(w, "No results found.")
		writeFailures(rs, w)
		return nil
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)

	rows := make([][]string, 0, len(rs.Records))
	for i, r := range rs.Records {
		year := ""
		if y := PublishedYear(r.PublishedAt); y > 0 {
			year = strconv.Itoa(y)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			truncate(r.Title, 60),
			formatAuthors(r.Authors),
			year,
			r.Source,
			truncate(r.Identifier, 32),
		})
	}
	table.Header([]string{"#", "Title", "Authors", "Year", "Source", "Identifier"})
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering table: %w", err)
	}

	fmt.Fprintf(w, "\n%d results", len(rs.Records))
	if rs.TotalFoundUpstream > len(rs.Records) {
		fmt.Fprintf(w, " (%d found upstream)", rs.TotalFoundUpstream)
	}
	fmt.Fprintln(w)
	writeFailures(rs, w)
	return nil
}

func writeFailures(rs types.ResultSet, w io.Writer) {
	for _, f := range rs.Failures {
		fmt.Fprintf(w, "warning: %s contributed nothing: %s\n", f.Source, f.Reason)
	}
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

// truncate shortens s to at most n runes, ending with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
