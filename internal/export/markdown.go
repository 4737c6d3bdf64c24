// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/harvest/pkg/types"
)

// ToMarkdown renders a readable report: a metadata block, an optional table
// of contents and one section per record.
func ToMarkdown(rs types.ResultSet, opts Options) (string, error) {
	var b strings.Builder
	title := opts.Title
	if title == "" {
		title = "Search results"
		if rs.Query != "" {
			title += ": " + rs.Query
		}
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if rs.Query != "" {
		fmt.Fprintf(&b, "- **Query:** %s\n", rs.Query)
	}
	fmt.Fprintf(&b, "- **Records:** %d (upstream total %d)\n", len(rs.Records), rs.TotalFoundUpstream)
	if len(rs.SourcesQueried) > 0 {
		fmt.Fprintf(&b, "- **Sources:** %s\n", strings.Join(rs.SourcesQueried, ", "))
	}
	for _, f := range rs.Failures {
		fmt.Fprintf(&b, "- **Failed:** %s (%s)\n", f.Source, f.Reason)
	}
	fmt.Fprintf(&b, "- **Exported:** %s\n\n", opts.exportedAt().Format(time.RFC3339))

	if opts.TableOfContents && len(rs.Records) > 0 {
		b.WriteString("## Contents\n\n")
		for i, r := range rs.Records {
			fmt.Fprintf(&b, "%d. [%s](#record-%d)\n", i+1, escapeMarkdown(r.Title), i+1)
		}
		b.WriteString("\n")
	}

	limit := opts.AbstractLimit
	if limit == 0 {
		limit = DefaultAbstractLimit
	}
	for i, r := range rs.Records {
		fmt.Fprintf(&b, "<a id=\"record-%d\"></a>\n\n## %d. %s\n\n", i+1, i+1, escapeMarkdown(r.Title))
		field(&b, "Authors", strings.Join(r.Authors, ", "))
		field(&b, "Published", r.PublishedAt)
		field(&b, "Venue", venue(r))
		field(&b, "Identifier", r.Identifier)
		field(&b, "Source", r.Source)
		if r.URL != "" {
			field(&b, "URL", fmt.Sprintf("<%s>", r.URL))
		}
		field(&b, "Keywords", strings.Join(r.Keywords, ", "))
		if v, ok := opts.verdict(r); ok {
			field(&b, "Sentiment", fmt.Sprintf("%s (%.2f)", v.Label, v.Confidence))
			field(&b, "Risk flags", strings.Join(v.RiskFlags, ", "))
		}
		if body := strings.TrimSpace(r.Body); body != "" {
			if limit > 0 {
				body = truncateRunes(body, limit)
			}
			b.WriteString("\n")
			for _, line := range strings.Split(body, "\n") {
				fmt.Fprintf(&b, "> %s\n", line)
			}
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func field(b *strings.Builder, name, value string) {
	if value != "" {
		fmt.Fprintf(b, "**%s:** %s  \n", name, value)
	}
}

var mdEscaper = strings.NewReplacer(`\`, `\\`, "[", `\[`, "]", `\]`, "*", `\*`, "_", `\_`, "`", "\\`")

func escapeMarkdown(s string) string {
	return mdEscaper.Replace(s)
}

// truncateRunes cuts s to n runes and marks the cut with an ellipsis.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}
