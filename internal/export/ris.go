// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"strings"

	"github.com/pdiddy/harvest/internal/search"
	"github.com/pdiddy/harvest/pkg/types"
)

// ToRIS renders one RIS block per record.
func ToRIS(rs types.ResultSet, _ Options) (string, error) {
	var b strings.Builder
	for _, r := range rs.Records {
		ty := "JOUR"
		if r.Source == "kap" {
			ty = "GEN"
		}
		risTag(&b, "TY", ty)
		risTag(&b, "TI", r.Title)
		for _, a := range r.Authors {
			risTag(&b, "AU", a)
		}
		risTag(&b, "PY", year(r))
		if t, ok := search.ParsePublished(r.PublishedAt); ok && len(strings.TrimSpace(r.PublishedAt)) > 4 {
			risTag(&b, "DA", t.Format("2006/01/02"))
		}
		risTag(&b, "JO", venue(r))
		risTag(&b, "VL", r.ExtraString("volume"))
		risTag(&b, "IS", r.ExtraString("issue"))
		if pages := r.ExtraString("pages"); pages != "" {
			start, end, found := strings.Cut(pages, "-")
			risTag(&b, "SP", start)
			if found {
				risTag(&b, "EP", end)
			}
		}
		risTag(&b, "DO", doi(r))
		risTag(&b, "UR", r.URL)
		risTag(&b, "AB", r.Body)
		for _, k := range r.Keywords {
			risTag(&b, "KW", k)
		}
		b.WriteString("ER  - \n\n")
	}
	return b.String(), nil
}

// risTag writes "TAG  - value". RIS values are single-line.
func risTag(b *strings.Builder, tag, value string) {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s  - %s\n", tag, value)
}
