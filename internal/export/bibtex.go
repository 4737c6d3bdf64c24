// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/harvest/pkg/types"
)

var bibEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	"{", `\{`,
	"}", `\}`,
	"%", `\%`,
	"&", `\&`,
	"$", `\$`,
	"#", `\#`,
	"_", `\_`,
)

// EscapeBibTeX escapes characters that are special inside a BibTeX value.
func EscapeBibTeX(s string) string {
	return bibEscaper.Replace(s)
}

// BibTeXKey builds a citation key from the first author's surname, the year
// and the first title word, keeping only ASCII letters and digits.
func BibTeXKey(r types.Record) string {
	var parts []string
	if len(r.Authors) > 0 {
		name := parseAuthorName(r.Authors[0])
		surname := name.Family
		if surname == "" {
			surname = name.Literal
		}
		parts = append(parts, surname)
	}
	parts = append(parts, year(r))
	for _, w := range strings.Fields(r.Title) {
		if w = keyPart(w); len(w) > 3 {
			parts = append(parts, w)
			break
		}
	}
	key := keyPart(strings.Join(parts, ""))
	if key == "" {
		key = "record"
	}
	return key
}

func keyPart(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ToBibTeX renders one entry per record. Colliding keys get a, b, ...
// suffixes in record order.
func ToBibTeX(rs types.ResultSet, _ Options) (string, error) {
	var b strings.Builder
	seen := make(map[string]int)
	for _, r := range rs.Records {
		key := BibTeXKey(r)
		if n := seen[key]; n > 0 {
			seen[key] = n + 1
			key += suffix(n)
		} else {
			seen[key] = 1
		}

		entryType := "article"
		if r.Source == "kap" {
			entryType = "misc"
		}
		fmt.Fprintf(&b, "@%s{%s,\n", entryType, key)
		bibField(&b, "title", r.Title)
		bibField(&b, "author", strings.Join(r.Authors, " and "))
		bibField(&b, "year", year(r))
		if entryType == "article" {
			bibField(&b, "journal", venue(r))
		} else {
			bibField(&b, "howpublished", venue(r))
		}
		bibField(&b, "volume", r.ExtraString("volume"))
		bibField(&b, "number", r.ExtraString("issue"))
		bibField(&b, "pages", strings.ReplaceAll(r.ExtraString("pages"), "-", "--"))
		bibField(&b, "doi", doi(r))
		bibField(&b, "eprint", r.ExtraString("arxiv_id"))
		bibField(&b, "url", r.URL)
		bibField(&b, "keywords", strings.Join(r.Keywords, ", "))
		bibField(&b, "abstract", r.Body)
		b.WriteString("}\n\n")
	}
	return b.String(), nil
}

// suffix returns "a" for 1, "b" for 2, and so on, then "aa".
func suffix(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('a'+n%26)) + s
		n /= 26
	}
	return s
}

func bibField(b *strings.Builder, name, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(b, "  %s = {%s},\n", name, EscapeBibTeX(value))
}
