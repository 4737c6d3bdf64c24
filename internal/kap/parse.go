// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package kap

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Istanbul is KAP's publication time zone. Turkey has stayed on UTC+3
// all year since 2016, so a fixed zone avoids depending on tzdata.
var Istanbul = time.FixedZone("TRT", 3*60*60)

// CompanyFields is what a KAP title line says about the filer.
type CompanyFields struct {
	Name       string
	StockCodes []string
}

var (
	titleWithCodes = regexp.MustCompile(`^(.*?)\s*\(([^()]*)\)\s*$`)
	stockCode      = regexp.MustCompile(`^[A-ZÇĞİÖŞÜ0-9]{2,8}$`)
)

// ParseCompanyName splits a KAP title such as
// "ASELSAN ELEKTRONİK SANAYİ VE TİCARET A.Ş. (ASELS)" into the company
// name and its stock codes. Codes may be comma separated. A title without
// a code list yields the whole title as the name.
func ParseCompanyName(s string) (CompanyFields, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return CompanyFields{}, false
	}
	m := titleWithCodes.FindStringSubmatch(s)
	if m == nil {
		return CompanyFields{Name: s}, true
	}
	codes := strings.FieldsFunc(m[2], func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	for _, c := range codes {
		if !stockCode.MatchString(c) {
			// The parenthesis is part of the name, e.g. "(eski adıyla ABC)".
			return CompanyFields{Name: s}, true
		}
	}
	if len(codes) == 0 {
		return CompanyFields{Name: s}, true
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return CompanyFields{}, false
	}
	return CompanyFields{Name: name, StockCodes: codes}, true
}

// DisclosureType is KAP's disclosure class.
type DisclosureType string

const (
	TypeSpecialEvent    DisclosureType = "ODA"
	TypeFinancialReport DisclosureType = "FR"
	TypeOther           DisclosureType = "DG"
	TypeAnnouncement    DisclosureType = "DUY"
)

// Label returns the Turkish display name of t.
func (t DisclosureType) Label() string {
	switch t {
	case TypeSpecialEvent:
		return "Özel Durum Açıklaması"
	case TypeFinancialReport:
		return "Finansal Rapor"
	case TypeAnnouncement:
		return "Duyuru"
	case TypeOther:
		return "Diğer"
	}
	return string(t)
}

var typeCodes = map[string]DisclosureType{
	"oda": TypeSpecialEvent,
	"öda": TypeSpecialEvent,
	"fr":  TypeFinancialReport,
	"dg":  TypeOther,
	"duy": TypeAnnouncement,
}

// Phrases are checked in order; the first match wins.
var typePhrases = []struct {
	phrase string
	typ    DisclosureType
}{
	{"özel durum", TypeSpecialEvent},
	{"finansal rapor", TypeFinancialReport},
	{"faaliyet raporu", TypeFinancialReport},
	{"financial report", TypeFinancialReport},
	{"material event", TypeSpecialEvent},
	{"duyuru", TypeAnnouncement},
	{"announcement", TypeAnnouncement},
	{"diğer", TypeOther},
}

func foldTR(s string) string {
	return cases.Lower(language.Turkish).String(s)
}

// ParseDisclosureType recognises a disclosure class from a code ("ÖDA",
// "FR", "DG", "DUY") or from free text such as
// "Özel Durum Açıklaması (Genel)".
func ParseDisclosureType(s string) (DisclosureType, bool) {
	folded := foldTR(strings.TrimSpace(s))
	if folded == "" {
		return "", false
	}
	for _, word := range strings.FieldsFunc(folded, func(r rune) bool {
		return r == ' ' || r == '(' || r == ')' || r == '-' || r == '/' || r == ','
	}) {
		if t, ok := typeCodes[word]; ok {
			return t, true
		}
	}
	for _, p := range typePhrases {
		if strings.Contains(folded, p.phrase) {
			return p.typ, true
		}
	}
	return "", false
}

var kapDateLayouts = []string{
	"02.01.06 15:04",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseKAPDate parses the date formats KAP uses ("17.05.24 18:31",
// "17.05.2024 18:31:05", ISO forms). Times without an offset are taken as
// Istanbul time; RFC 3339 values keep their own offset.
func ParseKAPDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	for _, layout := range kapDateLayouts {
		if t, err := time.ParseInLocation(layout, s, Istanbul); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
