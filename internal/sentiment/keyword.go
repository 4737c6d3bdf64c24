// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sentiment

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pdiddy/harvest/pkg/types"
)

// Keyword strategy confidences. They are fixed heuristics, not learned.
const (
	ConfidenceDecided  = 0.6
	ConfidenceNeutral  = 0.5
	ConfidenceNoSignal = 0.3
	dominanceRatio     = 1.5
)

// terms holds lowercase Turkish and English phrases. Turkish phrases are
// matched as substrings of Turkish-folded text so inflected forms count.
// English ones are matched as words of plain lowercase text, so an English
// "INCOME" is not folded to "ıncome" and "loss" does not hit "glossary".
type terms struct {
	tr []string
	en []string
}

var positiveTerms = terms{
	tr: []string{
		"artış", "büyüme", "yükseliş", "rekor", "temettü", "karlılık",
		"olumlu", "başarı", "anlaşma imza", "sözleşme imza", "ihale kazan",
		"ihracat", "iyileşme", "güçlü", "teşvik", "yatırım", "kapasite artır",
	},
	en: []string{
		"growth", "profit", "increase", "record high", "dividend", "agreement",
		"improvement", "strong", "expansion", "upgrade",
	},
}

var negativeTerms = terms{
	tr: []string{
		"zarar", "düşüş", "kayıp", "azalış", "olumsuz", "dava", "ceza", "iflas",
		"konkordato", "temerrüt", "soruşturma", "iptal", "gerileme", "haciz",
		"değer düşüklüğü",
	},
	en: []string{
		"loss", "decline", "decrease", "lawsuit", "penalty", "bankruptcy",
		"default", "impairment", "downgrade", "investigation",
	},
}

// riskTerms maps a risk flag to the phrases that raise it.
var riskTerms = map[string]terms{
	"litigation":         {tr: []string{"dava", "tahkim"}, en: []string{"lawsuit", "litigation"}},
	"regulatory_penalty": {tr: []string{"idari para cezası", "ceza"}, en: []string{"penalty", "fine imposed"}},
	"insolvency":         {tr: []string{"iflas", "konkordato"}, en: []string{"bankruptcy", "insolvency"}},
	"debt_default":       {tr: []string{"temerrüt"}, en: []string{"default"}},
	"investigation":      {tr: []string{"soruşturma", "inceleme başlat"}, en: []string{"investigation"}},
	"asset_seizure":      {tr: []string{"haciz"}, en: []string{"seizure"}},
	"capital_reduction":  {tr: []string{"sermaye azaltım"}, en: []string{"capital reduction"}},
	"impairment":         {tr: []string{"değer düşüklüğü"}, en: []string{"impairment"}},
	"trading_halt":       {tr: []string{"işlem sırası kapat"}, en: []string{"trading halt"}},
}

// folded is text lowered two ways.
type folded struct {
	tr string
	en string
}

// circumflex drops the Turkish circumflex, which is optional in practice
// ("kâr" and "kar").
var circumflex = strings.NewReplacer("â", "a", "î", "i", "û", "u")

// fold lowercases with Turkish rules ("İ" to "i", "I" to "ı") and drops
// circumflexes. A Caser is stateful, so each call builds its own.
func fold(s string) string {
	return circumflex.Replace(cases.Lower(language.Turkish).String(s))
}

func foldBoth(s string) folded {
	return folded{tr: fold(s), en: strings.ToLower(s)}
}

func (t terms) count(f folded) int {
	n := 0
	for _, term := range t.tr {
		n += strings.Count(f.tr, term)
	}
	for _, term := range t.en {
		n += countWord(f.en, term)
	}
	return n
}

// englishSuffixes are the inflections a whole-word English term may carry.
var englishSuffixes = map[string]bool{"": true, "s": true, "es": true, "d": true, "ed": true, "ing": true, "ly": true}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// countWord counts non-overlapping occurrences of term in s that start a
// word and end it, allowing an englishSuffixes inflection.
func countWord(s, term string) int {
	n := 0
	for i := 0; i < len(s); {
		j := strings.Index(s[i:], term)
		if j < 0 {
			break
		}
		start, end := i+j, i+j+len(term)
		i = end
		if r, _ := utf8.DecodeLastRuneInString(s[:start]); start > 0 && isWordRune(r) {
			continue
		}
		tail := s[end:]
		k := strings.IndexFunc(tail, func(r rune) bool { return !isWordRune(r) })
		if k < 0 {
			k = len(tail)
		}
		if englishSuffixes[tail[:k]] {
			n++
		}
	}
	return n
}

// Keyword classifies text by counting positive and negative financial terms.
// The label is positive when positives exceed 1.5x negatives, negative when
// the reverse holds, and neutral otherwise. Identical input always yields an
// identical verdict.
func Keyword(text string) types.SentimentVerdict {
	f := foldBoth(text)
	pos := positiveTerms.count(f)
	neg := negativeTerms.count(f)

	v := types.SentimentVerdict{
		Label:      types.SentimentNeutral,
		Confidence: ConfidenceNeutral,
		Strategy:   types.StrategyKeyword,
		Rationale:  fmt.Sprintf("keyword counts: positive=%d negative=%d", pos, neg),
	}
	switch {
	case pos == 0 && neg == 0:
		v.Confidence = ConfidenceNoSignal
	case float64(pos) > dominanceRatio*float64(neg):
		v.Label = types.SentimentPositive
		v.Confidence = ConfidenceDecided
	case float64(neg) > dominanceRatio*float64(pos):
		v.Label = types.SentimentNegative
		v.Confidence = ConfidenceDecided
	}

	var flags []string
	for flag, t := range riskTerms {
		if t.count(f) > 0 {
			flags = append(flags, flag)
		}
	}
	v.RiskFlags = types.NormalizeFlags(flags)
	return v
}
