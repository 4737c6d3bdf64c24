// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sentiment

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/harvest/pkg/types"
)

const systemPrompt = "You are a financial disclosure analyst. Reply with a single JSON object and nothing else."

var promptTmpl = template.Must(template.New("sentiment").Parse(`Analyze the sentiment of the following text for an equity investor. The text may be in Turkish or English.

Return a JSON object with these keys:
- overall_sentiment: one of "positive", "neutral", "negative"
- confidence: a number between 0.0 and 1.0
- impact_horizon: "short_term", "medium_term" or "long_term"
- key_drivers: list of short phrases that drive the sentiment
- risk_flags: list of lowercase, underscore-separated risk labels (e.g. "litigation", "debt_default"); empty if none
- tone_descriptors: list of adjectives describing the tone
- target_audience: who the text is written for
- analysis_text: two or three sentences explaining the verdict

Text:
{{.Text}}
`))

func renderPrompt(text string) (string, error) {
	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, struct{ Text string }{Text: text}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var labelSynonyms = map[string]types.SentimentLabel{
	"positive": types.SentimentPositive,
	"bullish":  types.SentimentPositive,
	"pozitif":  types.SentimentPositive,
	"olumlu":   types.SentimentPositive,
	"negative": types.SentimentNegative,
	"bearish":  types.SentimentNegative,
	"negatif":  types.SentimentNegative,
	"olumsuz":  types.SentimentNegative,
	"neutral":  types.SentimentNeutral,
	"mixed":    types.SentimentNeutral,
	"nötr":     types.SentimentNeutral,
	"notr":     types.SentimentNeutral,
	"tarafsız": types.SentimentNeutral,
	"karışık":  types.SentimentNeutral,
}

// ParseLabel maps an English or Turkish sentiment word to a label.
func ParseLabel(s string) (types.SentimentLabel, bool) {
	s = strings.TrimSpace(s)
	if l, ok := labelSynonyms[fold(s)]; ok {
		return l, true
	}
	l, ok := labelSynonyms[strings.ToLower(s)]
	return l, ok
}

var knownKeys = []string{
	"overall_sentiment", "confidence", "impact_horizon", "key_drivers",
	"risk_flags", "tone_descriptors", "target_audience", "analysis_text",
}

// ParseReply decodes the first JSON object found in an LLM reply. Extra keys
// are ignored and missing ones take defaults: neutral label and 0.5
// confidence. ok is false when no object with at least one known key can be
// decoded, or when overall_sentiment is present but unrecognised.
func ParseReply(reply string) (types.SentimentVerdict, bool) {
	obj, ok := firstObject(reply)
	if !ok {
		return types.SentimentVerdict{}, false
	}
	known := false
	for _, k := range knownKeys {
		if _, present := obj[k]; present {
			known = true
			break
		}
	}
	if !known {
		return types.SentimentVerdict{}, false
	}

	v := types.SentimentVerdict{
		Label:      types.SentimentNeutral,
		Confidence: ConfidenceNeutral,
		Strategy:   types.StrategyDelegated,
	}
	if raw, present := obj["overall_sentiment"]; present {
		s, _ := raw.(string)
		label, ok := ParseLabel(s)
		if !ok {
			return types.SentimentVerdict{}, false
		}
		v.Label = label
	}
	if c, ok := number(obj["confidence"]); ok {
		v.Confidence = clampConfidence(c)
	}
	v.ImpactHorizon = str(obj["impact_horizon"])
	v.TargetAudience = str(obj["target_audience"])
	v.Rationale = str(obj["analysis_text"])
	v.KeyDrivers = list(obj["key_drivers"])
	v.ToneDescriptors = list(obj["tone_descriptors"])
	v.RiskFlags = types.NormalizeFlags(list(obj["risk_flags"]))
	return v, true
}

// firstObject decodes the first '{'-started JSON object in s, tolerating
// surrounding prose and code fences.
func firstObject(s string) (map[string]any, bool) {
	for i := strings.IndexByte(s, '{'); i >= 0; {
		var obj map[string]any
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		if err := dec.Decode(&obj); err == nil {
			return obj, true
		}
		next := strings.IndexByte(s[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, false
}

// clampConfidence scales percentages to [0,1] and clamps the rest.
func clampConfidence(c float64) float64 {
	if c > 1 && c <= 100 {
		c /= 100
	}
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
		return f, err == nil
	}
	return 0, false
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		return strings.Join(list(t), ", ")
	}
	return ""
}

// list accepts a JSON array or a comma-separated string.
func list(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
