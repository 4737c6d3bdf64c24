// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"slices"
	"strings"
)

// SentimentLabel is the overall polarity of a text.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// SentimentStrategy selects how a verdict is produced.
type SentimentStrategy string

const (
	StrategyKeyword   SentimentStrategy = "keyword"
	StrategyDelegated SentimentStrategy = "delegated"
)

// SentimentVerdict classifies a body of text. Verdicts are associated with
// records by identifier and never embedded in the Record itself.
type SentimentVerdict struct {
	Label      SentimentLabel `json:"label" yaml:"label"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
	Rationale  string         `json:"rationale" yaml:"rationale"`
	RiskFlags  []string       `json:"risk_flags" yaml:"risk_flags"`

	ImpactHorizon   string   `json:"impact_horizon,omitempty" yaml:"impact_horizon,omitempty"`
	KeyDrivers      []string `json:"key_drivers,omitempty" yaml:"key_drivers,omitempty"`
	ToneDescriptors []string `json:"tone_descriptors,omitempty" yaml:"tone_descriptors,omitempty"`
	TargetAudience  string   `json:"target_audience,omitempty" yaml:"target_audience,omitempty"`

	// Strategy records which strategy produced the verdict.
	Strategy SentimentStrategy `json:"strategy" yaml:"strategy"`
}

// NormalizeFlags returns flags lowercased, trimmed, deduplicated and sorted.
// RiskFlags have set semantics; this gives them a stable rendering.
func NormalizeFlags(flags []string) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			out = append(out, f)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
