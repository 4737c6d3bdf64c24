// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Disclosure is a KAP regulatory filing as persisted by the store.
type Disclosure struct {
	// DisclosureID is KAP's disclosure index. Unique.
	DisclosureID string `json:"disclosure_id" yaml:"disclosure_id" validate:"required"`

	Company        string    `json:"company" yaml:"company"`
	StockCodes     []string  `json:"stock_codes" yaml:"stock_codes"`
	DisclosureType string    `json:"disclosure_type" yaml:"disclosure_type"`
	Category       string    `json:"category" yaml:"category"`
	Subject        string    `json:"subject" yaml:"subject" validate:"required"`
	Summary        string    `json:"summary" yaml:"summary"`
	Content        string    `json:"content" yaml:"content"`
	URL            string    `json:"url" yaml:"url"`
	PublishedAt    time.Time `json:"published_at" yaml:"published_at"`
	Attachments    []string  `json:"attachments" yaml:"attachments"`

	// Sentiment is the most recent verdict, if the disclosure was analyzed.
	Sentiment *SentimentVerdict `json:"sentiment,omitempty" yaml:"sentiment,omitempty"`
}

// Record converts the disclosure into the generic record model so it can flow
// through enrichment, sentiment tagging and export.
func (d Disclosure) Record() Record {
	r := Record{
		Title:      d.Subject,
		Identifier: d.DisclosureID,
		Body:       d.Content,
		Source:     "kap",
		URL:        d.URL,
		Extra: map[string]any{
			"company":         d.Company,
			"stock_codes":     d.StockCodes,
			"disclosure_type": d.DisclosureType,
			"category":        d.Category,
			"summary":         d.Summary,
		},
	}
	if !d.PublishedAt.IsZero() {
		r.PublishedAt = d.PublishedAt.Format(time.RFC3339)
	}
	if d.Company != "" {
		r.Authors = []string{d.Company}
	}
	return r
}
