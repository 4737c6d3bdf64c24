// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package kap

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/harvest/internal/convert"
	"github.com/pdiddy/harvest/pkg/types"
)

// DetailEnricherName is the name DetailEnricher registers under.
const DetailEnricherName = "kap_detail"

// DetailEnricher fills a disclosure's text from its page. When the page has
// no inline text and attachments are enabled, the PDF attachments are
// downloaded and converted in order until one yields text.
type DetailEnricher struct {
	Client *Client

	// Converter extracts attachment text; nil disables attachments.
	Converter        convert.Converter
	FetchAttachments bool
	AttachmentDir    string

	Log zerolog.Logger
}

// NewDetailEnricher builds a DetailEnricher from cfg. conv may be nil.
func NewDetailEnricher(c *Client, cfg types.KAPConfig, conv convert.Converter, log zerolog.Logger) *DetailEnricher {
	return &DetailEnricher{
		Client:           c,
		Converter:        conv,
		FetchAttachments: cfg.FetchAttachments,
		AttachmentDir:    cfg.AttachmentDir,
		Log:              log,
	}
}

func (e *DetailEnricher) Name() string { return DetailEnricherName }

// FindBody looks up KAP records only; other sources are left to the
// academic enrichers.
func (e *DetailEnricher) FindBody(ctx context.Context, r types.Record) (string, bool) {
	if r.Source != ProviderName || r.Identifier == "" {
		return "", false
	}
	d, ok := e.Fill(ctx, types.Disclosure{DisclosureID: r.Identifier})
	if !ok {
		return "", false
	}
	return d.Content, true
}

// Fill returns a copy of d with Content and Attachments taken from the
// disclosure page. ok is false when no text could be found.
func (e *DetailEnricher) Fill(ctx context.Context, d types.Disclosure) (types.Disclosure, bool) {
	log := e.Log.With().Str("disclosure", d.DisclosureID).Logger()
	detail, err := e.Client.Detail(ctx, d.DisclosureID)
	if err != nil {
		log.Warn().Err(err).Msg("disclosure page unavailable")
		return d, false
	}
	if len(detail.Attachments) > 0 {
		d.Attachments = detail.Attachments
	}
	if strings.TrimSpace(detail.Body) != "" {
		d.Content = detail.Body
		return d, true
	}
	if !e.FetchAttachments || e.Converter == nil {
		log.Debug().Msg("no inline text")
		return d, false
	}
	for i, link := range detail.Attachments {
		text, err := e.attachmentText(ctx, d.DisclosureID, i, link)
		if err != nil {
			log.Warn().Err(err).Str("attachment", link).Msg("attachment extraction failed")
			continue
		}
		if text != "" {
			d.Content = text
			return d, true
		}
	}
	return d, false
}

func (e *DetailEnricher) attachmentText(ctx context.Context, id string, i int, link string) (string, error) {
	dir := e.AttachmentDir
	if dir == "" {
		dir = "attachments"
	}
	pdfPath := filepath.Join(dir, id, fmt.Sprintf("%02d.pdf", i+1))
	if err := e.Client.Download(ctx, link, pdfPath); err != nil {
		return "", err
	}
	text, cached, err := convert.ConvertFile(ctx, e.Converter, pdfPath)
	if err != nil {
		return "", err
	}
	e.Log.Debug().Str("pdf", pdfPath).Bool("cached", cached).Msg("attachment converted")
	return strings.TrimSpace(text), nil
}
