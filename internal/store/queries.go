// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/pdiddy/harvest/internal/search"
	"github.com/pdiddy/harvest/pkg/types"
)

var disclosureColumns = []string{
	"disclosure_id", "company", "stock_codes", "disclosure_type", "category",
	"subject", "summary", "content", "url", "published_at", "attachments", "sentiment",
}

var sentimentColumns = []string{
	"company", "day", "analysis_type", "disclosure_id", "label",
	"confidence", "rationale", "risk_flags", "verdict", "updated_at",
}

var articleColumns = []string{
	"record_key", "identifier", "title", "authors", "published_at", "source",
	"url", "keywords", "body", "extra", "updated_at",
}

const upsertDisclosureSuffix = `ON CONFLICT (disclosure_id) DO UPDATE SET
	company = excluded.company,
	stock_codes = excluded.stock_codes,
	disclosure_type = excluded.disclosure_type,
	category = excluded.category,
	subject = excluded.subject,
	summary = excluded.summary,
	content = excluded.content,
	url = excluded.url,
	published_at = excluded.published_at,
	attachments = excluded.attachments,
	sentiment = COALESCE(excluded.sentiment, disclosures.sentiment),
	updated_at = excluded.updated_at`

const upsertSentimentSuffix = `ON CONFLICT (company, day, analysis_type) DO UPDATE SET
	disclosure_id = excluded.disclosure_id,
	label = excluded.label,
	confidence = excluded.confidence,
	rationale = excluded.rationale,
	risk_flags = excluded.risk_flags,
	verdict = excluded.verdict,
	updated_at = excluded.updated_at`

const upsertArticleSuffix = `ON CONFLICT (record_key) DO UPDATE SET
	identifier = excluded.identifier,
	title = excluded.title,
	authors = excluded.authors,
	published_at = excluded.published_at,
	source = excluded.source,
	url = excluded.url,
	keywords = excluded.keywords,
	body = COALESCE(NULLIF(excluded.body, ''), articles.body),
	extra = excluded.extra,
	updated_at = excluded.updated_at`

// builder renders every statement the stores run. The placeholder format is
// the only backend-specific part.
type builder struct {
	sb sq.StatementBuilderType
}

func newBuilder(ph sq.PlaceholderFormat) builder {
	return builder{sb: sq.StatementBuilder.PlaceholderFormat(ph)}
}

func (b builder) upsertDisclosure(d types.Disclosure, now time.Time) (string, []any, error) {
	var sentiment any
	if d.Sentiment != nil {
		js, err := encodeJSON(d.Sentiment)
		if err != nil {
			return "", nil, err
		}
		sentiment = js
	}
	codes, err := encodeJSON(nonNil(d.StockCodes))
	if err != nil {
		return "", nil, err
	}
	attachments, err := encodeJSON(nonNil(d.Attachments))
	if err != nil {
		return "", nil, err
	}
	return b.sb.Insert("disclosures").
		Columns(append(disclosureColumns, "updated_at")...).
		Values(d.DisclosureID, d.Company, codes, d.DisclosureType, d.Category,
			d.Subject, d.Summary, d.Content, d.URL, d.PublishedAt.UTC(), attachments, sentiment, now).
		Suffix(upsertDisclosureSuffix).
		ToSql()
}

func (b builder) getDisclosure(id string) (string, []any, error) {
	return b.sb.Select(disclosureColumns...).
		From("disclosures").
		Where(sq.Eq{"disclosure_id": id}).
		ToSql()
}

func (b builder) listDisclosures(opts ListOptions) (string, []any, error) {
	opts = opts.normalized()
	q := b.sb.Select(disclosureColumns...).From("disclosures")
	if opts.Company != "" {
		q = q.Where(sq.Eq{"company": opts.Company})
	}
	if !opts.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"published_at": opts.Since.UTC()})
	}
	if !opts.Until.IsZero() {
		q = q.Where(sq.Lt{"published_at": opts.Until.UTC()})
	}
	return q.OrderBy("published_at DESC", "disclosure_id").
		Limit(uint64(opts.Limit)).
		Offset(uint64(opts.Offset)).
		ToSql()
}

func (b builder) deleteDisclosure(id string) (string, []any, error) {
	return b.sb.Delete("disclosures").Where(sq.Eq{"disclosure_id": id}).ToSql()
}

func (b builder) upsertSentiment(row SentimentRow, now time.Time) (string, []any, error) {
	verdict, err := encodeJSON(row.Verdict)
	if err != nil {
		return "", nil, err
	}
	flags, err := encodeJSON(nonNil(row.Verdict.RiskFlags))
	if err != nil {
		return "", nil, err
	}
	return b.sb.Insert("sentiments").
		Columns(sentimentColumns...).
		Values(row.Company, row.day(), row.analysisType(), row.DisclosureID, string(row.Verdict.Label),
			row.Verdict.Confidence, row.Verdict.Rationale, flags, verdict, now).
		Suffix(upsertSentimentSuffix).
		ToSql()
}

func (b builder) attachSentiment(id string, v types.SentimentVerdict, now time.Time) (string, []any, error) {
	verdict, err := encodeJSON(v)
	if err != nil {
		return "", nil, err
	}
	return b.sb.Update("disclosures").
		Set("sentiment", verdict).
		Set("updated_at", now).
		Where(sq.Eq{"disclosure_id": id}).
		ToSql()
}

func (b builder) upsertArticle(r types.Record, now time.Time) (string, []any, error) {
	authors, err := encodeJSON(nonNil(r.Authors))
	if err != nil {
		return "", nil, err
	}
	keywords, err := encodeJSON(nonNil(r.Keywords))
	if err != nil {
		return "", nil, err
	}
	extra := r.Extra
	if extra == nil {
		extra = map[string]any{}
	}
	extraJS, err := encodeJSON(extra)
	if err != nil {
		return "", nil, err
	}
	return b.sb.Insert("articles").
		Columns(articleColumns...).
		Values(search.DedupKey(r), r.Identifier, r.Title, authors, r.PublishedAt, r.Source,
			r.URL, keywords, r.Body, extraJS, now).
		Suffix(upsertArticleSuffix).
		ToSql()
}

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDisclosure(row rowScanner) (types.Disclosure, error) {
	var (
		d                  types.Disclosure
		codes, attachments string
		sentiment          sql.NullString
	)
	err := row.Scan(&d.DisclosureID, &d.Company, &codes, &d.DisclosureType, &d.Category,
		&d.Subject, &d.Summary, &d.Content, &d.URL, &d.PublishedAt, &attachments, &sentiment)
	if err != nil {
		return types.Disclosure{}, err
	}
	if err := decodeJSON(codes, &d.StockCodes); err != nil {
		return types.Disclosure{}, fmt.Errorf("decoding stock codes of %s: %w", d.DisclosureID, err)
	}
	if err := decodeJSON(attachments, &d.Attachments); err != nil {
		return types.Disclosure{}, fmt.Errorf("decoding attachments of %s: %w", d.DisclosureID, err)
	}
	if sentiment.Valid && sentiment.String != "" {
		var v types.SentimentVerdict
		if err := decodeJSON(sentiment.String, &v); err != nil {
			return types.Disclosure{}, fmt.Errorf("decoding sentiment of %s: %w", d.DisclosureID, err)
		}
		d.Sentiment = &v
	}
	d.PublishedAt = d.PublishedAt.UTC()
	return d, nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding column: %w", err)
	}
	return string(b), nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
