// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package kap reads regulatory disclosures from the Public Disclosure
// Platform (KAP, kap.org.tr): the JSON disclosure list, the HTML detail
// page and its PDF attachments.
package kap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/pdiddy/harvest/internal/httputil"
	"github.com/pdiddy/harvest/pkg/types"
)

// DefaultBaseURL is the KAP site root.
const DefaultBaseURL = "https://www.kap.org.tr"

const (
	listPath   = "/tr/api/memberDisclosureQuery"
	detailPath = "/tr/Bildirim/"

	maxListBytes   = 20 << 20
	maxDetailBytes = 10 << 20
)

// Client talks to one KAP deployment. BaseURL is configurable so tests can
// point it at an httptest server.
type Client struct {
	HTTP      *http.Client
	BaseURL   string
	UserAgent string
	Limiter   *httputil.Limiter
}

// NewClient builds a Client from cfg. A nil client gets one with the
// configured timeout.
func NewClient(cfg types.KAPConfig, client *http.Client) *Client {
	if client == nil {
		client = httputil.NewClient(cfg.HTTPConfig)
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		HTTP:      client,
		BaseURL:   strings.TrimRight(base, "/"),
		UserAgent: cfg.UserAgent,
		Limiter:   httputil.NewLimiter(cfg.RequestsPerSecond, 1),
	}
}

// Window is an inclusive publication date range.
type Window struct {
	From time.Time
	To   time.Time
}

// LookbackWindow returns the window covering the last days days up to now.
func LookbackWindow(now time.Time, days int) Window {
	if days <= 0 {
		days = 1
	}
	return Window{From: now.AddDate(0, 0, -days), To: now}
}

// Contains reports whether t falls inside w, comparing calendar days in
// Istanbul time.
func (w Window) Contains(t time.Time) bool {
	day := func(x time.Time) string { return x.In(Istanbul).Format("2006-01-02") }
	d := day(t)
	return d >= day(w.From) && d <= day(w.To)
}

// ListFilter narrows a disclosure query.
type ListFilter struct {
	// DisclosureClass is a class code such as "ODA" or "FR"; empty means all.
	DisclosureClass DisclosureType
	// MemberType is IGS (listed companies) by default.
	MemberType string
}

type listRequest struct {
	FromDate         string   `json:"fromDate"`
	ToDate           string   `json:"toDate"`
	MemberType       string   `json:"memberType"`
	DisclosureClass  string   `json:"disclosureClass"`
	SubjectList      []string `json:"subjectList"`
	MkkMemberOidList []string `json:"mkkMemberOidList"`
	FromSrc          string   `json:"fromSrc"`
}

type listItem struct {
	DisclosureIndex    json.Number `json:"disclosureIndex"`
	PublishDate        string      `json:"publishDate"`
	KapTitle           string      `json:"kapTitle"`
	StockCodes         string      `json:"stockCodes"`
	Subject            string      `json:"subject"`
	Summary            string      `json:"summary"`
	DisclosureClass    string      `json:"disclosureClass"`
	DisclosureCategory string      `json:"disclosureCategory"`
	AttachmentCount    int         `json:"attachmentCount"`
}

// List queries disclosures published inside w. Entries without an index or
// subject are skipped.
func (c *Client) List(ctx context.Context, w Window, f ListFilter) ([]types.Disclosure, error) {
	memberType := f.MemberType
	if memberType == "" {
		memberType = "IGS"
	}
	body, err := json.Marshal(listRequest{
		FromDate:         w.From.In(Istanbul).Format("2006-01-02"),
		ToDate:           w.To.In(Istanbul).Format("2006-01-02"),
		MemberType:       memberType,
		DisclosureClass:  string(f.DisclosureClass),
		SubjectList:      []string{},
		MkkMemberOidList: []string{},
		FromSrc:          "N",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling disclosure query: %w", err)
	}
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+listPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	httputil.SetUserAgent(req, c.UserAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying KAP disclosures: %w", err)
	}
	defer resp.Body.Close()
	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("querying KAP disclosures: %w", err)
	}

	var items []listItem
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxListBytes)).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding KAP disclosure list: %w", err)
	}
	out := make([]types.Disclosure, 0, len(items))
	for _, it := range items {
		if d, ok := c.disclosure(it); ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (c *Client) disclosure(it listItem) (types.Disclosure, bool) {
	id := strings.TrimSpace(it.DisclosureIndex.String())
	subject := strings.TrimSpace(it.Subject)
	if id == "" || subject == "" {
		return types.Disclosure{}, false
	}
	d := types.Disclosure{
		DisclosureID: id,
		Subject:      subject,
		Summary:      strings.TrimSpace(it.Summary),
		Category:     strings.TrimSpace(it.DisclosureCategory),
		URL:          c.DetailURL(id),
	}
	if cf, ok := ParseCompanyName(it.KapTitle); ok {
		d.Company = cf.Name
		d.StockCodes = cf.StockCodes
	}
	if codes := splitCodes(it.StockCodes); len(codes) > 0 {
		d.StockCodes = codes
	}
	if t, ok := ParseDisclosureType(it.DisclosureClass); ok {
		d.DisclosureType = string(t)
	} else if t, ok := ParseDisclosureType(subject); ok {
		d.DisclosureType = string(t)
	}
	if t, ok := ParseKAPDate(it.PublishDate); ok {
		d.PublishedAt = t
	}
	return d, true
}

func splitCodes(s string) []string {
	var out []string
	for _, c := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' }) {
		out = append(out, strings.ToUpper(c))
	}
	return out
}

// DetailURL returns the public page of a disclosure.
func (c *Client) DetailURL(id string) string {
	return c.BaseURL + detailPath + url.PathEscape(id)
}

// Detail is what a disclosure page adds to its list entry.
type Detail struct {
	Body        string
	Attachments []string
}

// Detail fetches and parses the disclosure page.
func (c *Client) Detail(ctx context.Context, id string) (Detail, error) {
	resp, err := c.get(ctx, c.DetailURL(id), "text/html")
	if err != nil {
		return Detail{}, fmt.Errorf("fetching disclosure %s: %w", id, err)
	}
	defer resp.Body.Close()
	base, _ := url.Parse(c.BaseURL)
	d, err := ParseDetail(io.LimitReader(resp.Body, maxDetailBytes), base)
	if err != nil {
		return Detail{}, fmt.Errorf("parsing disclosure %s: %w", id, err)
	}
	return d, nil
}

// Download saves rawURL to destPath through a temp file and rename.
func (c *Client) Download(ctx context.Context, rawURL, destPath string) error {
	resp, err := c.get(ctx, rawURL, "application/pdf,application/octet-stream")
	if err != nil {
		return fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating attachment directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".kap-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", accept)
	httputil.SetUserAgent(req, c.UserAgent)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if err := httputil.CheckStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// Body containers on a disclosure page, most specific first.
var bodySelectors = []string{
	"div.disclosureContainer",
	"#disclosureContent",
	"div.modal-info",
	"div.text-block-value",
}

const attachmentSelector = `a[href*="/api/file/download/"], a[href*="/tr/api/BildirimPdf/"], a[href$=".pdf"]`

var stripPolicy = bluemonday.StrictPolicy()

// ParseDetail extracts the body text and absolute attachment URLs from a
// disclosure page. base resolves relative links.
func ParseDetail(r io.Reader, base *url.URL) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Detail{}, err
	}
	var d Detail
	for _, sel := range bodySelectors {
		var parts []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if text := selectionText(s); text != "" {
				parts = append(parts, text)
			}
		})
		if len(parts) > 0 {
			d.Body = strings.Join(parts, "\n\n")
			break
		}
	}

	seen := make(map[string]bool)
	doc.Find(attachmentSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		if base != nil {
			u = base.ResolveReference(u)
		}
		if abs := u.String(); !seen[abs] {
			seen[abs] = true
			d.Attachments = append(d.Attachments, abs)
		}
	})
	return d, nil
}

// selectionText renders a selection as plain text, one line per block
// element, with markup removed and entities decoded.
func selectionText(s *goquery.Selection) string {
	s.Find("script, style").Remove()
	s.Find("br, p, div, tr, li, h1, h2, h3, h4").Each(func(_ int, el *goquery.Selection) {
		el.AppendHtml("\n")
	})
	raw, err := s.Html()
	if err != nil {
		return ""
	}
	text := html.UnescapeString(stripPolicy.Sanitize(raw))
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
