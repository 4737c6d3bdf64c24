// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/pdiddy/harvest/internal/httputil"
)

// maxResponseBytes caps how much of an upstream body is decoded.
const maxResponseBytes = 10 << 20

// Transport carries the HTTP plumbing shared by providers. Limiter paces
// paginated requests; a nil Limiter does not pace.
type Transport struct {
	Client    *http.Client
	UserAgent string
	Limiter   *httputil.Limiter
}

func (t Transport) client() *http.Client {
	if t.Client != nil {
		return t.Client
	}
	return http.DefaultClient
}

// get issues one paced GET and returns the response when the status is 2xx.
// The caller closes the body.
func (t Transport) get(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	if err := t.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	httputil.SetUserAgent(req, t.UserAgent)

	resp, err := t.client().Do(req)
	if err != nil {
		return nil, err
	}
	if err := httputil.CheckStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// getJSON issues a GET and decodes the JSON body into out.
func (t Transport) getJSON(ctx context.Context, rawURL string, header http.Header, out any) error {
	resp, err := t.get(ctx, rawURL, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

var strictPolicy = bluemonday.StrictPolicy()

// StripMarkup removes HTML or JATS tags from s, decodes entities, and
// collapses whitespace. A leading "Abstract" heading is dropped.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}
	// Tags are replaced by a space so adjacent block elements do not fuse.
	s = strings.ReplaceAll(s, "<", " <")
	text := html.UnescapeString(strictPolicy.Sanitize(s))
	text = strings.Join(strings.Fields(text), " ")
	if rest, ok := strings.CutPrefix(text, "Abstract "); ok {
		text = rest
	}
	return text
}
