// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages: a client
// constructor that applies the per-call timeout, a token-bucket limiter for
// pacing paginated requests, and overload backoff for LLM calls.
package httputil

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RetryBaseDelay is the first backoff; each later attempt doubles it.
// Tests shrink it to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const defaultMaxRetries = 3

// statusOverloaded is Anthropic's non-standard "overloaded" status.
const statusOverloaded = 529

// Retryable reports whether status means the upstream is rate limiting or
// temporarily overloaded, as opposed to rejecting the request.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		statusOverloaded:
		return true
	}
	return false
}

// DoWithRetry sends req and resends it while the upstream answers with a
// Retryable status, at most maxRetries times (0 means 3). The wait is the
// Retry-After header when present, otherwise RetryBaseDelay doubled per
// attempt. Once retries run out the last response is returned unread so
// the caller can report it. Cancelling ctx during a wait returns ctx.Err().
//
// Search providers never call this: a provider call is best-effort and a
// failure only empties its contribution.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	log := zerolog.Ctx(ctx)

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			attemptReq.Body = body
		}
		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}
		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		wait := retryAfter(resp.Header.Get("Retry-After"), time.Now())
		if wait <= 0 {
			wait = RetryBaseDelay << attempt
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		log.Debug().
			Str("url", req.URL.Redacted()).
			Int("status", resp.StatusCode).
			Dur("backoff", wait).
			Int("attempt", attempt+1).
			Int("max_retries", maxRetries).
			Msg("upstream busy, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// retryAfter reads a Retry-After header given in seconds or as an HTTP
// date relative to now. Past dates and garbage yield 0. The result is
// capped at 8x RetryBaseDelay.
func retryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		d = at.Sub(now)
	}
	if d <= 0 {
		return 0
	}
	return min(d, 8*RetryBaseDelay)
}
