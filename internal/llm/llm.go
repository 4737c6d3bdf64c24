// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm sends single-turn prompts to a Generative AI API and returns
// the raw text reply. Parsing the reply is the caller's job.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/harvest/internal/httputil"
	"github.com/pdiddy/harvest/internal/observability"
	"github.com/pdiddy/harvest/pkg/types"
)

// ErrNoContent is returned when the API answered but carried no text.
var ErrNoContent = errors.New("llm: response has no text content")

// DefaultMaxTokens caps the reply length when a Request leaves it unset.
const DefaultMaxTokens = 1024

const maxReplyBytes = 4 << 20

// Request is one single-turn completion.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
	// JSON asks the backend for a JSON object reply where it supports that.
	JSON bool
}

// Client abstracts a Generative AI API so tests can supply a mock.
type Client interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// base carries what every backend shares.
type base struct {
	APIKey     string
	Model      string
	HTTP       *http.Client
	MaxRetries int
	Metrics    *observability.Metrics
}

func (b base) client() *http.Client {
	if b.HTTP != nil {
		return b.HTTP
	}
	return http.DefaultClient
}

// postJSON marshals in, POSTs it with header, retries on 429 and decodes
// the reply into out.
func (b base) postJSON(ctx context.Context, provider, url string, header http.Header, in, out any) (err error) {
	start := time.Now()
	defer func() {
		b.Metrics.RecordLLMCall(provider, time.Since(start).Seconds(), err != nil)
	}()

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := httputil.DoWithRetry(ctx, b.client(), req, b.MaxRetries)
	if err != nil {
		return fmt.Errorf("calling %s API: %w", provider, err)
	}
	defer resp.Body.Close()
	if err := httputil.CheckStatus(resp); err != nil {
		return fmt.Errorf("%s API: %w", provider, err)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplyBytes)).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", provider, err)
	}
	return nil
}

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return DefaultMaxTokens
}

// New builds the client selected by cfg.Provider. The http client should
// already carry the per-call timeout.
func New(cfg types.AIConfig, client *http.Client, m *observability.Metrics) (Client, error) {
	b := base{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		HTTP:       client,
		MaxRetries: cfg.MaxRetries,
		Metrics:    m,
	}
	switch cfg.Provider {
	case types.LLMOpenAI, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai: api key is required")
		}
		return &OpenAIClient{base: b, BaseURL: cfg.BaseURL}, nil
	case types.LLMLocal:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("local: base_url is required")
		}
		return &OpenAIClient{base: b, BaseURL: cfg.BaseURL, name: string(types.LLMLocal)}, nil
	case types.LLMGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini: api key is required")
		}
		return &GeminiClient{base: b, BaseURL: cfg.BaseURL}, nil
	case types.LLMClaude:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude: api key is required")
		}
		return &ClaudeClient{base: b, URL: cfg.BaseURL}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
