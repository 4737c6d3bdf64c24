// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"net/http"
	"strings"
)

// ClaudeAPIURL is the Claude Messages endpoint. Package-level var for test substitution.
var ClaudeAPIURL = "https://api.anthropic.com/v1/messages"

// ClaudeClient calls the Claude Messages API.
type ClaudeClient struct {
	base
	// URL overrides ClaudeAPIURL when set.
	URL string
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *ClaudeClient) Name() string { return "claude" }

func (c *ClaudeClient) Complete(ctx context.Context, req Request) (string, error) {
	endpoint := c.URL
	if endpoint == "" {
		endpoint = ClaudeAPIURL
	}
	body := claudeRequest{
		Model:     c.Model,
		MaxTokens: maxTokens(req),
		System:    req.System,
		Messages:  []claudeMessage{{Role: "user", Content: req.Prompt}},
	}
	header := http.Header{
		"X-Api-Key":         {c.APIKey},
		"Anthropic-Version": {"2023-06-01"},
	}
	var resp claudeResponse
	if err := c.postJSON(ctx, c.Name(), endpoint, header, body, &resp); err != nil {
		return "", err
	}
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		if text := strings.TrimSpace(block.Text); text != "" {
			return text, nil
		}
	}
	return "", ErrNoContent
}
