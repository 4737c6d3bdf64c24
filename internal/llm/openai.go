// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"net/http"
	"strings"
)

// OpenAIBaseURL is the OpenAI API root. Package-level var for test substitution.
var OpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient talks to the chat completions endpoint. Local servers that
// speak the same protocol (llama.cpp, Ollama, vLLM) use it with BaseURL set.
type OpenAIClient struct {
	base
	BaseURL string
	name    string
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *openAIFormat   `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Name() string {
	if c.name != "" {
		return c.name
	}
	return "openai"
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	root := c.BaseURL
	if root == "" {
		root = OpenAIBaseURL
	}
	body := openAIRequest{
		Model:     c.Model,
		MaxTokens: maxTokens(req),
	}
	if req.System != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, openAIMessage{Role: "user", Content: req.Prompt})
	if req.JSON {
		body.ResponseFormat = &openAIFormat{Type: "json_object"}
	}

	header := http.Header{}
	if c.APIKey != "" {
		header.Set("Authorization", "Bearer "+c.APIKey)
	}
	var resp openAIResponse
	if err := c.postJSON(ctx, c.Name(), strings.TrimRight(root, "/")+"/chat/completions", header, body, &resp); err != nil {
		return "", err
	}
	for _, ch := range resp.Choices {
		if text := strings.TrimSpace(ch.Message.Content); text != "" {
			return text, nil
		}
	}
	return "", ErrNoContent
}
