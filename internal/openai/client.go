// Package openai is a chat-completions client for OpenAI-compatible servers.
// The rewriter task points it at a local inference server by default, so the
// base URL is configurable and the egress allowlist admits that host only.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"redline/engine/internal/collab"
	"redline/engine/internal/egress"
)

type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a client for baseURL (e.g. https://api.openai.com/v1 or a
// local server's /v1 endpoint). Plain-http URLs skip the allowlist so local
// servers work; anything https is pinned to its own host.
func NewClient(baseURL string) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("openai: invalid base url %q", baseURL)
	}
	httpClient := &http.Client{Timeout: 120 * time.Second}
	if parsed.Scheme == "https" {
		httpClient.Transport = egress.NewAllowlistRoundTripper(http.DefaultTransport, []string{parsed.Hostname()})
	}
	return &Client{baseURL: parsed.String(), client: httpClient}, nil
}

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []collab.Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message collab.Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) Chat(ctx context.Context, apiKey, model string, messages []collab.Message) (string, error) {
	body, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, collab.ErrEgressBlocked) {
			return "", collab.ErrEgressBlocked
		}
		return "", err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", collab.ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", collab.ErrRateLimited
	case resp.StatusCode >= 500:
		return "", collab.ErrUnavailable
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", fmt.Errorf("openai: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}
	return parsed.Choices[0].Message.Content, nil
}
