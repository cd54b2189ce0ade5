// Package gemini is a minimal Gemini generateContent client used for the
// locator task.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"redline/engine/internal/collab"
	"redline/engine/internal/egress"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient() *Client {
	transport := egress.NewAllowlistRoundTripper(http.DefaultTransport, []string{"generativelanguage.googleapis.com"})
	return &Client{
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout:   120 * time.Second,
			Transport: transport,
		},
	}
}

type generateRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) Chat(ctx context.Context, apiKey, model string, messages []collab.Message) (string, error) {
	payload := generateRequest{}
	for _, msg := range messages {
		part := geminiContent{Parts: []geminiPart{{Text: msg.Content}}}
		if msg.Role == collab.RoleSystem {
			payload.SystemInstruction = &geminiContent{Parts: part.Parts}
			continue
		}
		part.Role = "user"
		payload.Contents = append(payload.Contents, part)
	}

	endpoint, err := url.Parse(fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(model)))
	if err != nil {
		return "", err
	}
	q := endpoint.Query()
	q.Set("key", apiKey)
	endpoint.RawQuery = q.Encode()

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, collab.ErrEgressBlocked) {
			return "", collab.ErrEgressBlocked
		}
		return "", err
	}
	defer resp.Body.Close()
	if err := classifyStatus(resp.StatusCode); err != nil {
		return "", err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini: %s", parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	var text string
	for _, part := range parsed.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, nil
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return collab.ErrUnauthorized
	case status == http.StatusTooManyRequests:
		return collab.ErrRateLimited
	case status >= 500:
		return collab.ErrUnavailable
	case status < 200 || status >= 300:
		return fmt.Errorf("gemini: unexpected status %d", status)
	}
	return nil
}
