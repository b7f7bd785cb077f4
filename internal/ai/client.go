package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seen-ai/talentq"
)

// Client is a minimal chat-completions client for OpenAI-style endpoints.
// Non-2xx responses surface as *talentq.HTTPError so the retry classifier
// can split client rejections from server failures.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	codec   talentq.Codec
	http    *http.Client
}

// NewClient creates a client for the given endpoint. Timeout applies
// per-request; zero defaults to 30s.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		codec:   &talentq.JSONCodec{},
		http:    &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model          string    `json:"model"`
	Messages       []Message `json:"messages"`
	Temperature    float64   `json:"temperature"`
	ResponseFormat *respFmt  `json:"response_format,omitempty"`
}

type respFmt struct {
	Type string `json:"type"`
}

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the messages and returns the first choice's content.
// jsonMode asks the model for a JSON object response.
func (c *Client) Complete(ctx context.Context, messages []Message, jsonMode bool) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.2,
	}
	if jsonMode {
		reqBody.ResponseFormat = &respFmt{Type: "json_object"}
	}
	payload, err := c.codec.Encode(&reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &talentq.HTTPError{Status: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	var out chatResponse
	if err := c.codec.Decode(body, &out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
